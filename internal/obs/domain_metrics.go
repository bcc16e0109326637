package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingQuotesTotal counts computed quotes by shipping status.
	PricingQuotesTotal *prometheus.CounterVec
	// PricingRejectedLinesTotal counts cart lines dropped from a subtotal as malformed.
	PricingRejectedLinesTotal prometheus.Counter
	// CouponEvaluationsTotal counts coupon code evaluations by outcome.
	CouponEvaluationsTotal *prometheus.CounterVec
	// OrderSubmissionsTotal counts order submissions by outcome.
	OrderSubmissionsTotal *prometheus.CounterVec
	// OrderSinkLatency records order sink round trips in milliseconds.
	OrderSinkLatency *prometheus.HistogramVec
	// RateLimitedTotal counts requests rejected by a rate limiter, by scope.
	RateLimitedTotal *prometheus.CounterVec
	// EventsEmittedTotal counts domain events written to the event log, by topic.
	EventsEmittedTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers the storefront collectors once. Until it
// runs the package level collectors stay nil and callers skip them.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
			return register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      name,
				Help:      help,
			}, labels))
		}

		PricingQuotesTotal = counterVec("pricing_quotes_total", "Count of computed price quotes by shipping status.", "shipping_status")
		PricingRejectedLinesTotal = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_rejected_lines_total",
			Help:      "Number of malformed cart lines excluded from subtotals.",
		}))
		CouponEvaluationsTotal = counterVec("coupon_evaluations_total", "Count of coupon code evaluations by outcome.", "status")
		OrderSubmissionsTotal = counterVec("order_submissions_total", "Count of order submissions by outcome.", "result")
		OrderSinkLatency = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_sink_duration_ms",
			Help:      "Latency for order sink requests in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"}))
		RateLimitedTotal = counterVec("rate_limited_total", "Requests rejected by rate limiting, by scope.", "scope")
		EventsEmittedTotal = counterVec("events_emitted_total", "Domain events appended to the event log, by topic.", "topic")
	})
}
