package resilience

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	// BreakerState reports the current state per target: 0=closed, 1=open, 2=half-open.
	BreakerState *prometheus.GaugeVec
	// BreakerTransitions counts state changes per target.
	BreakerTransitions *prometheus.CounterVec
	// BreakerOpenedTotal counts how often a target's breaker opened.
	BreakerOpenedTotal *prometheus.CounterVec
	// RetryAttempts counts outbound attempts by target and outcome.
	RetryAttempts *prometheus.CounterVec
)

// MustRegisterMetrics builds the breaker and retry collectors under namespace and registers them
// once. A nil registerer uses the default. Until it runs the collectors stay nil and are skipped.
func MustRegisterMetrics(namespace string, reg prometheus.Registerer) {
	registerOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_state",
			Help:      "Current breaker state: 0=closed,1=open,2=half-open",
		}, []string{"target"})
		BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_transition_total",
			Help:      "Count of breaker state transitions",
		}, []string{"target", "from", "to"})
		BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "breaker_open_total",
			Help:      "Number of times a breaker transitioned into open state",
		}, []string{"target"})
		RetryAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_attempts_total",
			Help:      "Outbound HTTP attempts by target and outcome (ok, retry, giveup, open).",
		}, []string{"target", "outcome"})
		reg.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal, RetryAttempts)
	})
}

func countAttempt(target, outcome string) {
	if RetryAttempts != nil {
		RetryAttempts.WithLabelValues(target, outcome).Inc()
	}
}
