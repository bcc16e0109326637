package app

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/egotech-storefront/internal/config"
	"github.com/noah-isme/egotech-storefront/internal/resilience"
)

// NewSinkClient returns the traced, retrying client used for order sink calls. Only transport
// errors, 429 and 5xx are retried.
func NewSinkClient(cfg *config.Config, logger zerolog.Logger) resilience.HTTPClient {
	breaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("order-sink").
		WithLogger(logger)
	return resilience.HTTPClient{
		Client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "order-sink " + r.Method
				}),
			),
		},
		Breaker:     breaker,
		BaseBackoff: 200 * time.Millisecond,
		MaxAttempts: cfg.OrderSinkMaxAttempts,
		Jitter:      0.2,
		Timeout:     cfg.OrderSinkTimeout,
	}
}

// InstrumentRedis attaches tracing, and optionally metrics, to the Redis client.
func InstrumentRedis(client *redis.Client, tp trace.TracerProvider, mp metric.MeterProvider, withMetrics bool) error {
	if err := redisotel.InstrumentTracing(client, redisotel.WithTracerProvider(tp)); err != nil {
		return err
	}
	if withMetrics {
		return redisotel.InstrumentMetrics(client, redisotel.WithMeterProvider(mp))
	}
	return nil
}
