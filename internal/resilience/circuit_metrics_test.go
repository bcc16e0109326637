package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/egotech-storefront/internal/resilience"
)

func TestBreakerMetricsTransitions(t *testing.T) {
	resilience.MustRegisterMetrics("storefront_test", prometheus.NewRegistry())
	resilience.BreakerState.Reset()
	resilience.BreakerTransitions.Reset()
	resilience.BreakerOpenedTotal.Reset()

	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	breaker := resilience.NewBreaker(1, 0.5, 20*time.Millisecond).WithClock(clock.Now).WithTarget("sink-metrics")
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)

	val := testutil.ToFloat64(resilience.BreakerState.WithLabelValues("sink-metrics"))
	require.Equal(t, 1.0, val)

	clock.Advance(25 * time.Millisecond)
	require.True(t, breaker.Allow(ctx))

	val = testutil.ToFloat64(resilience.BreakerState.WithLabelValues("sink-metrics"))
	require.Equal(t, 2.0, val)

	breaker.Report(ctx, true)

	val = testutil.ToFloat64(resilience.BreakerState.WithLabelValues("sink-metrics"))
	require.Equal(t, 0.0, val)

	opened := testutil.ToFloat64(resilience.BreakerOpenedTotal.WithLabelValues("sink-metrics"))
	require.Equal(t, 1.0, opened)

	toOpen := testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues("sink-metrics", "closed", "open"))
	require.Equal(t, 1.0, toOpen)

	toHalf := testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues("sink-metrics", "open", "half_open"))
	require.Equal(t, 1.0, toHalf)

	toClosed := testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues("sink-metrics", "half_open", "closed"))
	require.Equal(t, 1.0, toClosed)
}

func TestRetryAttemptsCounted(t *testing.T) {
	resilience.MustRegisterMetrics("storefront_test", prometheus.NewRegistry())
	resilience.RetryAttempts.Reset()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cl := resilience.HTTPClient{
		Client:      srv.Client(),
		Breaker:     resilience.NewBreaker(10, 0.9, time.Second).WithTarget("sink-retry"),
		BaseBackoff: time.Millisecond,
		MaxAttempts: 3,
	}
	req, err := http.NewRequest(http.MethodPost, srv.URL, nil)
	require.NoError(t, err)
	resp, err := cl.Do(context.Background(), req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	require.Equal(t, 1.0, testutil.ToFloat64(resilience.RetryAttempts.WithLabelValues("sink-retry", "retry")))
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.RetryAttempts.WithLabelValues("sink-retry", "ok")))
}
