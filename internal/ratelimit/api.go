package ratelimit

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/noah-isme/egotech-storefront/internal/common"
	"github.com/noah-isme/egotech-storefront/internal/obs"
)

const apiScope = "api"

// NewLimiterStore wires a fixed window limiter store backed by Redis.
func NewLimiterStore(rdb *redis.Client, prefix string) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
}

// APIMiddleware builds a coarse per-IP limiter for the public API from a formatted rate such as
// "300-M". An empty rate disables limiting.
func APIMiddleware(store limiter.Store, rate string, logger zerolog.Logger) (func(http.Handler) http.Handler, error) {
	rate = strings.TrimSpace(rate)
	if rate == "" || store == nil {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("parse api rate %q: %w", rate, err)
	}
	mw := stdlib.NewMiddleware(
		limiter.New(store, parsed),
		stdlib.WithKeyGetter(ClientIPKey),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			if obs.RateLimitedTotal != nil {
				obs.RateLimitedTotal.WithLabelValues(apiScope).Inc()
			}
			obs.AddLogField(r.Context(), "rate_limited", apiScope)
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please try again later", nil)
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error().Err(err).Str("scope", apiScope).Msg("rate_limit_unavailable")
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "rate limiter unavailable", nil)
		}),
	)
	return mw.Handler, nil
}
