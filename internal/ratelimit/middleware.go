package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/egotech-storefront/internal/common"
	"github.com/noah-isme/egotech-storefront/internal/obs"
)

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	// Scope labels metrics and prefixes keys, e.g. "order".
	Scope  string
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// ClientIPKey keys requests by the caller's IP address.
func ClientIPKey(r *http.Request) string {
	return common.ClientIP(r)
}

// Handler enforces rate limits before delegating to the next handler. Limiter failures fail open.
type Handler struct {
	Limiter Allower
	Config  Config
	Logger  zerolog.Logger
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil || h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := h.Config.Key(r)
		if h.Config.Scope != "" {
			key = h.Config.Scope + ":" + key
		}
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), key, h.Config.Window, h.Config.Max)
		if err != nil {
			h.Logger.Warn().Err(err).Str("scope", h.Config.Scope).Msg("rate_limit_unavailable")
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		limitValue := h.Config.Max
		if limitValue < 0 {
			limitValue = 0
		}
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(limitValue))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			if obs.RateLimitedTotal != nil {
				obs.RateLimitedTotal.WithLabelValues(h.Config.Scope).Inc()
			}
			obs.AddLogField(r.Context(), "rate_limited", h.Config.Scope)
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, please try again later", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
