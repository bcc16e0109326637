package common

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Sha256Hex returns the SHA-256 digest of the input encoded as lowercase hex.
func Sha256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// Idem provides an Idempotency-Key middleware backed by Redis. A key is held for TTL once the
// wrapped handler succeeds; failed attempts release it so the client can retry. The key stores a
// fingerprint of the request so reuse with a different payload is reported separately from a
// replay.
type Idem struct {
	R      redis.UniversalClient
	TTL    time.Duration
	Prefix string
}

func (i Idem) key(header string) string {
	prefix := i.Prefix
	if prefix == "" {
		prefix = "idem:"
	}
	return prefix + Sha256Hex(header)
}

// Middleware enforces idempotency semantics for write endpoints.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		var body []byte
		if r.Body != nil {
			var err error
			if body, err = io.ReadAll(r.Body); err != nil {
				JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
				return
			}
			_ = r.Body.Close()
			r.Body = io.NopCloser(bytes.NewReader(body))
		}
		fingerprint := Sha256Hex(r.Method + " " + r.URL.Path + "\n" + string(body))

		ctx := r.Context()
		key := i.key(header)
		ok, err := i.R.SetNX(ctx, key, fingerprint, ttl).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", nil)
			return
		}
		if !ok {
			stored, getErr := i.R.Get(ctx, key).Result()
			if getErr == nil && stored != fingerprint {
				JSONError(w, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "idempotency key was used with a different request", nil)
				return
			}
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		release := func() { _ = i.R.Del(context.WithoutCancel(ctx), key).Err() }
		defer func() {
			// A panic is turned into a 500 further out, past rec.
			if p := recover(); p != nil {
				release()
				panic(p)
			}
			if rec.status >= 300 {
				release()
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
