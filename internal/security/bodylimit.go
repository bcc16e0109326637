package security

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/noah-isme/egotech-storefront/internal/common"
)

// BodyLimit caps JSON payloads on the storefront routes. Rejections use the API error shape
// with code PAYLOAD_TOO_LARGE and the configured limit in details.
type BodyLimit struct {
	Max int64
}

// Middleware buffers the body up to Max bytes and replays it to the next handler.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	if b.Max <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			b.reject(w)
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, b.Max))
		_ = r.Body.Close()
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			b.reject(w)
			return
		case err != nil:
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(payload))
		r.ContentLength = int64(len(payload))
		next.ServeHTTP(w, r)
	})
}

func (b BodyLimit) reject(w http.ResponseWriter) {
	common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large",
		map[string]int64{"maxBytes": b.Max})
}
