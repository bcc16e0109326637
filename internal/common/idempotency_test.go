package common

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestIdemBlocksReplayAfterSuccess(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	status := http.StatusInternalServerError
	calls := 0
	h := Idem{R: client, TTL: time.Minute, Prefix: "test:idem:"}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(`{"sessionId":"s1"}`))
		req.Header.Set("Idempotency-Key", "order-123")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusInternalServerError, send())
	require.Equal(t, http.StatusInternalServerError, send(), "failed attempts release the key")

	status = http.StatusOK
	require.Equal(t, http.StatusOK, send())
	require.Equal(t, http.StatusConflict, send())
	require.Equal(t, 3, calls)
	require.True(t, mr.Exists("test:idem:"+Sha256Hex("order-123")))

	other := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(`{"sessionId":"s2"}`))
	other.Header.Set("Idempotency-Key", "order-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, other)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "IDEMPOTENCY_KEY_REUSED")
	require.Equal(t, 3, calls)
}

func TestIdemReleasesKeyWhenHandlerPanics(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	calls := 0
	idem := Idem{R: client, TTL: time.Minute, Prefix: "test:idem:"}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			panic("sink client blew up")
		}
		w.WriteHeader(http.StatusOK)
	}))
	h := middleware.Recoverer(idem)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(`{"sessionId":"s1"}`))
		req.Header.Set("Idempotency-Key", "order-panic")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	require.Equal(t, http.StatusInternalServerError, send())
	require.False(t, mr.Exists("test:idem:"+Sha256Hex("order-panic")))
	require.Equal(t, http.StatusOK, send(), "retry after a panic reaches the handler")
	require.Equal(t, 2, calls)
}

func TestIdemHandlerSeesBody(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	var seen string
	h := Idem{R: client}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		seen = buf.String()
	}))
	req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(`{"a":1}`))
	req.Header.Set("Idempotency-Key", "k")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, `{"a":1}`, seen)
	require.True(t, mr.Exists("idem:"+Sha256Hex("k")))
}

func TestIdemPassThroughWithoutHeader(t *testing.T) {
	calls := 0
	h := Idem{}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	for i := 0; i < 2; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	}
	require.Equal(t, 2, calls)
}
