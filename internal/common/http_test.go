package common

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	require.Equal(t, "10.1.2.3", ClientIP(req))

	req.Header.Set("X-Real-IP", "172.16.0.9")
	require.Equal(t, "172.16.0.9", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "unknown, 203.0.113.5, 10.0.0.1")
	require.Equal(t, "203.0.113.5", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage")
	require.Equal(t, "172.16.0.9", ClientIP(req))

	v6 := httptest.NewRequest(http.MethodGet, "/", nil)
	v6.RemoteAddr = "[2001:0db8:0000::1]:443"
	require.Equal(t, "2001:db8::1", ClientIP(v6))

	require.Empty(t, ClientIP(nil))
}

var errGone = errors.New("gone")

func TestWriteError(t *testing.T) {
	mappings := []ErrorMapping{{Target: errGone, Status: http.StatusNotFound, Code: "NOT_FOUND"}}

	rr := httptest.NewRecorder()
	WriteError(rr, fmt.Errorf("session abc: %w", errGone), mappings...)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.JSONEq(t, `{"error":{"code":"NOT_FOUND","message":"session abc: gone"}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	appErr := NewAppError("VALIDATION_FAILED", "invalid order details", 0, errGone)
	appErr.Details = []string{"email"}
	WriteError(rr, fmt.Errorf("wrapped: %w", appErr), mappings...)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.JSONEq(t, `{"error":{"code":"VALIDATION_FAILED","message":"invalid order details","details":["email"]}}`, rr.Body.String())
	require.ErrorIs(t, appErr, errGone)

	rr = httptest.NewRecorder()
	WriteError(rr, errors.New("dial tcp 10.0.0.1:6379: refused"))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "6379")

	_, ok := Classify(nil)
	require.False(t, ok)
}
