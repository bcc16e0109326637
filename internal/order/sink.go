package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/egotech-storefront/internal/obs"
	"github.com/noah-isme/egotech-storefront/internal/resilience"
)

const maxSinkResponse = 1 << 20

// Sink stores a finished order record and returns the downstream response body.
type Sink interface {
	Save(ctx context.Context, fields map[string]any) (json.RawMessage, error)
}

// HTTPSink posts records as {"fields": {...}} with a bearer token, the shape accepted by
// spreadsheet style record APIs.
type HTTPSink struct {
	URL    string
	Token  string
	Client resilience.HTTPClient
	Logger zerolog.Logger
}

// Save posts the record and returns the JSON body of a 2xx response.
func (s *HTTPSink) Save(ctx context.Context, fields map[string]any) (json.RawMessage, error) {
	if s == nil || strings.TrimSpace(s.URL) == "" {
		return nil, errors.New("order sink not configured")
	}
	payload, err := json.Marshal(map[string]any{"fields": fields})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	start := time.Now()
	result := "error"
	defer func() {
		if obs.OrderSinkLatency != nil {
			obs.OrderSinkLatency.WithLabelValues(result).Observe(obs.DurationMillis(time.Since(start)))
		}
	}()

	resp, err := s.Client.Do(ctx, req)
	if err != nil {
		s.Logger.Error().Err(err).Msg("order_sink_request_failed")
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSinkResponse))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.Logger.Error().Int("status", resp.StatusCode).Bytes("body", truncate(body, 512)).Msg("order_sink_rejected")
		return nil, fmt.Errorf("order sink returned %s", resp.Status)
	}
	if !json.Valid(body) {
		return nil, errors.New("order sink returned invalid json")
	}
	result = "ok"
	s.Logger.Info().Int("status", resp.StatusCode).Msg("order_sink_saved")
	return json.RawMessage(body), nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
