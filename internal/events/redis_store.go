package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/egotech-storefront/internal/obs"
)

// RedisStore appends events to a capped Redis stream.
type RedisStore struct {
	R      redis.UniversalClient
	Stream string
	MaxLen int64
}

// Append adds the event to the stream and returns the stream entry id.
func (s RedisStore) Append(ctx context.Context, ev Event) (string, error) {
	if s.R == nil || s.Stream == "" {
		return "", errors.New("events: redis stream not configured")
	}
	return s.R.XAdd(ctx, &redis.XAddArgs{
		Stream: s.Stream,
		MaxLen: s.MaxLen,
		Values: map[string]any{
			"topic":        ev.Topic,
			"aggregate_id": ev.AggregateID,
			"payload":      string(ev.Payload),
			"occurred_at":  ev.OccurredAt.Format(time.RFC3339Nano),
		},
	}).Result()
}

// Recent returns up to count events, newest first.
func (s RedisStore) Recent(ctx context.Context, count int64) ([]Event, error) {
	if s.R == nil || s.Stream == "" {
		return nil, errors.New("events: redis stream not configured")
	}
	msgs, err := s.R.XRevRangeN(ctx, s.Stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("events: read stream: %w", err)
	}
	out := make([]Event, 0, len(msgs))
	for _, m := range msgs {
		ev := Event{ID: m.ID}
		ev.Topic, _ = m.Values["topic"].(string)
		ev.AggregateID, _ = m.Values["aggregate_id"].(string)
		if p, ok := m.Values["payload"].(string); ok {
			ev.Payload = []byte(p)
		}
		if ts, ok := m.Values["occurred_at"].(string); ok {
			ev.OccurredAt, _ = time.Parse(time.RFC3339Nano, ts)
		}
		out = append(out, ev)
	}
	return out, nil
}

// LogNotifier writes every event to the structured log and counts it.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	if obs.EventsEmittedTotal != nil {
		obs.EventsEmittedTotal.WithLabelValues(ev.Topic).Inc()
	}
	n.Logger.Info().
		Str("event_id", ev.ID).
		Str("topic", ev.Topic).
		Str("aggregate_id", ev.AggregateID).
		Msg("domain_event")
	return nil
}
