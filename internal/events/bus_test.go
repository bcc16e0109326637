package events_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/egotech-storefront/internal/events"
)

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func newStore(t *testing.T, maxLen int64) events.RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return events.RedisStore{R: client, Stream: "storefront:events", MaxLen: maxLen}
}

func TestEmitPersistsEvent(t *testing.T) {
	store := newStore(t, 0)
	notifier := &captureNotifier{}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bus := events.Bus{
		Store:     store,
		Notifiers: []events.Notifier{notifier, events.LogNotifier{Logger: zerolog.Nop()}},
		Now:       func() time.Time { return at },
	}

	ctx := context.Background()
	event, err := bus.Emit(ctx, events.TopicOrderSaved, "EGO-1", map[string]any{"total": 100})
	require.NoError(t, err)
	require.NotEmpty(t, event.ID)
	require.Len(t, notifier.events, 1)
	require.Equal(t, event.ID, notifier.events[0].ID)

	recent, err := store.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, event.ID, recent[0].ID)
	require.Equal(t, events.TopicOrderSaved, recent[0].Topic)
	require.Equal(t, "EGO-1", recent[0].AggregateID)
	require.JSONEq(t, `{"total":100}`, string(recent[0].Payload))
	require.True(t, at.Equal(recent[0].OccurredAt))
}

func TestEmitRejectsBadInput(t *testing.T) {
	bus := events.Bus{Store: newStore(t, 0)}
	ctx := context.Background()

	_, err := bus.Emit(ctx, " ", "EGO-1", nil)
	require.ErrorContains(t, err, "topic")
	_, err = bus.Emit(ctx, events.TopicOrderSaved, "", nil)
	require.ErrorContains(t, err, "aggregate")
	_, err = bus.Emit(ctx, events.TopicOrderSaved, "EGO-1", "{not json")
	require.ErrorContains(t, err, "encode payload")

	_, err = (&events.Bus{}).Emit(ctx, events.TopicOrderSaved, "EGO-1", nil)
	require.Error(t, err)
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	failing := &captureNotifier{err: errors.New("boom")}
	bus := events.Bus{Store: newStore(t, 0), Notifiers: []events.Notifier{failing, nil}}
	ev, err := bus.Emit(context.Background(), events.TopicOrderFailed, "EGO-2", []byte(`{"error":"x"}`))
	require.ErrorContains(t, err, "boom")
	require.NotEmpty(t, ev.ID)
}

func TestRecentNewestFirstAndCapped(t *testing.T) {
	store := newStore(t, 3)
	bus := events.Bus{Store: store}
	ctx := context.Background()
	refs := []string{"EGO-1", "EGO-2", "EGO-3", "EGO-4", "EGO-5"}
	for _, ref := range refs {
		_, err := bus.Emit(ctx, events.TopicOrderSaved, ref, nil)
		require.NoError(t, err)
	}
	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	require.Equal(t, "EGO-5", recent[0].AggregateID)
	require.Equal(t, "EGO-3", recent[2].AggregateID)
	require.JSONEq(t, `{}`, string(recent[0].Payload))
}
