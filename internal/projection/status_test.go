package projection

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-inventory-orders/internal/orders"
	"github.com/ariefcatur/go-inventory-orders/internal/redisx"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStatusStore struct {
	entries   map[int64]redisx.StatusEntry
	processed map[string]bool
	sets      int
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{entries: map[int64]redisx.StatusEntry{}, processed: map[string]bool{}}
}

func (f *fakeStatusStore) GetStatus(_ context.Context, id int64) (redisx.StatusEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return e, redisx.ErrCacheMiss
	}
	return e, nil
}

func (f *fakeStatusStore) SetStatus(_ context.Context, id int64, e redisx.StatusEntry) error {
	f.sets++
	f.entries[id] = e
	return nil
}

func (f *fakeStatusStore) Seen(_ context.Context, service, eventID string) (bool, error) {
	return f.processed[service+"/"+eventID], nil
}

func (f *fakeStatusStore) MarkProcessed(_ context.Context, service, eventID string) error {
	f.processed[service+"/"+eventID] = true
	return nil
}

func message(t *testing.T, id, eventType string, at time.Time, payload any) kafkago.Message {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	env, err := json.Marshal(orders.Envelope{EventID: id, EventType: eventType, EventVersion: 1, OccurredAt: at, Payload: body})
	require.NoError(t, err)
	return kafkago.Message{Topic: "t", Value: env}
}

func TestProjectorTracksLatestStatus(t *testing.T) {
	ctx := context.Background()
	store := newFakeStatusStore()
	p := &StatusProjector{Cache: store, Service: "test"}
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, p.HandleMessage(ctx, message(t, "e1", orders.EventOrderPlaced, t0,
		orders.OrderPlacedPayload{OrderID: 9, Status: orders.StatusPending})))
	assert.Equal(t, orders.StatusPending, store.entries[9].Status)

	require.NoError(t, p.HandleMessage(ctx, message(t, "e2", orders.EventOrderStatusChanged, t0.Add(time.Minute),
		orders.OrderStatusChangedPayload{OrderID: 9, From: orders.StatusPending, To: orders.StatusCancelled})))
	assert.Equal(t, orders.StatusCancelled, store.entries[9].Status)
	assert.True(t, store.entries[9].UpdatedAt.Equal(t0.Add(time.Minute)))
	assert.Equal(t, 2, store.sets)

	// redelivery is a no-op
	require.NoError(t, p.HandleMessage(ctx, message(t, "e2", orders.EventOrderStatusChanged, t0.Add(time.Minute),
		orders.OrderStatusChangedPayload{OrderID: 9, From: orders.StatusPending, To: orders.StatusCancelled})))
	assert.Equal(t, 2, store.sets)
}

func TestProjectorSkipsStaleEvents(t *testing.T) {
	ctx := context.Background()
	store := newFakeStatusStore()
	p := &StatusProjector{Cache: store, Service: "test"}
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, p.HandleMessage(ctx, message(t, "late", orders.EventOrderStatusChanged, t0.Add(time.Minute),
		orders.OrderStatusChangedPayload{OrderID: 1, From: orders.StatusPending, To: orders.StatusConfirmed})))
	require.NoError(t, p.HandleMessage(ctx, message(t, "early", orders.EventOrderPlaced, t0,
		orders.OrderPlacedPayload{OrderID: 1, Status: orders.StatusPending})))

	assert.Equal(t, orders.StatusConfirmed, store.entries[1].Status)
	assert.True(t, store.processed["test/early"])
}

func TestProjectorDropsUnknownAndPoisonMessages(t *testing.T) {
	ctx := context.Background()
	store := newFakeStatusStore()
	p := &StatusProjector{Cache: store, Service: "test"}

	assert.NoError(t, p.HandleMessage(ctx, kafkago.Message{Value: []byte("{")}))
	assert.NoError(t, p.HandleMessage(ctx, message(t, "x", "SomethingElse", time.Now(), map[string]int{"a": 1})))
	assert.Zero(t, store.sets)

	bad := message(t, "y", orders.EventOrderPlaced, time.Now(), "not an object")
	assert.NoError(t, p.HandleMessage(ctx, bad))
	assert.Zero(t, store.sets)
}

type failingStatusStore struct{ *fakeStatusStore }

func (failingStatusStore) SetStatus(context.Context, int64, redisx.StatusEntry) error {
	return errors.New("redis down")
}

func TestProjectorReportsCacheFailures(t *testing.T) {
	ctx := context.Background()
	store := failingStatusStore{newFakeStatusStore()}
	p := &StatusProjector{Cache: store, Service: "test"}

	err := p.HandleMessage(ctx, message(t, "z", orders.EventOrderPlaced, time.Now(),
		orders.OrderPlacedPayload{OrderID: 2, Status: orders.StatusPending}))
	assert.Error(t, err)
	assert.False(t, store.processed["test/z"], "unprojected event must stay eligible for retry")
}

func TestProjectorAppliesEventNewerThanReadThroughEntry(t *testing.T) {
	ctx := context.Background()
	store := newFakeStatusStore()
	p := &StatusProjector{Cache: store, Service: "test"}
	placedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	cancelAt := placedAt.Add(time.Millisecond)

	// a status read raced the cancel and cached the row as it was before
	store.entries[4] = redisx.StatusEntry{Status: orders.StatusPending, UpdatedAt: placedAt}

	require.NoError(t, p.HandleMessage(ctx, message(t, "c1", orders.EventOrderStatusChanged, cancelAt,
		orders.OrderStatusChangedPayload{OrderID: 4, From: orders.StatusPending, To: orders.StatusCancelled})))
	assert.Equal(t, orders.StatusCancelled, store.entries[4].Status)
	assert.True(t, store.entries[4].UpdatedAt.Equal(cancelAt))
}
