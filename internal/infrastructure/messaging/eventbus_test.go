package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edu-hub/course-platform-core/internal/domain/shared"
)

type stubEvent struct {
	eventType shared.EventType
	aggregate string
}

func (e stubEvent) EventType() shared.EventType { return e.eventType }
func (e stubEvent) OccurredAt() time.Time       { return time.Now().UTC() }
func (e stubEvent) AggregateID() string         { return e.aggregate }

func (e stubEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"id": e.aggregate}
}

func newSyncBus(t *testing.T) *InMemoryEventBus {
	t.Helper()
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	bus := NewInMemoryEventBus(cfg)
	t.Cleanup(func() { _ = bus.Close() })
	return bus
}

func TestInMemoryEventBus_DeliversToTypeSubscribers(t *testing.T) {
	bus := newSyncBus(t)

	var got []string
	require.NoError(t, bus.Subscribe(shared.EventSectionUnlocked, func(e shared.Event) error {
		got = append(got, e.AggregateID())
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventPaymentApproved, func(e shared.Event) error {
		t.Fatal("wrong subscriber invoked")
		return nil
	}))

	require.NoError(t, bus.Publish(stubEvent{eventType: shared.EventSectionUnlocked, aggregate: "sec-1"}))
	assert.Equal(t, []string{"sec-1"}, got)
}

func TestInMemoryEventBus_SubscribeAllSeesEveryType(t *testing.T) {
	bus := newSyncBus(t)

	var types []shared.EventType
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		types = append(types, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(stubEvent{eventType: shared.EventSectionUnlocked, aggregate: "sec-1"}))
	require.NoError(t, bus.Publish(stubEvent{eventType: shared.EventCertificateGranted, aggregate: "cert-1"}))

	assert.Equal(t, []shared.EventType{shared.EventSectionUnlocked, shared.EventCertificateGranted}, types)
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := newSyncBus(t)

	calls := 0
	require.NoError(t, bus.Subscribe(shared.EventSectionUnlocked, func(shared.Event) error {
		calls++
		return errors.New("handler failed")
	}))
	require.NoError(t, bus.Subscribe(shared.EventSectionUnlocked, func(shared.Event) error {
		calls++
		return nil
	}))

	require.NoError(t, bus.Publish(stubEvent{eventType: shared.EventSectionUnlocked, aggregate: "sec-1"}))
	assert.Equal(t, 2, calls)

	snapshot := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snapshot.TotalPublished)
	assert.Equal(t, int64(2), snapshot.TotalHandlerExecs)
	assert.InDelta(t, 0.5, snapshot.HandlerSuccessRate, 0.001)
}

func TestInMemoryEventBus_RejectsAfterClose(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	bus := NewInMemoryEventBus(cfg)
	require.NoError(t, bus.Close())

	err := bus.Publish(stubEvent{eventType: shared.EventSectionUnlocked, aggregate: "sec-1"})
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventSectionUnlocked, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestInMemoryEventBus_NilGuards(t *testing.T) {
	bus := newSyncBus(t)

	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)
	assert.ErrorIs(t, bus.Subscribe(shared.EventSectionUnlocked, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.SubscribeAll(nil), ErrNilHandler)
}
