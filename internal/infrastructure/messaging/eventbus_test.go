package messaging

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/gradebook/internal/domain/shared"
)

type testEvent struct {
	shared.BaseEvent
}

func (testEvent) Payload() map[string]interface{} { return nil }

func newTestBus() *InMemoryEventBus {
	return NewInMemoryEventBus(InMemoryEventBusConfig{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		EnableMetrics: true,
	})
}

func TestInMemoryEventBus_SyncOrder(t *testing.T) {
	bus := newTestBus()
	var calls []string

	require.NoError(t, bus.Subscribe(shared.EventStudentAdded, func(shared.Event) error {
		calls = append(calls, "first")
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventStudentAdded, func(shared.Event) error {
		calls = append(calls, "second")
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(e shared.Event) error {
		calls = append(calls, "level:"+e.AggregateID())
		return nil
	}))

	require.NoError(t, bus.Publish(testEvent{shared.NewBaseEvent(shared.EventStudentAdded, "s1")}))
	assert.Equal(t, []string{"first", "second"}, calls)

	calls = nil
	require.NoError(t, bus.Publish(testEvent{shared.NewBaseEvent(shared.EventLevelUp, "s1")}))
	assert.Equal(t, []string{"level:s1"}, calls)
}

func TestInMemoryEventBus_FailuresDoNotPropagate(t *testing.T) {
	bus := newTestBus()
	reached := false

	require.NoError(t, bus.Subscribe(shared.EventXPChanged, func(shared.Event) error {
		return errors.New("redis down")
	}))
	require.NoError(t, bus.Subscribe(shared.EventXPChanged, func(shared.Event) error {
		panic("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventXPChanged, func(shared.Event) error {
		reached = true
		return nil
	}))

	err := bus.Publish(testEvent{shared.NewBaseEvent(shared.EventXPChanged, "s1")})
	require.NoError(t, err)
	assert.True(t, reached)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalPublished)
	assert.Equal(t, int64(3), snap.TotalHandlerExecs)
	assert.Equal(t, int64(2), snap.HandlerFailures)
}

func TestInMemoryEventBus_Closed(t *testing.T) {
	bus := newTestBus()
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(testEvent{shared.NewBaseEvent(shared.EventStudentRemoved, "s1")}), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventStudentRemoved, func(shared.Event) error { return nil }), ErrEventBusClosed)
	assert.Error(t, bus.Publish(nil))
}

func TestRecoveryMiddleware(t *testing.T) {
	mw := RecoveryMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := mw(func(shared.Event) error { panic("x") })

	err := h(testEvent{shared.NewBaseEvent(shared.EventLevelUp, "s1")})
	assert.ErrorIs(t, err, ErrHandlerPanic)
}
