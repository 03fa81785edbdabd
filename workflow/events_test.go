package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventBus_PublishToAllSubscribers(t *testing.T) {
	t.Parallel()
	bus := NewEventBus(8, zap.NewNop())

	first, stopFirst := bus.Subscribe()
	defer stopFirst()
	second, stopSecond := bus.Subscribe()
	defer stopSecond()

	bus.Publish(Event{Type: EventTaskCompleted, ExecutionID: "exec-1", TaskID: "t"})

	for _, ch := range []<-chan Event{first, second} {
		ev := <-ch
		assert.Equal(t, EventTaskCompleted, ev.Type)
		assert.Equal(t, "exec-1", ev.ExecutionID)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestEventBus_FilterByType(t *testing.T) {
	t.Parallel()
	bus := NewEventBus(8, zap.NewNop())

	failures, stop := bus.Subscribe(EventTaskFailed, EventWorkflowFailed)
	defer stop()

	bus.Publish(Event{Type: EventTaskCompleted, ExecutionID: "exec-1"})
	bus.Publish(Event{Type: EventTaskFailed, ExecutionID: "exec-1", TaskID: "t"})

	ev := <-failures
	assert.Equal(t, EventTaskFailed, ev.Type)
	assert.Empty(t, failures)
}

func TestEventBus_Unsubscribe(t *testing.T) {
	t.Parallel()
	bus := NewEventBus(8, zap.NewNop())

	events, stop := bus.Subscribe()
	stop()
	// Idempotent.
	stop()

	bus.Publish(Event{Type: EventTaskReady, ExecutionID: "exec-1"})

	_, open := <-events
	assert.False(t, open)
}

func TestEventBus_DropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()
	bus := NewEventBus(1, zap.NewNop())

	events, stop := bus.Subscribe()
	defer stop()

	bus.Publish(Event{Type: EventTaskReady, ExecutionID: "exec-1", TaskID: "a"})
	bus.Publish(Event{Type: EventTaskReady, ExecutionID: "exec-1", TaskID: "b"})

	assert.Equal(t, int64(1), bus.Dropped())
	ev := <-events
	assert.Equal(t, "a", ev.TaskID)
}

func TestEventBus_PublishWithoutSubscribers(t *testing.T) {
	t.Parallel()
	bus := NewEventBus(8, zap.NewNop())

	require.NotPanics(t, func() {
		bus.Publish(Event{Type: EventWorkflowStarted, ExecutionID: "exec-1"})
	})
	assert.Zero(t, bus.Dropped())
}
