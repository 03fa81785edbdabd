package workflow

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EventType identifies a workflow execution event.
type EventType string

const (
	// EventWorkflowStarted is emitted when an execution transitions to running.
	EventWorkflowStarted EventType = "workflow.started"
	// EventWorkflowCompleted is emitted when every task completed.
	EventWorkflowCompleted EventType = "workflow.completed"
	// EventWorkflowFailed is emitted when the execution finalizes as failed.
	EventWorkflowFailed EventType = "workflow.failed"
	// EventWorkflowCancelled is emitted when the execution is cancelled.
	EventWorkflowCancelled EventType = "workflow.cancelled"
	// EventTaskReady is emitted when a task's dependencies are satisfied.
	EventTaskReady EventType = "task.ready"
	// EventTaskDispatched is emitted when a task is handed to its executor.
	EventTaskDispatched EventType = "task.dispatched"
	// EventTaskCompleted is emitted when a task finishes successfully.
	EventTaskCompleted EventType = "task.completed"
	// EventTaskRetrying is emitted when a failed task waits out its retry delay.
	EventTaskRetrying EventType = "task.retrying"
	// EventTaskFailed is emitted when a task exhausts its retry budget.
	EventTaskFailed EventType = "task.failed"
	// EventTaskSkipped is emitted when an upstream failure skips a task.
	EventTaskSkipped EventType = "task.skipped"
)

// Event carries information about a workflow execution transition.
type Event struct {
	Type        EventType `json:"type"`
	ExecutionID string    `json:"execution_id"`
	WorkflowID  string    `json:"workflow_id"`
	TaskID      string    `json:"task_id,omitempty"`
	// Attempt is the dispatch attempt number for task events.
	Attempt int `json:"attempt,omitempty"`
	// Error holds the error detail for failure events.
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// subscriber is one event channel with its type filter. An empty filter
// receives every event.
type subscriber struct {
	ch     chan Event
	filter map[EventType]struct{}
}

// EventBus fans execution events out to subscribers. Delivery is
// non-blocking: when a subscriber's buffer is full the event is dropped for
// that subscriber rather than stalling the scheduler.
type EventBus struct {
	mu      sync.RWMutex
	subs    map[int]*subscriber
	nextID  int
	buffer  int
	dropped atomic.Int64
	logger  *zap.Logger
}

// NewEventBus creates an event bus whose subscriber channels hold up to
// buffer events.
func NewEventBus(buffer int, logger *zap.Logger) *EventBus {
	if buffer <= 0 {
		buffer = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		subs:   make(map[int]*subscriber),
		buffer: buffer,
		logger: logger.With(zap.String("component", "event_bus")),
	}
}

// Subscribe registers a new subscriber for the given event types (all events
// when none are given). It returns the receive channel and an unsubscribe
// function that closes it.
func (b *EventBus) Subscribe(eventTypes ...EventType) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, b.buffer)}
	if len(eventTypes) > 0 {
		sub.filter = make(map[EventType]struct{}, len(eventTypes))
		for _, t := range eventTypes {
			sub.filter[t] = struct{}{}
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, unsubscribe
}

// Publish delivers an event to every matching subscriber without blocking.
func (b *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.filter != nil {
			if _, ok := sub.filter[event.Type]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- event:
		default:
			b.dropped.Add(1)
			b.logger.Debug("event dropped, subscriber buffer full",
				zap.String("type", string(event.Type)),
				zap.String("execution_id", event.ExecutionID),
			)
		}
	}
}

// Dropped returns the number of events dropped due to full subscriber buffers.
func (b *EventBus) Dropped() int64 {
	return b.dropped.Load()
}
