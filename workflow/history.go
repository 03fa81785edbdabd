package workflow

import (
	"sync"
	"time"
)

// TaskAttempt records one dispatch attempt of a task.
type TaskAttempt struct {
	TaskID    string        `json:"task_id"`
	Framework string        `json:"framework"`
	Operation string        `json:"operation"`
	Attempt   int           `json:"attempt"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Status    TaskStatus    `json:"status"`
	Error     string        `json:"error,omitempty"`
}

// ExecutionRecord records the complete attempt history of one workflow
// execution.
type ExecutionRecord struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	Duration    time.Duration  `json:"duration"`
	Status      WorkflowStatus `json:"status"`
	Attempts    []*TaskAttempt `json:"attempts"`
	Error       string         `json:"error,omitempty"`
}

// HistoryStore keeps execution records in memory, bounded by a retention
// count. The oldest record is evicted once capacity is exceeded. Records are
// a diagnostic trail only; the store is not a durable persistence layer.
type HistoryStore struct {
	mu       sync.RWMutex
	capacity int
	order    []string
	records  map[string]*ExecutionRecord
}

// DefaultHistoryCapacity bounds the history store when no capacity is given.
const DefaultHistoryCapacity = 256

// NewHistoryStore creates a history store retaining up to capacity records.
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryStore{
		capacity: capacity,
		records:  make(map[string]*ExecutionRecord),
	}
}

// Begin opens a record for a newly started execution.
func (s *HistoryStore) Begin(executionID, workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[executionID]; exists {
		return
	}
	s.records[executionID] = &ExecutionRecord{
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		StartTime:   time.Now(),
		Status:      WorkflowRunning,
	}
	s.order = append(s.order, executionID)
	for len(s.order) > s.capacity {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.records, evicted)
	}
}

// RecordAttempt appends one finished dispatch attempt to an execution record.
func (s *HistoryStore) RecordAttempt(executionID string, attempt *TaskAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[executionID]
	if !ok {
		return
	}
	attempt.Duration = attempt.EndTime.Sub(attempt.StartTime)
	record.Attempts = append(record.Attempts, attempt)
}

// Finish closes an execution record with its terminal status.
func (s *HistoryStore) Finish(executionID string, status WorkflowStatus, errDetail string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[executionID]
	if !ok {
		return
	}
	record.EndTime = time.Now()
	record.Duration = record.EndTime.Sub(record.StartTime)
	record.Status = status
	record.Error = errDetail
}

// Get returns the record for an execution id.
func (s *HistoryStore) Get(executionID string) (*ExecutionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[executionID]
	return record, ok
}

// List returns all retained records, oldest first.
func (s *HistoryStore) List() []*ExecutionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ExecutionRecord, 0, len(s.order))
	for _, id := range s.order {
		if record, ok := s.records[id]; ok {
			out = append(out, record)
		}
	}
	return out
}

// Len returns the number of retained records.
func (s *HistoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
