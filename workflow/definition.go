package workflow

import (
	"time"
)

// WorkflowStatus represents the status of a workflow execution.
type WorkflowStatus string

const (
	// WorkflowPending indicates the execution has been created but not started.
	WorkflowPending WorkflowStatus = "pending"
	// WorkflowRunning indicates the execution is in progress.
	WorkflowRunning WorkflowStatus = "running"
	// WorkflowCompleted indicates every task completed successfully.
	WorkflowCompleted WorkflowStatus = "completed"
	// WorkflowFailed indicates at least one task failed and no work remains.
	WorkflowFailed WorkflowStatus = "failed"
	// WorkflowCancelled indicates the execution was cancelled by request.
	WorkflowCancelled WorkflowStatus = "cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s WorkflowStatus) Terminal() bool {
	return s == WorkflowCompleted || s == WorkflowFailed || s == WorkflowCancelled
}

// TaskStatus represents the status of a single task within an execution.
type TaskStatus string

const (
	// TaskPending indicates the task is waiting on unmet dependencies.
	TaskPending TaskStatus = "pending"
	// TaskReady indicates all dependencies completed and the task is eligible
	// for dispatch.
	TaskReady TaskStatus = "ready"
	// TaskRunning indicates the task has been dispatched to its executor.
	TaskRunning TaskStatus = "running"
	// TaskRetrying indicates the task failed and is waiting out its retry delay.
	TaskRetrying TaskStatus = "retrying"
	// TaskCompleted indicates the task finished successfully.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed indicates the task exhausted its retry budget.
	TaskFailed TaskStatus = "failed"
	// TaskSkipped indicates an upstream dependency failed.
	TaskSkipped TaskStatus = "skipped"
	// TaskCancelled indicates the owning execution was cancelled.
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskFailed, TaskSkipped, TaskCancelled:
		return true
	}
	return false
}

// TaskDefinition describes a single unit of work targeting one framework
// operation, with declared inputs, outputs, and dependencies.
type TaskDefinition struct {
	// ID uniquely identifies the task within its workflow. When empty it is
	// assigned as task_{index} at validation time.
	ID string `json:"id" yaml:"id"`
	// Framework identifies the target executor.
	Framework string `json:"framework" yaml:"framework"`
	// Operation names the operation the executor should perform.
	Operation string `json:"operation" yaml:"operation"`
	// Inputs maps parameter names to literal values or ${...} template strings.
	Inputs map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	// Outputs lists the output names the task is declared to produce.
	Outputs []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	// Dependencies lists task ids that must complete before this task runs.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// RetryAttempts is the number of additional dispatch attempts after the
	// first failure. Zero means no retries.
	RetryAttempts int `json:"retry_attempts,omitempty" yaml:"retry_attempts,omitempty"`
	// RetryDelay is the wait between consecutive attempts.
	RetryDelay time.Duration `json:"-" yaml:"-"`
	// Timeout bounds a single executor call. Zero means no timeout.
	Timeout time.Duration `json:"-" yaml:"-"`
}

// WorkflowDefinition is a named, registered graph of tasks plus default
// variables. Definitions are frozen at registration and must not be mutated
// afterwards.
type WorkflowDefinition struct {
	// ID uniquely identifies the workflow in the registry.
	ID string `json:"id" yaml:"id"`
	// Name is a human-readable workflow name.
	Name string `json:"name" yaml:"name"`
	// Description describes the workflow.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Tasks holds the task definitions in declaration order. Order is used
	// only for default id assignment, never for execution order.
	Tasks []*TaskDefinition `json:"tasks" yaml:"tasks"`
	// Variables declares default workflow variables, overridable per execution.
	Variables map[string]any `json:"variables,omitempty" yaml:"variables,omitempty"`
	// Metadata stores free-form workflow information.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Task retrieves a task definition by id.
func (d *WorkflowDefinition) Task(id string) (*TaskDefinition, bool) {
	for _, t := range d.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// TaskIDs returns the task ids in declaration order.
func (d *WorkflowDefinition) TaskIDs() []string {
	ids := make([]string, 0, len(d.Tasks))
	for _, t := range d.Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

// dependents builds the reverse adjacency of the dependency graph:
// dependents[id] lists the ids of tasks that depend on id.
func (d *WorkflowDefinition) dependents() map[string][]string {
	rev := make(map[string][]string, len(d.Tasks))
	for _, t := range d.Tasks {
		for _, dep := range t.Dependencies {
			rev[dep] = append(rev[dep], t.ID)
		}
	}
	return rev
}

// TaskSnapshot is a read-only view of a task's execution state.
type TaskSnapshot struct {
	TaskID string `json:"task_id"`
	// Status is the task state at snapshot time.
	Status TaskStatus `json:"status"`
	// Attempts counts dispatches so far.
	Attempts int `json:"attempts"`
	// Error holds the last recorded error detail, if any.
	Error string `json:"error,omitempty"`
	// SkippedBy names the failed task that caused this task to be skipped.
	SkippedBy string    `json:"skipped_by,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}

// ExecutionSnapshot is a read-only view of a workflow execution returned by
// status queries. The engine never hands out its internal mutable state.
type ExecutionSnapshot struct {
	ExecutionID string                  `json:"execution_id"`
	WorkflowID  string                  `json:"workflow_id"`
	Status      WorkflowStatus          `json:"status"`
	Tasks       map[string]TaskSnapshot `json:"tasks"`
	// Error holds the failure detail when Status is failed.
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
}
