package workflow

import (
	"time"
)

// Builder provides a fluent API for constructing workflow definitions.
// Tasks added without an explicit id are assigned task_{index} from their
// declaration position at validation time.
type Builder struct {
	def *WorkflowDefinition
}

// NewBuilder creates a workflow builder.
func NewBuilder(workflowID, name string) *Builder {
	return &Builder{
		def: &WorkflowDefinition{
			ID:        workflowID,
			Name:      name,
			Variables: make(map[string]any),
			Metadata:  make(map[string]any),
		},
	}
}

// Description sets the workflow description.
func (b *Builder) Description(desc string) *Builder {
	b.def.Description = desc
	return b
}

// Variable declares a default workflow variable.
func (b *Builder) Variable(name string, value any) *Builder {
	b.def.Variables[name] = value
	return b
}

// Metadata sets a workflow metadata entry.
func (b *Builder) Metadata(key string, value any) *Builder {
	b.def.Metadata[key] = value
	return b
}

// Task adds a task with an explicit id and returns a TaskBuilder for
// configuring it.
func (b *Builder) Task(id, framework, operation string) *TaskBuilder {
	task := &TaskDefinition{
		ID:        id,
		Framework: framework,
		Operation: operation,
		Inputs:    make(map[string]any),
	}
	b.def.Tasks = append(b.def.Tasks, task)
	return &TaskBuilder{task: task, parent: b}
}

// AddTask adds a task with a defaulted id (task_{index}).
func (b *Builder) AddTask(framework, operation string) *TaskBuilder {
	return b.Task("", framework, operation)
}

// Build validates the assembled definition and returns it. The returned
// definition is ready for registration and must not be mutated afterwards.
func (b *Builder) Build() (*WorkflowDefinition, error) {
	resolver := NewDependencyResolver()
	if err := resolver.Validate(b.def); err != nil {
		return nil, err
	}
	return b.def, nil
}

// TaskBuilder configures a single task within a Builder.
type TaskBuilder struct {
	task   *TaskDefinition
	parent *Builder
}

// Input sets one input parameter; the value may be a literal or a ${...}
// template string.
func (t *TaskBuilder) Input(name string, value any) *TaskBuilder {
	t.task.Inputs[name] = value
	return t
}

// Inputs merges a map of input parameters.
func (t *TaskBuilder) Inputs(inputs map[string]any) *TaskBuilder {
	for k, v := range inputs {
		t.task.Inputs[k] = v
	}
	return t
}

// Outputs declares the output names the task produces.
func (t *TaskBuilder) Outputs(names ...string) *TaskBuilder {
	t.task.Outputs = append(t.task.Outputs, names...)
	return t
}

// DependsOn declares dependencies on other task ids.
func (t *TaskBuilder) DependsOn(taskIDs ...string) *TaskBuilder {
	t.task.Dependencies = append(t.task.Dependencies, taskIDs...)
	return t
}

// Retry configures the retry policy: attempts additional dispatches after the
// first failure, spaced by delay.
func (t *TaskBuilder) Retry(attempts int, delay time.Duration) *TaskBuilder {
	t.task.RetryAttempts = attempts
	t.task.RetryDelay = delay
	return t
}

// Timeout bounds a single executor call.
func (t *TaskBuilder) Timeout(d time.Duration) *TaskBuilder {
	t.task.Timeout = d
	return t
}

// Done returns to the workflow builder.
func (t *TaskBuilder) Done() *Builder {
	return t.parent
}
