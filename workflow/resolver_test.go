package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheKoma-X/AgentBridge/types"
)

// defWithTasks builds a definition from (id, deps) pairs.
func defWithTasks(tasks ...*TaskDefinition) *WorkflowDefinition {
	return &WorkflowDefinition{
		ID:    "wf-test",
		Name:  "test workflow",
		Tasks: tasks,
	}
}

func task(id string, deps ...string) *TaskDefinition {
	return &TaskDefinition{
		ID:           id,
		Framework:    "mock",
		Operation:    "noop",
		Dependencies: deps,
	}
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestResolver_Validate_Valid(t *testing.T) {
	t.Parallel()
	r := NewDependencyResolver()
	def := defWithTasks(task("a"), task("b", "a"), task("c", "a", "b"))
	require.NoError(t, r.Validate(def))
}

func TestResolver_Validate_AssignsDefaultIDs(t *testing.T) {
	t.Parallel()
	r := NewDependencyResolver()
	def := defWithTasks(task(""), task(""), task("named"))
	require.NoError(t, r.Validate(def))
	assert.Equal(t, []string{"task_0", "task_1", "named"}, def.TaskIDs())
}

func TestResolver_Validate_NilDefinition(t *testing.T) {
	t.Parallel()
	err := NewDependencyResolver().Validate(nil)
	assert.True(t, types.IsDefinitionError(err))
}

func TestResolver_Validate_EmptyWorkflowID(t *testing.T) {
	t.Parallel()
	def := defWithTasks(task("a"))
	def.ID = ""
	err := NewDependencyResolver().Validate(def)
	assert.True(t, types.IsDefinitionError(err))
}

func TestResolver_Validate_DuplicateID(t *testing.T) {
	t.Parallel()
	def := defWithTasks(task("a"), task("a"))
	err := NewDependencyResolver().Validate(def)
	require.Error(t, err)
	assert.True(t, types.IsDefinitionError(err))
	assert.Contains(t, err.Error(), "duplicate task id")
	assert.Contains(t, err.Error(), "a")
}

func TestResolver_Validate_UnknownDependency(t *testing.T) {
	t.Parallel()
	def := defWithTasks(task("a"), task("b", "ghost"))
	err := NewDependencyResolver().Validate(def)
	require.Error(t, err)
	assert.True(t, types.IsDefinitionError(err))
	assert.Contains(t, err.Error(), `unknown dependency "ghost"`)
}

func TestResolver_Validate_SelfDependency(t *testing.T) {
	t.Parallel()
	def := defWithTasks(task("a", "a"))
	err := NewDependencyResolver().Validate(def)
	require.Error(t, err)
	assert.True(t, types.IsDefinitionError(err))
}

func TestResolver_Validate_Cycle(t *testing.T) {
	t.Parallel()
	def := defWithTasks(task("a", "c"), task("b", "a"), task("c", "b"))
	err := NewDependencyResolver().Validate(def)
	require.Error(t, err)
	assert.True(t, types.IsDefinitionError(err))
	assert.Contains(t, err.Error(), "cycle")
	// The reported cycle names tasks actually on it.
	assert.Contains(t, err.Error(), "a")
}

func TestResolver_Validate_CycleWithAcyclicPrefix(t *testing.T) {
	t.Parallel()
	// d and e form a cycle; a, b, c are fine.
	def := defWithTasks(task("a"), task("b", "a"), task("c", "b"),
		task("d", "e"), task("e", "d"))
	err := NewDependencyResolver().Validate(def)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "d")
	assert.Contains(t, err.Error(), "e")
	assert.NotContains(t, err.Error(), "cycle involving [a")
}

func TestResolver_Validate_NegativeRetryAttempts(t *testing.T) {
	t.Parallel()
	bad := task("a")
	bad.RetryAttempts = -1
	err := NewDependencyResolver().Validate(defWithTasks(bad))
	require.Error(t, err)
	assert.True(t, types.IsDefinitionError(err))
}

// ---------------------------------------------------------------------------
// InitialReadySet / NextReady
// ---------------------------------------------------------------------------

func TestResolver_InitialReadySet(t *testing.T) {
	t.Parallel()
	r := NewDependencyResolver()
	def := defWithTasks(task("a"), task("b"), task("c", "a", "b"), task("d", "c"))
	assert.ElementsMatch(t, []string{"a", "b"}, r.InitialReadySet(def))
}

func TestResolver_InitialReadySet_AllIndependent(t *testing.T) {
	t.Parallel()
	r := NewDependencyResolver()
	def := defWithTasks(task("a"), task("b"), task("c"))
	assert.ElementsMatch(t, []string{"a", "b", "c"}, r.InitialReadySet(def))
}

func TestResolver_NextReady(t *testing.T) {
	t.Parallel()
	r := NewDependencyResolver()
	def := defWithTasks(task("a"), task("b"), task("c", "a", "b"), task("d", "a"))

	statuses := map[string]TaskStatus{
		"a": TaskCompleted, "b": TaskRunning, "c": TaskPending, "d": TaskPending,
	}
	completed := map[string]struct{}{"a": {}}

	// Only d qualifies: c still waits on b.
	assert.ElementsMatch(t, []string{"d"}, r.NextReady(def, completed, statuses))

	statuses["b"] = TaskCompleted
	completed["b"] = struct{}{}
	assert.ElementsMatch(t, []string{"c", "d"}, r.NextReady(def, completed, statuses))
}

func TestResolver_NextReady_SkipsNonPending(t *testing.T) {
	t.Parallel()
	r := NewDependencyResolver()
	def := defWithTasks(task("a"), task("b", "a"))

	completed := map[string]struct{}{"a": {}}
	statuses := map[string]TaskStatus{"a": TaskCompleted, "b": TaskReady}
	assert.Empty(t, r.NextReady(def, completed, statuses))

	statuses["b"] = TaskSkipped
	assert.Empty(t, r.NextReady(def, completed, statuses))
}
