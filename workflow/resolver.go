package workflow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TheKoma-X/AgentBridge/types"
)

// DependencyResolver validates workflow task graphs and answers incremental
// readiness queries during execution. It is stateless; all methods are safe
// for concurrent use.
type DependencyResolver struct{}

// NewDependencyResolver creates a dependency resolver.
func NewDependencyResolver() *DependencyResolver {
	return &DependencyResolver{}
}

// Validate checks a workflow definition's task graph. Tasks without an id are
// assigned task_{index} from their declaration position. Validate fails with a
// DEFINITION_ERROR on duplicate ids, dependencies referencing nonexistent
// tasks, or cycles.
func (r *DependencyResolver) Validate(def *WorkflowDefinition) error {
	if def == nil {
		return types.NewDefinitionError("definition is nil")
	}
	if def.ID == "" {
		return types.NewDefinitionError("workflow id is empty")
	}

	seen := make(map[string]struct{}, len(def.Tasks))
	for i, task := range def.Tasks {
		if task.ID == "" {
			task.ID = fmt.Sprintf("task_%d", i)
		}
		if _, dup := seen[task.ID]; dup {
			return types.NewDefinitionError("duplicate task id").WithTask(task.ID)
		}
		seen[task.ID] = struct{}{}
		if task.RetryAttempts < 0 {
			return types.NewDefinitionError("negative retry_attempts").WithTask(task.ID)
		}
	}

	for _, task := range def.Tasks {
		for _, dep := range task.Dependencies {
			if _, ok := seen[dep]; !ok {
				return types.NewDefinitionError(
					fmt.Sprintf("unknown dependency %q", dep)).WithTask(task.ID)
			}
			if dep == task.ID {
				return types.NewDefinitionError("task depends on itself").WithTask(task.ID)
			}
		}
	}

	if cycle := r.findCycle(def); len(cycle) > 0 {
		return types.NewDefinitionError(
			fmt.Sprintf("dependency cycle involving [%s]", strings.Join(cycle, ", "))).
			WithTask(cycle[0])
	}

	return nil
}

// findCycle runs Kahn's algorithm over the dependency graph and returns the
// task ids left unresolved once every task with satisfied in-degree has been
// removed. An empty result means the graph is acyclic.
func (r *DependencyResolver) findCycle(def *WorkflowDefinition) []string {
	inDegree := make(map[string]int, len(def.Tasks))
	for _, task := range def.Tasks {
		inDegree[task.ID] = len(task.Dependencies)
	}
	dependents := def.dependents()

	queue := make([]string, 0, len(def.Tasks))
	for _, task := range def.Tasks {
		if inDegree[task.ID] == 0 {
			queue = append(queue, task.ID)
		}
	}

	resolved := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		resolved++
		for _, dep := range dependents[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if resolved == len(def.Tasks) {
		return nil
	}

	remaining := make([]string, 0, len(def.Tasks)-resolved)
	for id, deg := range inDegree {
		if deg > 0 {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)
	return remaining
}

// InitialReadySet returns the ids of all tasks with no dependencies.
func (r *DependencyResolver) InitialReadySet(def *WorkflowDefinition) []string {
	ready := make([]string, 0, len(def.Tasks))
	for _, task := range def.Tasks {
		if len(task.Dependencies) == 0 {
			ready = append(ready, task.ID)
		}
	}
	return ready
}

// NextReady returns every task whose dependencies are all contained in
// completed and whose own status is still pending. It is called reactively
// after each task completion.
func (r *DependencyResolver) NextReady(def *WorkflowDefinition, completed map[string]struct{}, statuses map[string]TaskStatus) []string {
	ready := make([]string, 0, len(def.Tasks))
	for _, task := range def.Tasks {
		if statuses[task.ID] != TaskPending {
			continue
		}
		satisfied := true
		for _, dep := range task.Dependencies {
			if _, ok := completed[dep]; !ok {
				satisfied = false
				break
			}
		}
		if satisfied {
			ready = append(ready, task.ID)
		}
	}
	return ready
}
