// Package workflow implements the AgentBridge workflow core: a dependency
// graph of tasks scheduled across heterogeneous execution frameworks.
//
// A WorkflowDefinition declares tasks with inputs, outputs, dependencies, and
// retry policy. The Engine registers definitions (validated by the
// DependencyResolver), creates one execution per ExecuteWorkflow call, and
// drives each task from pending through ready, running, and a terminal state.
// Data flows between tasks through ${...} template references resolved by the
// VariableResolver against the execution's variable store.
//
// Executions run asynchronously. A task failure skips its transitive
// dependents but never aborts independent branches; callers observe progress
// through GetStatus, GetResult, the event bus, and the execution history.
package workflow
