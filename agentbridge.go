// Package agentbridge provides a top-level convenience entry point for
// building and running cross-framework workflows.
//
// Usage:
//
//	import "github.com/TheKoma-X/AgentBridge"
//
//	registry := agentbridge.NewExecutorRegistry(logger)
//	registry.Register("langgraph", myExecutor)
//
//	engine := agentbridge.New(registry, agentbridge.WithMaxConcurrent(8))
//	defer engine.Close()
//
// This is a thin wrapper around the workflow package; both produce identical
// results. Use this package when you prefer the shorter import path.
package agentbridge

import (
	"github.com/TheKoma-X/AgentBridge/workflow"
)

// Engine drives workflow executions. See [workflow.Engine].
type Engine = workflow.Engine

// Option configures the engine created by [New].
type Option = workflow.Option

// TaskExecutor is the contract implemented by framework adapters.
type TaskExecutor = workflow.TaskExecutor

// ExecutorFunc adapts a function to the TaskExecutor interface.
type ExecutorFunc = workflow.ExecutorFunc

// ExecutorRegistry maps framework names to executors.
type ExecutorRegistry = workflow.ExecutorRegistry

// WorkflowDefinition is a registered graph of tasks.
type WorkflowDefinition = workflow.WorkflowDefinition

// TaskDefinition is a single unit of work within a workflow.
type TaskDefinition = workflow.TaskDefinition

// New creates a workflow execution engine dispatching through registry.
func New(registry *ExecutorRegistry, opts ...Option) *Engine {
	return workflow.NewEngine(registry, opts...)
}

// NewExecutorRegistry creates an empty executor registry.
var NewExecutorRegistry = workflow.NewExecutorRegistry

// NewBuilder creates a fluent workflow definition builder.
var NewBuilder = workflow.NewBuilder

// Re-export engine options so callers never need to import workflow/.

// WithLogger sets a custom zap logger.
var WithLogger = workflow.WithLogger

// WithConfig replaces the engine configuration.
var WithConfig = workflow.WithConfig

// WithMaxConcurrent bounds concurrent task dispatch.
var WithMaxConcurrent = workflow.WithMaxConcurrent

// WithMetrics attaches a metrics collector.
var WithMetrics = workflow.WithMetrics

// WithDispatchRate limits the task dispatch rate.
var WithDispatchRate = workflow.WithDispatchRate
