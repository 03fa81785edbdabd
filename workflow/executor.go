package workflow

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// TaskExecutor performs the actual framework-specific operation for a task.
// Implementations live outside the core (framework adapters) and are consumed
// only through this contract. Execute must honor ctx cancellation and
// deadlines; the engine does not forcibly terminate delegated work.
type TaskExecutor interface {
	Execute(ctx context.Context, framework, operation string, inputs map[string]any) (map[string]any, error)
}

// ExecutorFunc adapts a function to the TaskExecutor interface.
type ExecutorFunc func(ctx context.Context, framework, operation string, inputs map[string]any) (map[string]any, error)

// Execute implements TaskExecutor.
func (f ExecutorFunc) Execute(ctx context.Context, framework, operation string, inputs map[string]any) (map[string]any, error) {
	return f(ctx, framework, operation, inputs)
}

// ExecutorRegistry maps framework identifiers to their executors. Framework
// names are case-insensitive. An optional fallback executor serves frameworks
// with no dedicated registration.
type ExecutorRegistry struct {
	mu        sync.RWMutex
	executors map[string]TaskExecutor
	fallback  TaskExecutor
	logger    *zap.Logger
}

// NewExecutorRegistry creates an empty executor registry.
func NewExecutorRegistry(logger *zap.Logger) *ExecutorRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExecutorRegistry{
		executors: make(map[string]TaskExecutor),
		logger:    logger.With(zap.String("component", "executor_registry")),
	}
}

// Register binds an executor to a framework name, replacing any previous
// registration for that name.
func (r *ExecutorRegistry) Register(framework string, executor TaskExecutor) {
	name := strings.ToLower(framework)
	r.mu.Lock()
	r.executors[name] = executor
	r.mu.Unlock()
	r.logger.Info("executor registered", zap.String("framework", name))
}

// SetFallback sets the executor used for frameworks with no registration.
func (r *ExecutorRegistry) SetFallback(executor TaskExecutor) {
	r.mu.Lock()
	r.fallback = executor
	r.mu.Unlock()
}

// Lookup returns the executor for a framework name, falling back to the
// fallback executor when no dedicated one is registered.
func (r *ExecutorRegistry) Lookup(framework string) (TaskExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if executor, ok := r.executors[strings.ToLower(framework)]; ok {
		return executor, true
	}
	if r.fallback != nil {
		return r.fallback, true
	}
	return nil, false
}

// List returns the registered framework names in sorted order.
func (r *ExecutorRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
