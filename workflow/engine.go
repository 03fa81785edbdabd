package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/TheKoma-X/AgentBridge/internal/metrics"
	"github.com/TheKoma-X/AgentBridge/types"
)

// EngineConfig configures the execution engine.
type EngineConfig struct {
	// MaxConcurrent bounds the number of tasks dispatched to executors at
	// once across all executions. Zero means unbounded.
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent"`
	// EventBuffer is the per-subscriber event channel capacity.
	EventBuffer int `json:"event_buffer" yaml:"event_buffer"`
	// HistoryCapacity bounds the in-memory execution history store.
	HistoryCapacity int `json:"history_capacity" yaml:"history_capacity"`
}

// DefaultEngineConfig returns sensible defaults.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxConcurrent:   0,
		EventBuffer:     64,
		HistoryCapacity: DefaultHistoryCapacity,
	}
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithConfig replaces the engine configuration.
func WithConfig(cfg EngineConfig) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithMaxConcurrent bounds concurrent task dispatch. Zero means unbounded.
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) { e.cfg.MaxConcurrent = n }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(collector *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = collector }
}

// WithDispatchRate limits the rate at which tasks are handed to executors,
// protecting downstream framework endpoints.
func WithDispatchRate(limit rate.Limit, burst int) Option {
	return func(e *Engine) { e.limiter = rate.NewLimiter(limit, burst) }
}

// Engine drives workflow executions from pending to a terminal status. It
// owns the workflow registry, the per-execution state machines, dispatch,
// retries, failure isolation, and cancellation. All shared state is mutated
// only by the engine; callers read through the query methods.
type Engine struct {
	logger    *zap.Logger
	registry  *ExecutorRegistry
	resolver  *DependencyResolver
	variables *VariableResolver
	cfg       EngineConfig
	sem       *semaphore.Weighted
	limiter   *rate.Limiter
	metrics   *metrics.Collector
	bus       *EventBus
	history   *HistoryStore
	tracer    trace.Tracer

	mu         sync.RWMutex
	workflows  map[string]*WorkflowDefinition
	executions map[string]*execution
	closed     bool

	baseCtx context.Context
	cancel  context.CancelFunc
}

// taskState tracks one task within a running execution. It is guarded by the
// owning execution's mutex.
type taskState struct {
	def       *TaskDefinition
	status    TaskStatus
	attempts  int
	err       string
	skippedBy string
	startedAt time.Time
	endedAt   time.Time
}

// execution is the engine-private state of one workflow execution. Every
// transition happens inside one critical section on mu; the only suspension
// points are the executor call and the retry delay, both outside the lock.
type execution struct {
	id     string
	def    *WorkflowDefinition
	ctx    context.Context
	cancel context.CancelFunc
	span   trace.Span

	mu        sync.Mutex
	status    WorkflowStatus
	vars      map[string]any
	outputs   map[string]struct{}
	tasks     map[string]*taskState
	completed map[string]struct{}
	errDetail string
	startedAt time.Time
	endedAt   time.Time
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewEngine creates an execution engine dispatching tasks through the given
// executor registry. A nil registry gets an empty one; executors can be
// registered later through Executors().
func NewEngine(registry *ExecutorRegistry, opts ...Option) *Engine {
	e := &Engine{
		logger:     zap.NewNop(),
		registry:   registry,
		resolver:   NewDependencyResolver(),
		variables:  NewVariableResolver(),
		cfg:        DefaultEngineConfig(),
		workflows:  make(map[string]*WorkflowDefinition),
		executions: make(map[string]*execution),
		tracer:     otel.Tracer("agentbridge/workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "workflow_engine"))
	if e.registry == nil {
		e.registry = NewExecutorRegistry(e.logger)
	}
	if e.cfg.MaxConcurrent > 0 {
		e.sem = semaphore.NewWeighted(int64(e.cfg.MaxConcurrent))
	}
	e.bus = NewEventBus(e.cfg.EventBuffer, e.logger)
	e.history = NewHistoryStore(e.cfg.HistoryCapacity)
	e.baseCtx, e.cancel = context.WithCancel(context.Background())
	return e
}

// Executors returns the engine's executor registry.
func (e *Engine) Executors() *ExecutorRegistry { return e.registry }

// Events returns the engine's event bus for subscriptions.
func (e *Engine) Events() *EventBus { return e.bus }

// History returns the in-memory execution history store.
func (e *Engine) History() *HistoryStore { return e.history }

// RegisterWorkflow validates and stores a workflow definition. It fails with
// a DEFINITION_ERROR on duplicate task ids, unknown dependencies, or cycles,
// and leaves the registry unchanged on failure. Re-registration of an
// existing workflow id is rejected; use ReplaceWorkflow to overwrite.
func (e *Engine) RegisterWorkflow(def *WorkflowDefinition) error {
	if err := e.resolver.Validate(def); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.workflows[def.ID]; exists {
		return types.NewDefinitionError(fmt.Sprintf("workflow already registered: %s", def.ID))
	}
	e.workflows[def.ID] = def
	e.logger.Info("workflow registered",
		zap.String("workflow_id", def.ID),
		zap.String("name", def.Name),
		zap.Int("tasks", len(def.Tasks)),
	)
	return nil
}

// ReplaceWorkflow validates and stores a workflow definition, overwriting any
// existing registration with the same id.
func (e *Engine) ReplaceWorkflow(def *WorkflowDefinition) error {
	if err := e.resolver.Validate(def); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.workflows[def.ID] = def
	e.logger.Info("workflow replaced", zap.String("workflow_id", def.ID))
	return nil
}

// Workflow retrieves a registered workflow definition by id.
func (e *Engine) Workflow(workflowID string) (*WorkflowDefinition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	def, ok := e.workflows[workflowID]
	return def, ok
}

// ExecuteWorkflow starts a new execution of a registered workflow with the
// given input variables and returns its execution id. The execution runs
// asynchronously; runtime failures are observed through GetStatus/GetResult,
// never returned here. It fails with NOT_FOUND for an unregistered workflow.
func (e *Engine) ExecuteWorkflow(ctx context.Context, workflowID string, inputs map[string]any) (string, error) {
	e.mu.RLock()
	def, ok := e.workflows[workflowID]
	closed := e.closed
	e.mu.RUnlock()
	if !ok {
		return "", types.NewNotFoundError("workflow", workflowID)
	}
	if closed {
		return "", types.NewError(types.ErrCancelled, "engine is closed")
	}

	ex := &execution{
		id:        uuid.NewString(),
		def:       def,
		status:    WorkflowPending,
		vars:      make(map[string]any, len(def.Variables)+len(inputs)),
		outputs:   make(map[string]struct{}),
		tasks:     make(map[string]*taskState, len(def.Tasks)),
		completed: make(map[string]struct{}),
		done:      make(chan struct{}),
	}
	for k, v := range def.Variables {
		ex.vars[k] = v
	}
	for k, v := range inputs {
		ex.vars[k] = v
	}
	for _, t := range def.Tasks {
		ex.tasks[t.ID] = &taskState{def: t, status: TaskPending}
	}

	runCtx, cancel := context.WithCancel(e.baseCtx)
	runCtx, span := e.tracer.Start(runCtx, "workflow.execute",
		trace.WithAttributes(
			attribute.String("workflow.id", def.ID),
			attribute.String("execution.id", ex.id),
		),
	)
	ex.ctx = runCtx
	ex.cancel = cancel
	ex.span = span

	e.mu.Lock()
	e.executions[ex.id] = ex
	e.mu.Unlock()

	e.history.Begin(ex.id, def.ID)
	e.metrics.ExecutionStarted()

	ex.mu.Lock()
	ex.status = WorkflowRunning
	ex.startedAt = time.Now()
	ready := e.resolver.InitialReadySet(def)
	for _, id := range ready {
		ex.tasks[id].status = TaskReady
	}
	finalized, finalStatus := e.finalizeLocked(ex)
	ex.mu.Unlock()

	e.logger.Info("execution started",
		zap.String("execution_id", ex.id),
		zap.String("workflow_id", def.ID),
		zap.Int("initial_ready", len(ready)),
	)
	e.bus.Publish(Event{Type: EventWorkflowStarted, ExecutionID: ex.id, WorkflowID: def.ID})
	for _, id := range ready {
		e.bus.Publish(Event{Type: EventTaskReady, ExecutionID: ex.id, WorkflowID: def.ID, TaskID: id})
	}

	if finalized {
		// Definition with no tasks completes immediately.
		e.finishExecution(ex, finalStatus)
		return ex.id, nil
	}
	for _, id := range ready {
		task := ex.tasks[id].def
		ex.wg.Add(1)
		go e.runTask(ex, task)
	}
	return ex.id, nil
}

// GetStatus returns a snapshot of an execution and its per-task states. It
// fails with NOT_FOUND for an unknown execution id.
func (e *Engine) GetStatus(executionID string) (ExecutionSnapshot, error) {
	ex, err := e.execution(executionID)
	if err != nil {
		return ExecutionSnapshot{}, err
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()
	snap := ExecutionSnapshot{
		ExecutionID: ex.id,
		WorkflowID:  ex.def.ID,
		Status:      ex.status,
		Tasks:       make(map[string]TaskSnapshot, len(ex.tasks)),
		Error:       ex.errDetail,
		StartedAt:   ex.startedAt,
		EndedAt:     ex.endedAt,
	}
	for id, st := range ex.tasks {
		snap.Tasks[id] = TaskSnapshot{
			TaskID:    id,
			Status:    st.status,
			Attempts:  st.attempts,
			Error:     st.err,
			SkippedBy: st.skippedBy,
			StartedAt: st.startedAt,
			EndedAt:   st.endedAt,
		}
	}
	return snap, nil
}

// GetResult returns the accumulated task outputs of an execution, keyed as
// "task_id.output_name". It works on running executions too, exposing partial
// results; combine with GetStatus to know completeness. It fails with
// NOT_FOUND for an unknown execution id.
func (e *Engine) GetResult(executionID string) (map[string]any, error) {
	ex, err := e.execution(executionID)
	if err != nil {
		return nil, err
	}

	ex.mu.Lock()
	defer ex.mu.Unlock()
	result := make(map[string]any, len(ex.outputs))
	for key := range ex.outputs {
		result[key] = ex.vars[key]
	}
	return result, nil
}

// Cancel requests cooperative cancellation of an execution: scheduling stops,
// in-flight executor calls receive a context cancellation, and every
// non-terminal task moves to cancelled. It is a no-op on terminal executions
// and fails with NOT_FOUND for an unknown execution id.
func (e *Engine) Cancel(executionID string) error {
	ex, err := e.execution(executionID)
	if err != nil {
		return err
	}

	ex.mu.Lock()
	if ex.status.Terminal() {
		ex.mu.Unlock()
		return nil
	}
	ex.cancel()
	now := time.Now()
	for _, st := range ex.tasks {
		if !st.status.Terminal() {
			st.status = TaskCancelled
			st.endedAt = now
		}
	}
	ex.status = WorkflowCancelled
	ex.endedAt = now
	close(ex.done)
	ex.mu.Unlock()

	e.logger.Info("execution cancelled", zap.String("execution_id", ex.id))
	e.finishExecution(ex, WorkflowCancelled)
	return nil
}

// Wait blocks until the execution reaches a terminal status or ctx is done,
// returning the terminal status.
func (e *Engine) Wait(ctx context.Context, executionID string) (WorkflowStatus, error) {
	ex, err := e.execution(executionID)
	if err != nil {
		return "", err
	}
	select {
	case <-ex.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.status, nil
}

// Close cancels every running execution and stops the engine. Further
// ExecuteWorkflow calls are rejected.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	active := make([]*execution, 0, len(e.executions))
	for _, ex := range e.executions {
		active = append(active, ex)
	}
	e.mu.Unlock()

	for _, ex := range active {
		_ = e.Cancel(ex.id)
	}
	e.cancel()
	for _, ex := range active {
		ex.wg.Wait()
	}
	e.logger.Info("engine closed")
}

func (e *Engine) execution(executionID string) (*execution, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ex, ok := e.executions[executionID]
	if !ok {
		return nil, types.NewNotFoundError("execution", executionID)
	}
	return ex, nil
}

// runTask drives one dispatch attempt of a ready task: resolve inputs, call
// the executor, then route the completion event back into the state machine.
func (e *Engine) runTask(ex *execution, t *TaskDefinition) {
	defer ex.wg.Done()

	if e.limiter != nil {
		if err := e.limiter.Wait(ex.ctx); err != nil {
			return
		}
	}
	if e.sem != nil {
		if err := e.sem.Acquire(ex.ctx, 1); err != nil {
			return
		}
		defer e.sem.Release(1)
	}

	ex.mu.Lock()
	st := ex.tasks[t.ID]
	if ex.status != WorkflowRunning || st.status != TaskReady {
		ex.mu.Unlock()
		return
	}
	st.status = TaskRunning

	// Resolve inputs before the attempt is counted. The store only grows
	// from dependencies that already completed, so a reference that fails
	// here can never succeed later; the task fails without a dispatch.
	resolved, resolveErr := e.variables.ResolveInputs(t.Inputs, ex.vars)
	if resolveErr != nil {
		ex.mu.Unlock()
		if terr, ok := resolveErr.(*types.Error); ok && terr.TaskID == "" {
			terr.WithTask(t.ID)
		}
		e.handleTaskFailure(ex, t, resolveErr)
		return
	}

	st.attempts++
	attempt := st.attempts
	if st.startedAt.IsZero() {
		st.startedAt = time.Now()
	}
	ex.mu.Unlock()

	e.logger.Debug("task dispatched",
		zap.String("execution_id", ex.id),
		zap.String("task_id", t.ID),
		zap.String("framework", t.Framework),
		zap.String("operation", t.Operation),
		zap.Int("attempt", attempt),
	)
	e.bus.Publish(Event{Type: EventTaskDispatched, ExecutionID: ex.id, WorkflowID: ex.def.ID, TaskID: t.ID, Attempt: attempt})
	e.metrics.TaskDispatched()

	start := time.Now()
	outputs, err := e.invoke(ex, t, resolved)
	elapsed := time.Since(start)

	record := &TaskAttempt{
		TaskID:    t.ID,
		Framework: t.Framework,
		Operation: t.Operation,
		Attempt:   attempt,
		StartTime: start,
		EndTime:   start.Add(elapsed),
		Status:    TaskCompleted,
	}
	if err != nil {
		record.Status = TaskFailed
		record.Error = err.Error()
	}
	e.history.RecordAttempt(ex.id, record)

	if err != nil {
		e.metrics.TaskFinished(t.Framework, t.Operation, "error", elapsed)
		e.handleTaskFailure(ex, t, err)
		return
	}
	e.metrics.TaskFinished(t.Framework, t.Operation, "ok", elapsed)
	e.handleTaskSuccess(ex, t, outputs)
}

// invoke calls the external executor with the task's resolved inputs,
// bounded by the task timeout when set.
func (e *Engine) invoke(ex *execution, t *TaskDefinition, resolved map[string]any) (map[string]any, error) {
	executor, ok := e.registry.Lookup(t.Framework)
	if !ok {
		return nil, types.NewExecutionError(
			fmt.Sprintf("no executor registered for framework %q", t.Framework)).
			WithRetryable(false).WithTask(t.ID)
	}

	callCtx := ex.ctx
	var cancel context.CancelFunc
	if t.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(callCtx, t.Timeout)
		defer cancel()
	}
	callCtx, span := e.tracer.Start(callCtx, "workflow.task",
		trace.WithAttributes(
			attribute.String("task.id", t.ID),
			attribute.String("task.framework", t.Framework),
			attribute.String("task.operation", t.Operation),
		),
	)
	defer span.End()

	outputs, execErr := executor.Execute(callCtx, t.Framework, t.Operation, resolved)
	if execErr != nil {
		span.SetStatus(otelcodes.Error, execErr.Error())
		switch {
		case callCtx.Err() == context.DeadlineExceeded:
			return nil, types.NewTimeoutError(
				fmt.Sprintf("task exceeded timeout of %s", t.Timeout)).
				WithCause(execErr).WithTask(t.ID)
		case ex.ctx.Err() != nil:
			return nil, types.NewError(types.ErrCancelled, "execution cancelled").
				WithCause(execErr).WithTask(t.ID)
		case types.GetErrorCode(execErr) != "":
			return nil, execErr
		default:
			return nil, types.NewExecutionError(execErr.Error()).
				WithCause(execErr).WithTask(t.ID)
		}
	}
	return outputs, nil
}

// handleTaskSuccess stores the task's declared outputs, marks it completed,
// and promotes newly satisfied dependents to ready.
func (e *Engine) handleTaskSuccess(ex *execution, t *TaskDefinition, outputs map[string]any) {
	ex.mu.Lock()
	st := ex.tasks[t.ID]
	if ex.status != WorkflowRunning || st.status != TaskRunning {
		ex.mu.Unlock()
		return
	}

	for _, name := range t.Outputs {
		value, ok := outputs[name]
		if !ok {
			// Declared output absent from the result: omit the key and let a
			// later reference fail at resolution time.
			continue
		}
		key := t.ID + "." + name
		if _, exists := ex.vars[key]; exists {
			continue // store entries are write-once
		}
		ex.vars[key] = value
		ex.outputs[key] = struct{}{}
	}

	st.status = TaskCompleted
	st.endedAt = time.Now()
	ex.completed[t.ID] = struct{}{}

	statuses := make(map[string]TaskStatus, len(ex.tasks))
	for id, state := range ex.tasks {
		statuses[id] = state.status
	}
	next := e.resolver.NextReady(ex.def, ex.completed, statuses)
	for _, id := range next {
		ex.tasks[id].status = TaskReady
	}
	finalized, finalStatus := e.finalizeLocked(ex)
	ex.mu.Unlock()

	e.logger.Debug("task completed",
		zap.String("execution_id", ex.id),
		zap.String("task_id", t.ID),
		zap.Int("newly_ready", len(next)),
	)
	e.bus.Publish(Event{Type: EventTaskCompleted, ExecutionID: ex.id, WorkflowID: ex.def.ID, TaskID: t.ID, Attempt: st.attempts})
	for _, id := range next {
		e.bus.Publish(Event{Type: EventTaskReady, ExecutionID: ex.id, WorkflowID: ex.def.ID, TaskID: id})
	}

	for _, id := range next {
		task := ex.tasks[id].def
		ex.wg.Add(1)
		go e.runTask(ex, task)
	}
	if finalized {
		e.finishExecution(ex, finalStatus)
	}
}

// handleTaskFailure applies the retry policy, and on exhaustion marks the
// task failed and skips every task transitively downstream of it. Tasks not
// reachable from the failure keep running.
func (e *Engine) handleTaskFailure(ex *execution, t *TaskDefinition, taskErr error) {
	ex.mu.Lock()
	st := ex.tasks[t.ID]
	if ex.status != WorkflowRunning || st.status != TaskRunning {
		ex.mu.Unlock()
		return
	}
	st.err = taskErr.Error()

	if types.IsRetryable(taskErr) && st.attempts <= t.RetryAttempts {
		st.status = TaskRetrying
		attempt := st.attempts
		ex.mu.Unlock()

		e.logger.Warn("task failed, retrying",
			zap.String("execution_id", ex.id),
			zap.String("task_id", t.ID),
			zap.Int("attempt", attempt),
			zap.Int("retry_attempts", t.RetryAttempts),
			zap.Duration("retry_delay", t.RetryDelay),
			zap.Error(taskErr),
		)
		e.bus.Publish(Event{Type: EventTaskRetrying, ExecutionID: ex.id, WorkflowID: ex.def.ID, TaskID: t.ID, Attempt: attempt, Error: taskErr.Error()})
		e.metrics.TaskRetried(t.Framework)

		ex.wg.Add(1)
		go e.retryTask(ex, t)
		return
	}

	st.status = TaskFailed
	st.endedAt = time.Now()
	skipped := e.cascadeSkipLocked(ex, t.ID)
	finalized, finalStatus := e.finalizeLocked(ex)
	ex.mu.Unlock()

	e.logger.Error("task failed",
		zap.String("execution_id", ex.id),
		zap.String("task_id", t.ID),
		zap.Int("attempts", st.attempts),
		zap.Int("skipped_downstream", len(skipped)),
		zap.Error(taskErr),
	)
	e.bus.Publish(Event{Type: EventTaskFailed, ExecutionID: ex.id, WorkflowID: ex.def.ID, TaskID: t.ID, Attempt: st.attempts, Error: taskErr.Error()})
	for _, id := range skipped {
		e.metrics.TaskSkipped(ex.def.ID)
		e.bus.Publish(Event{Type: EventTaskSkipped, ExecutionID: ex.id, WorkflowID: ex.def.ID, TaskID: id, Error: fmt.Sprintf("upstream task %s failed", t.ID)})
	}
	if finalized {
		e.finishExecution(ex, finalStatus)
	}
}

// retryTask waits out the retry delay, then re-enters the task into the
// ready state for a fresh dispatch with freshly resolved inputs.
func (e *Engine) retryTask(ex *execution, t *TaskDefinition) {
	defer ex.wg.Done()

	if t.RetryDelay > 0 {
		timer := time.NewTimer(t.RetryDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ex.ctx.Done():
			return
		}
	}

	ex.mu.Lock()
	st := ex.tasks[t.ID]
	if ex.status != WorkflowRunning || st.status != TaskRetrying {
		ex.mu.Unlock()
		return
	}
	st.status = TaskReady
	ex.mu.Unlock()

	e.bus.Publish(Event{Type: EventTaskReady, ExecutionID: ex.id, WorkflowID: ex.def.ID, TaskID: t.ID, Attempt: st.attempts})
	ex.wg.Add(1)
	go e.runTask(ex, t)
}

// cascadeSkipLocked marks every non-terminal task transitively reachable from
// origin via dependency edges as skipped, recording origin as the cause.
// Caller holds ex.mu.
func (e *Engine) cascadeSkipLocked(ex *execution, origin string) []string {
	dependents := ex.def.dependents()
	var skipped []string
	now := time.Now()

	queue := []string{origin}
	seen := map[string]struct{}{origin: {}}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, dep := range dependents[id] {
			if _, visited := seen[dep]; visited {
				continue
			}
			seen[dep] = struct{}{}
			st := ex.tasks[dep]
			if !st.status.Terminal() {
				st.status = TaskSkipped
				st.skippedBy = origin
				st.endedAt = now
				skipped = append(skipped, dep)
			}
			queue = append(queue, dep)
		}
	}
	return skipped
}

// finalizeLocked checks whether any task still has work pending. When none
// remains it moves the execution to its terminal status: failed when at least
// one task failed, completed otherwise. Caller holds ex.mu.
func (e *Engine) finalizeLocked(ex *execution) (bool, WorkflowStatus) {
	if ex.status != WorkflowRunning {
		return false, ex.status
	}
	anyFailed := false
	for _, st := range ex.tasks {
		switch st.status {
		case TaskPending, TaskReady, TaskRunning, TaskRetrying:
			return false, ex.status
		case TaskFailed:
			anyFailed = true
		}
	}
	if anyFailed {
		ex.status = WorkflowFailed
		for _, t := range ex.def.Tasks {
			if st := ex.tasks[t.ID]; st.status == TaskFailed {
				ex.errDetail = fmt.Sprintf("task %s: %s", t.ID, st.err)
				break
			}
		}
	} else {
		ex.status = WorkflowCompleted
	}
	ex.endedAt = time.Now()
	close(ex.done)
	return true, ex.status
}

// finishExecution records a terminal execution in history, metrics, events,
// and tracing. Called without ex.mu held, exactly once per execution.
func (e *Engine) finishExecution(ex *execution, status WorkflowStatus) {
	ex.mu.Lock()
	errDetail := ex.errDetail
	duration := ex.endedAt.Sub(ex.startedAt)
	ex.mu.Unlock()

	e.history.Finish(ex.id, status, errDetail)
	e.metrics.ExecutionFinished(ex.def.ID, string(status), duration)

	eventType := EventWorkflowCompleted
	switch status {
	case WorkflowFailed:
		eventType = EventWorkflowFailed
		ex.span.SetStatus(otelcodes.Error, errDetail)
	case WorkflowCancelled:
		eventType = EventWorkflowCancelled
	default:
		ex.span.SetStatus(otelcodes.Ok, "")
	}
	ex.span.SetAttributes(attribute.String("execution.status", string(status)))
	ex.span.End()
	ex.cancel()

	e.bus.Publish(Event{Type: eventType, ExecutionID: ex.id, WorkflowID: ex.def.ID, Error: errDetail})
	e.logger.Info("execution finished",
		zap.String("execution_id", ex.id),
		zap.String("workflow_id", ex.def.ID),
		zap.String("status", string(status)),
		zap.Duration("duration", duration),
	)
}
