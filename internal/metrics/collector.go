// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records workflow engine metrics. A nil *Collector is valid and
// records nothing, so callers never need to guard their call sites.
type Collector struct {
	executionsTotal   *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	executionsActive  prometheus.Gauge

	taskDispatchesTotal *prometheus.CounterVec
	taskDuration        *prometheus.HistogramVec
	taskRetriesTotal    *prometheus.CounterVec
	tasksSkippedTotal   *prometheus.CounterVec
	tasksInFlight       prometheus.Gauge

	logger *zap.Logger
}

// NewCollector creates a metrics collector registered against reg
// (the default prometheus registerer when nil).
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.executionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_executions_total",
			Help:      "Total number of workflow executions by terminal status",
		},
		[]string{"workflow_id", "status"},
	)

	c.executionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_execution_duration_seconds",
			Help:      "Workflow execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300, 1800},
		},
		[]string{"workflow_id"},
	)

	c.executionsActive = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workflow_executions_active",
			Help:      "Number of workflow executions currently running",
		},
	)

	c.taskDispatchesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_task_dispatches_total",
			Help:      "Total number of task dispatch attempts by outcome",
		},
		[]string{"framework", "status"},
	)

	c.taskDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_task_duration_seconds",
			Help:      "Task executor call duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"framework", "operation"},
	)

	c.taskRetriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_task_retries_total",
			Help:      "Total number of task retry attempts",
		},
		[]string{"framework"},
	)

	c.tasksSkippedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_tasks_skipped_total",
			Help:      "Total number of tasks skipped due to upstream failures",
		},
		[]string{"workflow_id"},
	)

	c.tasksInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workflow_tasks_in_flight",
			Help:      "Number of tasks currently dispatched to executors",
		},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// ExecutionStarted marks an execution as active.
func (c *Collector) ExecutionStarted() {
	if c == nil {
		return
	}
	c.executionsActive.Inc()
}

// ExecutionFinished records a terminal execution.
func (c *Collector) ExecutionFinished(workflowID, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.executionsActive.Dec()
	c.executionsTotal.WithLabelValues(workflowID, status).Inc()
	c.executionDuration.WithLabelValues(workflowID).Observe(duration.Seconds())
}

// TaskDispatched marks a task as in flight.
func (c *Collector) TaskDispatched() {
	if c == nil {
		return
	}
	c.tasksInFlight.Inc()
}

// TaskFinished records one finished dispatch attempt.
func (c *Collector) TaskFinished(framework, operation, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.tasksInFlight.Dec()
	c.taskDispatchesTotal.WithLabelValues(framework, status).Inc()
	c.taskDuration.WithLabelValues(framework, operation).Observe(duration.Seconds())
}

// TaskRetried records a retry attempt.
func (c *Collector) TaskRetried(framework string) {
	if c == nil {
		return
	}
	c.taskRetriesTotal.WithLabelValues(framework).Inc()
}

// TaskSkipped records a task skipped because of an upstream failure.
func (c *Collector) TaskSkipped(workflowID string) {
	if c == nil {
		return
	}
	c.tasksSkippedTotal.WithLabelValues(workflowID).Inc()
}
