package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollector_ExecutionMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := NewCollector("agentbridge", reg, zap.NewNop())

	c.ExecutionStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.executionsActive))

	c.ExecutionFinished("wf-1", "completed", 2*time.Second)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.executionsActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.executionsTotal.WithLabelValues("wf-1", "completed")))

	c.ExecutionStarted()
	c.ExecutionFinished("wf-1", "failed", time.Second)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.executionsTotal.WithLabelValues("wf-1", "failed")))

	count, err := testutil.GatherAndCount(reg,
		"agentbridge_workflow_executions_total",
		"agentbridge_workflow_execution_duration_seconds",
	)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCollector_TaskMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	c := NewCollector("agentbridge", reg, zap.NewNop())

	c.TaskDispatched()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksInFlight))

	c.TaskFinished("langgraph", "clean", "ok", 100*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(c.tasksInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.taskDispatchesTotal.WithLabelValues("langgraph", "ok")))

	c.TaskRetried("langgraph")
	c.TaskRetried("langgraph")
	assert.Equal(t, 2.0, testutil.ToFloat64(c.taskRetriesTotal.WithLabelValues("langgraph")))

	c.TaskSkipped("wf-1")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tasksSkippedTotal.WithLabelValues("wf-1")))
}

func TestCollector_NilReceiverIsSafe(t *testing.T) {
	t.Parallel()
	var c *Collector

	assert.NotPanics(t, func() {
		c.ExecutionStarted()
		c.ExecutionFinished("wf-1", "completed", time.Second)
		c.TaskDispatched()
		c.TaskFinished("f", "op", "ok", time.Millisecond)
		c.TaskRetried("f")
		c.TaskSkipped("wf-1")
	})
}
