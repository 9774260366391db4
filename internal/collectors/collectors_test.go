package collectors

import (
	"context"
	"errors"
	"testing"
	"time"

	"busy_beaver/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExecutor struct {
	top    string
	uptime string
	err    error
}

func (f *fakeExecutor) Execute(ctx context.Context, command string, args ...string) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeExecutor) GetCPUUsage(ctx context.Context) ([]byte, error) {
	return []byte(f.top), f.err
}

func (f *fakeExecutor) GetSystemUptime(ctx context.Context) ([]byte, error) {
	return []byte(f.uptime), f.err
}

func newDeps(exec *fakeExecutor) *CollectorDependencies {
	return &CollectorDependencies{Executor: exec, Logger: zap.NewNop(), Config: config.New()}
}

func TestHostCollector_CollectMetrics(t *testing.T) {
	exec := &fakeExecutor{
		top: `top - 10:30:01 up 2 days, 10:30,  1 user,  load average: 0.52, 0.58, 0.59
Tasks: 201 total,   1 running, 200 sleeping,   0 stopped,   0 zombie
%Cpu(s): 73.2 us,  1.1 sy,  0.0 ni, 25.6 id,  0.0 wa,  0.0 hi,  0.1 si,  0.0 st
`,
		uptime: " 10:30:01 up 2 days, 10:30,  1 user,  load average: 1.52, 0.58, 0.09\n",
	}
	c := NewHostCollector(newDeps(exec))

	require.NoError(t, c.CollectMetrics(context.Background()))

	assert.Equal(t, 73.2, testutil.ToFloat64(c.cpuUsage.WithLabelValues("user")))
	assert.Equal(t, 1.1, testutil.ToFloat64(c.cpuUsage.WithLabelValues("system")))
	assert.Equal(t, 25.6, testutil.ToFloat64(c.cpuUsage.WithLabelValues("idle")))
	assert.Equal(t, 1.52, testutil.ToFloat64(c.loadAverage.WithLabelValues("1m")))
	assert.Equal(t, 0.58, testutil.ToFloat64(c.loadAverage.WithLabelValues("5m")))
	assert.Equal(t, 0.09, testutil.ToFloat64(c.loadAverage.WithLabelValues("15m")))
}

func TestHostCollector_CommandFailureIsNotFatal(t *testing.T) {
	c := NewHostCollector(newDeps(&fakeExecutor{err: errors.New("no top here")}))

	assert.NoError(t, c.CollectMetrics(context.Background()))
	assert.Equal(t, 0, testutil.CollectAndCount(c))
}

func TestInvocationCollector_Records(t *testing.T) {
	c := NewInvocationCollector()
	registry := prometheus.NewRegistry()
	require.NoError(t, registry.Register(c))

	c.InvocationStarted("queue")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.active.WithLabelValues("queue")))

	c.InvocationFinished("queue", 1500*time.Millisecond)
	c.InvocationRejected("queue")
	c.InvocationRejected("queue")

	assert.Equal(t, 0.0, testutil.ToFloat64(c.active.WithLabelValues("queue")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.invocations.WithLabelValues("queue", outcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.invocations.WithLabelValues("queue", outcomeRejected)))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "busy_beaver_work_duration_seconds"))
	assert.NoError(t, c.CollectMetrics(context.Background()))
}
