package collectors

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
)

// InvocationCollector counts trigger invocations and times the busy work.
// It is the triggers.Recorder the adapters report to.
type InvocationCollector struct {
	// invocations: finished or rejected invocations by trigger and outcome
	// workDuration: wall-clock seconds spent in the benchmark loop
	// active: invocations currently burning CPU
	invocations  *prometheus.CounterVec
	workDuration *prometheus.HistogramVec
	active       *prometheus.GaugeVec
}

func NewInvocationCollector() *InvocationCollector {
	return &InvocationCollector{
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "busy_beaver_invocations_total",
				Help: "Trigger invocations by outcome",
			},
			[]string{"trigger", "outcome"},
		),
		workDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "busy_beaver_work_duration_seconds",
				Help:    "Time spent in the busy loop per invocation",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"trigger"},
		),
		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "busy_beaver_active_invocations",
				Help: "Invocations currently running the busy loop",
			},
			[]string{"trigger"},
		),
	}
}

func (c *InvocationCollector) Name() string {
	return "invocations"
}

func (c *InvocationCollector) Describe(ch chan<- *prometheus.Desc) {
	c.invocations.Describe(ch)
	c.workDuration.Describe(ch)
	c.active.Describe(ch)
}

func (c *InvocationCollector) Collect(ch chan<- prometheus.Metric) {
	c.invocations.Collect(ch)
	c.workDuration.Collect(ch)
	c.active.Collect(ch)
}

// CollectMetrics is a no-op: invocation metrics are pushed as they happen.
func (c *InvocationCollector) CollectMetrics(ctx context.Context) error {
	return nil
}

func (c *InvocationCollector) InvocationRejected(trigger string) {
	c.invocations.WithLabelValues(trigger, outcomeRejected).Inc()
}

func (c *InvocationCollector) InvocationStarted(trigger string) {
	c.active.WithLabelValues(trigger).Inc()
}

func (c *InvocationCollector) InvocationFinished(trigger string, elapsed time.Duration) {
	c.active.WithLabelValues(trigger).Dec()
	c.workDuration.WithLabelValues(trigger).Observe(elapsed.Seconds())
	c.invocations.WithLabelValues(trigger, outcomeOK).Inc()
}
