package collectors

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"busy_beaver/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	cpuFieldPattern     = regexp.MustCompile(`(\d+\.?\d*)\s+(\w+)`)
	loadAveragePattern  = regexp.MustCompile(`load averages?:\s*([\d.]+),?\s+([\d.]+),?\s+([\d.]+)`)
	loadAverageWindows  = []string{"1m", "5m", "15m"}
	cpuFieldLabelByCode = map[string]string{"us": "user", "sy": "system", "id": "idle"}
)

// HostCollector samples host CPU usage and load averages so the load the
// beaver generates shows up next to the invocation metrics.
type HostCollector struct {
	deps *CollectorDependencies

	// cpuUsage: host CPU usage percentage by type (user, system, idle)
	// loadAverage: 1, 5 and 15 minute load averages
	cpuUsage    *prometheus.GaugeVec
	loadAverage *prometheus.GaugeVec
}

func NewHostCollector(deps *CollectorDependencies) *HostCollector {
	return &HostCollector{
		deps: deps,
		cpuUsage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "busy_beaver_host_cpu_usage_percent",
				Help: "Host CPU usage percentage",
			},
			[]string{"type"},
		),
		loadAverage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "busy_beaver_host_load_average",
				Help: "Host load average",
			},
			[]string{"window"},
		),
	}
}

func (c *HostCollector) Name() string {
	return "host"
}

func (c *HostCollector) Describe(ch chan<- *prometheus.Desc) {
	c.cpuUsage.Describe(ch)
	c.loadAverage.Describe(ch)
}

func (c *HostCollector) Collect(ch chan<- prometheus.Metric) {
	c.cpuUsage.Collect(ch)
	c.loadAverage.Collect(ch)
}

// CollectMetrics samples the host. Failures of one command are logged and
// do not stop the other.
func (c *HostCollector) CollectMetrics(ctx context.Context) error {
	c.deps.Logger.Debug("Collecting host metrics")

	if err := c.collectCPUMetrics(ctx); err != nil {
		c.deps.Logger.Error("Failed to collect CPU metrics", zap.Error(err))
	}

	if err := c.collectLoadMetrics(ctx); err != nil {
		c.deps.Logger.Error("Failed to collect load metrics", zap.Error(err))
	}

	return nil
}

// collectCPUMetrics parses the summary line of top -bn1, e.g.
// "%Cpu(s):  3.2 us,  1.1 sy,  0.0 ni, 95.6 id,  0.0 wa"
func (c *HostCollector) collectCPUMetrics(ctx context.Context) error {
	output, err := c.deps.Executor.GetCPUUsage(ctx)
	if err != nil {
		return err
	}

	for _, line := range utils.NonEmptyLines(output) {
		if !strings.Contains(line, "%Cpu(s):") {
			continue
		}
		for _, match := range cpuFieldPattern.FindAllStringSubmatch(line, -1) {
			label, ok := cpuFieldLabelByCode[match[2]]
			if !ok {
				continue
			}
			if value, err := strconv.ParseFloat(match[1], 64); err == nil {
				c.cpuUsage.WithLabelValues(label).Set(value)
			}
		}
		break
	}

	return nil
}

// collectLoadMetrics parses the load averages at the end of uptime, e.g.
// "10:30:01 up 2 days, 10:30,  1 user,  load average: 0.52, 0.58, 0.59"
func (c *HostCollector) collectLoadMetrics(ctx context.Context) error {
	output, err := c.deps.Executor.GetSystemUptime(ctx)
	if err != nil {
		return err
	}

	matches := loadAveragePattern.FindStringSubmatch(string(output))
	if len(matches) != 4 {
		return nil
	}
	for i, window := range loadAverageWindows {
		if value, err := strconv.ParseFloat(matches[i+1], 64); err == nil {
			c.loadAverage.WithLabelValues(window).Set(value)
		}
	}

	return nil
}
