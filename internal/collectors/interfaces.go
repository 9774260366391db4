package collectors

import (
	"context"

	"busy_beaver/internal/config"
	"busy_beaver/internal/utils"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Collector interface {
	prometheus.Collector
	Name() string
	CollectMetrics(ctx context.Context) error
}

type CollectorDependencies struct {
	Executor utils.CommandExecutor
	Logger   *zap.Logger
	Config   *config.Config
}
