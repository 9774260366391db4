package main

import (
	"fmt"
	"os"

	"busy_beaver/internal/beaver"
	"busy_beaver/internal/collectors"
	"busy_beaver/internal/config"
	"busy_beaver/internal/server"
	"busy_beaver/internal/sources"
	"busy_beaver/internal/triggers"
	"busy_beaver/internal/utils"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var configPath = "internal/config/configurations.json"

func main() {
	if path := os.Getenv("BUSY_BEAVER_CONFIG"); path != "" {
		configPath = path
	}

	cfg, err := config.LoadFromJSON(configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}

	fx.New(appOptions(cfg)).Run()
}

// appOptions assembles the application graph around cfg.
func appOptions(cfg *config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.StopTimeout(cfg.Server.ShutdownTimeout.Duration),

		fx.Provide(
			newLogger,
			fx.Annotate(utils.NewSystemCommandExecutor, fx.As(new(utils.CommandExecutor))),
			newCollectorDependencies,
			collectors.NewInvocationCollector,
			fx.Annotate(
				func(c *collectors.InvocationCollector) collectors.Collector { return c },
				fx.ResultTags(`group:"collectors"`),
			),
			fx.Annotate(
				func(deps *collectors.CollectorDependencies) collectors.Collector {
					return collectors.NewHostCollector(deps)
				},
				fx.ResultTags(`group:"collectors"`),
			),
			func(c *collectors.InvocationCollector) triggers.Recorder { return c },
			newWorker,
			newDispatcher,
			newHTTPTrigger,
			newBlobTrigger,
			newQueueTrigger,
			newTimerTrigger,
			newSources,
			server.New,
			server.NewServerLifecycle,
		),

		fx.Invoke(registerLifecycle),

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Logging.Level, err)
	}

	zapConfig := zap.NewProductionConfig()
	if cfg.Logging.Format == "console" {
		zapConfig = zap.NewDevelopmentConfig()
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	return zapConfig.Build()
}

func newCollectorDependencies(cfg *config.Config, logger *zap.Logger, executor utils.CommandExecutor) *collectors.CollectorDependencies {
	return &collectors.CollectorDependencies{
		Executor: executor,
		Logger:   logger,
		Config:   cfg,
	}
}

func newWorker(cfg *config.Config, recorder triggers.Recorder) *triggers.Worker {
	return triggers.NewWorker(beaver.Options{
		Min:    cfg.Benchmark.Min,
		Max:    cfg.Benchmark.Max,
		Select: cfg.Benchmark.Select,
	}, recorder)
}

func newDispatcher(cfg *config.Config, logger *zap.Logger) *triggers.Dispatcher {
	return triggers.NewDispatcher(cfg.Dispatcher.MaxConcurrency, logger)
}

func newHTTPTrigger(cfg *config.Config, worker *triggers.Worker) *triggers.HTTPTrigger {
	return triggers.NewHTTPTrigger(worker, cfg.Triggers.HTTP.FunctionName)
}

func newBlobTrigger(cfg *config.Config, worker *triggers.Worker) *triggers.BlobTrigger {
	return triggers.NewBlobTrigger(worker, cfg.Triggers.Blob.FunctionName)
}

func newQueueTrigger(cfg *config.Config, worker *triggers.Worker) *triggers.QueueTrigger {
	return triggers.NewQueueTrigger(worker, cfg.Triggers.Queue.FunctionName)
}

func newTimerTrigger(cfg *config.Config, worker *triggers.Worker) *triggers.TimerTrigger {
	return triggers.NewTimerTrigger(worker, cfg.Triggers.Timer.FunctionName, cfg.Triggers.Timer.BusySeconds)
}

type sourceParams struct {
	fx.In

	Config     *config.Config
	Logger     *zap.Logger
	Dispatcher *triggers.Dispatcher
	Blob       *triggers.BlobTrigger
	Queue      *triggers.QueueTrigger
	Timer      *triggers.TimerTrigger
}

// newSources returns the event sources enabled in the configuration.
func newSources(p sourceParams) []sources.Source {
	t := p.Config.Triggers
	var enabled []sources.Source

	if config.Enabled(t.Blob.Enabled) {
		enabled = append(enabled, sources.NewBlobSource(t.Blob.Dir, p.Blob, p.Dispatcher, p.Logger))
	}
	if config.Enabled(t.Queue.Enabled) {
		enabled = append(enabled, sources.NewQueueSource(sources.QueueSourceOptions{
			URL:        t.Queue.URL,
			Subject:    t.Queue.Subject,
			QueueGroup: t.Queue.QueueGroup,
		}, p.Queue, p.Dispatcher, p.Logger))
	}
	if config.Enabled(t.Timer.Enabled) {
		enabled = append(enabled, sources.NewTimerSource(t.Timer.Schedule, t.Timer.PastDueAfter.Duration, p.Timer, p.Dispatcher, p.Logger))
	}

	return enabled
}

// registerLifecycle orders startup as sources then server. fx stops hooks in
// reverse, so in-flight invocations are awaited last.
func registerLifecycle(lifecycle fx.Lifecycle, dispatcher *triggers.Dispatcher, srcs []sources.Source, serverLifecycle *server.ServerLifecycle, logger *zap.Logger) {
	lifecycle.Append(fx.Hook{
		OnStop: dispatcher.Wait,
	})

	for _, source := range srcs {
		logger.Info("Registering trigger source", zap.String("source", source.Name()))
		lifecycle.Append(fx.Hook{
			OnStart: source.Start,
			OnStop:  source.Stop,
		})
	}

	lifecycle.Append(fx.Hook{
		OnStart: serverLifecycle.Start,
		OnStop:  serverLifecycle.Stop,
	})
}
