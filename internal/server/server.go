package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"busy_beaver/internal/collectors"
	"busy_beaver/internal/config"
	"busy_beaver/internal/triggers"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// maxRequestBody caps how much of an HttpTrigger body is read.
const maxRequestBody = 1 << 20

// Server is the main server struct
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	httpServer *http.Server
	registry   *prometheus.Registry
	collectors []collectors.Collector
}

// ServerParams is the parameters for the server
type ServerParams struct {
	fx.In

	Config      *config.Config
	Logger      *zap.Logger
	HTTPTrigger *triggers.HTTPTrigger
	Collectors  []collectors.Collector `group:"collectors"`
}

// New creates a new server with the HttpTrigger route and the operational
// endpoints mounted.
func New(params ServerParams) *Server {
	registry := prometheus.NewRegistry()
	for _, c := range params.Collectors {
		registry.MustRegister(c)
	}

	mux := http.NewServeMux()

	if config.Enabled(params.Config.Triggers.HTTP.Enabled) {
		mux.Handle(params.Config.Triggers.HTTP.Route, httpTriggerHandler(params.HTTPTrigger, params.Logger))
	}

	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		t := params.Config.Triggers
		writeJSON(w, map[string]any{
			"service":    "busy_beaver",
			"collectors": len(params.Collectors),
			"triggers": map[string]bool{
				"http":  config.Enabled(t.HTTP.Enabled),
				"blob":  config.Enabled(t.Blob.Enabled),
				"queue": config.Enabled(t.Queue.Enabled),
				"timer": config.Enabled(t.Timer.Enabled),
			},
			"max_concurrency": params.Config.Dispatcher.MaxConcurrency,
		})
	})

	httpServer := &http.Server{
		Addr:         params.Config.Server.Port,
		Handler:      mux,
		ReadTimeout:  params.Config.Server.ReadTimeout.Duration,
		WriteTimeout: params.Config.Server.WriteTimeout.Duration,
	}

	return &Server{
		config:     params.Config,
		logger:     params.Logger,
		httpServer: httpServer,
		registry:   registry,
		collectors: params.Collectors,
	}
}

// Handler exposes the server's routes.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	if config.Enabled(s.config.Metrics.EnableHostMetrics) {
		go s.startMetricCollection(ctx)
	}

	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.httpServer.Addr),
		zap.Duration("read_timeout", s.config.Server.ReadTimeout.Duration),
		zap.Duration("write_timeout", s.config.Server.WriteTimeout.Duration),
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("HTTP server failed", zap.Error(err))
		return err
	}

	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout.Duration)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}

// startMetricCollection samples pull-style collectors at the configured interval
func (s *Server) startMetricCollection(ctx context.Context) {
	interval := s.config.Metrics.HostSampleInterval.Duration
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Starting metric collection",
		zap.Duration("interval", interval),
		zap.Int("collectors", len(s.collectors)),
	)

	s.collectAllMetrics(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping metric collection")
			return
		case <-ticker.C:
			s.collectAllMetrics(ctx)
		}
	}
}

func (s *Server) collectAllMetrics(ctx context.Context) {
	start := time.Now()

	collectCtx, cancel := context.WithTimeout(ctx, s.config.Metrics.CommandTimeout.Duration)
	defer cancel()

	for _, collector := range s.collectors {
		if err := collector.CollectMetrics(collectCtx); err != nil {
			s.logger.Error("Failed to collect metrics",
				zap.String("collector", collector.Name()),
				zap.Error(err),
			)
		}
	}

	s.logger.Debug("Metric collection completed",
		zap.Duration("duration", time.Since(start)),
		zap.Int("collectors", len(s.collectors)),
	)
}

// httpTriggerHandler adapts net/http to the HTTP trigger adapter.
func httpTriggerHandler(trigger *triggers.HTTPTrigger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			w.Header().Set("Allow", "GET, POST")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		ctx := triggers.NewInvocation(logger, trigger.FunctionName())
		resp := trigger.Handle(ctx, triggers.HTTPRequest{Query: r.URL.Query(), Body: body})

		w.Header().Set("Content-Type", resp.ContentType)
		w.WriteHeader(resp.Status)
		if _, err := w.Write(resp.Body); err != nil {
			logger.Warn("Failed to write HttpTrigger response", zap.Error(err))
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}
