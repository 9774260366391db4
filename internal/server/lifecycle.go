package server

import (
	"context"

	"go.uber.org/zap"
)

// ServerLifecycle manages the server lifecycle with fx
type ServerLifecycle struct {
	server *Server
	logger *zap.Logger
	cancel context.CancelFunc
}

func NewServerLifecycle(server *Server, logger *zap.Logger) *ServerLifecycle {
	return &ServerLifecycle{
		server: server,
		logger: logger,
	}
}

// Start runs the server in the background. The fx start context ends once
// startup completes, so the server gets a context of its own.
func (sl *ServerLifecycle) Start(context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	sl.cancel = cancel

	go func() {
		if err := sl.server.Start(ctx); err != nil {
			sl.logger.Error("Server startup failed", zap.Error(err))
		}
	}()
	return nil
}

func (sl *ServerLifecycle) Stop(ctx context.Context) error {
	if sl.cancel != nil {
		sl.cancel()
	}
	return sl.server.Stop(ctx)
}
