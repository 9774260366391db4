package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"busy_beaver/internal/triggers"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// BlobSource turns every file created in dir into a blob invocation named
// after the file.
type BlobSource struct {
	dir        string
	trigger    *triggers.BlobTrigger
	dispatcher *triggers.Dispatcher
	logger     *zap.Logger

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewBlobSource(dir string, trigger *triggers.BlobTrigger, dispatcher *triggers.Dispatcher, logger *zap.Logger) *BlobSource {
	return &BlobSource{
		dir:        dir,
		trigger:    trigger,
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("source", "blob")),
	}
}

func (s *BlobSource) Name() string { return "blob" }

// Start creates dir if needed and begins watching it.
func (s *BlobSource) Start(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create blob dir %s: %w", s.dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create blob watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch blob dir %s: %w", s.dir, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.watcher = watcher
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.watch(runCtx)

	s.logger.Info("Watching for blobs", zap.String("dir", s.dir))
	return nil
}

// Stop stops watching. Invocations already dispatched keep running.
func (s *BlobSource) Stop(ctx context.Context) error {
	if s.watcher == nil {
		return nil
	}
	s.cancel()
	err := s.watcher.Close()

	select {
	case <-s.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("Stopped watching for blobs")
	return err
}

func (s *BlobSource) watch(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			s.handleCreate(ctx, event.Name)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("Blob watcher error", zap.Error(err))
		}
	}
}

func (s *BlobSource) handleCreate(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Debug("Blob vanished before it could be read", zap.String("path", path), zap.Error(err))
		return
	}
	if info.IsDir() {
		return
	}

	event := triggers.BlobEvent{Name: filepath.Base(path), Path: path}
	_ = s.dispatcher.Dispatch(ctx, func() {
		s.trigger.Handle(triggers.NewInvocation(s.logger, s.trigger.FunctionName()), event)
	})
}
