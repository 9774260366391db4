package sources

import (
	"context"
	"fmt"
	"sync"

	"busy_beaver/internal/triggers"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// QueueSourceOptions locates the work queue.
type QueueSourceOptions struct {
	URL        string
	Subject    string
	QueueGroup string
}

// QueueSource consumes a NATS subject as a queue group, so each message is
// handled by exactly one replica.
type QueueSource struct {
	opts       QueueSourceOptions
	trigger    *triggers.QueueTrigger
	dispatcher *triggers.Dispatcher
	logger     *zap.Logger

	conn      *nats.Conn
	cancel    context.CancelFunc
	closed    chan struct{}
	closeOnce sync.Once
}

func NewQueueSource(opts QueueSourceOptions, trigger *triggers.QueueTrigger, dispatcher *triggers.Dispatcher, logger *zap.Logger) *QueueSource {
	return &QueueSource{
		opts:       opts,
		trigger:    trigger,
		dispatcher: dispatcher,
		logger:     logger.With(zap.String("source", "queue")),
	}
}

func (s *QueueSource) Name() string { return "queue" }

func (s *QueueSource) Start(ctx context.Context) error {
	s.closed = make(chan struct{})

	conn, err := nats.Connect(s.opts.URL,
		nats.Name("busy-beaver"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			s.logger.Warn("Disconnected from queue", zap.Error(err))
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			s.logger.Info("Reconnected to queue", zap.String("url", c.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			s.logger.Error("Queue subscription error", zap.String("subject", subject), zap.Error(err))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			s.closeOnce.Do(func() { close(s.closed) })
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to queue at %s: %w", s.opts.URL, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())

	_, err = conn.QueueSubscribe(s.opts.Subject, s.opts.QueueGroup, func(msg *nats.Msg) {
		message := triggers.QueueMessage{Subject: msg.Subject, Body: string(msg.Data)}
		_ = s.dispatcher.Dispatch(runCtx, func() {
			s.trigger.Handle(triggers.NewInvocation(s.logger, s.trigger.FunctionName()), message)
		})
	})
	if err != nil {
		cancel()
		conn.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", s.opts.Subject, err)
	}

	s.conn = conn
	s.cancel = cancel

	s.logger.Info("Consuming queue",
		zap.String("url", s.opts.URL),
		zap.String("subject", s.opts.Subject),
		zap.String("queue_group", s.opts.QueueGroup),
	)
	return nil
}

// Stop drains the subscription so messages already delivered are still
// dispatched, then closes the connection.
func (s *QueueSource) Stop(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	defer s.cancel()

	if err := s.conn.Drain(); err != nil {
		s.logger.Warn("Failed to drain queue connection", zap.Error(err))
		s.conn.Close()
		return nil
	}

	select {
	case <-s.closed:
	case <-ctx.Done():
		s.conn.Close()
		return ctx.Err()
	}

	s.logger.Info("Stopped consuming queue")
	return nil
}
