package sources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"busy_beaver/internal/triggers"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// TimerSource fires the timer trigger on a cron schedule. A firing whose
// invocation starts more than pastDueAfter after its scheduled time is
// reported as past due.
type TimerSource struct {
	expr         string
	pastDueAfter time.Duration
	trigger      *triggers.TimerTrigger
	dispatcher   *triggers.Dispatcher
	logger       *zap.Logger

	schedule cron.Schedule
	cron     *cron.Cron
	cancel   context.CancelFunc

	mu       sync.Mutex
	expected time.Time
	last     time.Time
}

func NewTimerSource(schedule string, pastDueAfter time.Duration, trigger *triggers.TimerTrigger, dispatcher *triggers.Dispatcher, logger *zap.Logger) *TimerSource {
	return &TimerSource{
		expr:         schedule,
		pastDueAfter: pastDueAfter,
		trigger:      trigger,
		dispatcher:   dispatcher,
		logger:       logger.With(zap.String("source", "timer")),
	}
}

func (s *TimerSource) Name() string { return "timer" }

func (s *TimerSource) Start(ctx context.Context) error {
	schedule, err := scheduleParser.Parse(s.expr)
	if err != nil {
		return fmt.Errorf("failed to parse timer schedule '%s': %w", s.expr, err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	cronLogger := cron.PrintfLogger(zap.NewStdLog(s.logger))

	s.schedule = schedule
	s.cancel = cancel
	s.cron = cron.New(
		cron.WithParser(scheduleParser),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger)),
	)
	s.expected = schedule.Next(time.Now())

	s.cron.Schedule(schedule, cron.FuncJob(func() { s.fire(runCtx) }))
	s.cron.Start()

	s.logger.Info("Timer scheduled",
		zap.String("schedule", s.expr),
		zap.Time("next", s.expected),
	)
	return nil
}

// Stop stops scheduling new firings and waits for running cron jobs.
func (s *TimerSource) Stop(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}
	s.cancel()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.Info("Timer stopped")
	return nil
}

func (s *TimerSource) fire(ctx context.Context) {
	scheduled := s.advance(time.Now())

	_ = s.dispatcher.Dispatch(ctx, func() {
		info := s.timerInfo(scheduled, time.Now())
		s.trigger.Handle(triggers.NewInvocation(s.logger, s.trigger.FunctionName()), info)
	})
}

// advance moves the expected firing time past now and returns the time the
// current firing was scheduled for.
func (s *TimerSource) advance(now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduled := s.expected
	s.expected = s.schedule.Next(now)
	return scheduled
}

// timerInfo builds the payload for a firing scheduled at scheduled whose
// invocation starts at now.
func (s *TimerSource) timerInfo(scheduled, now time.Time) triggers.TimerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := triggers.TimerInfo{
		IsPastDue: now.Sub(scheduled) > s.pastDueAfter,
		ScheduleStatus: &triggers.ScheduleStatus{
			Last:        s.last,
			Next:        s.expected,
			LastUpdated: now,
		},
	}
	s.last = now
	return info
}
