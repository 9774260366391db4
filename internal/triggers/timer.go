package triggers

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// BusySeconds is how long a timer invocation works unless configured otherwise.
const BusySeconds = 1

// ScheduleStatus describes the schedule around one timer firing.
type ScheduleStatus struct {
	Last        time.Time
	Next        time.Time
	LastUpdated time.Time
}

// TimerInfo is the payload of a timer firing. Only IsPastDue is read.
type TimerInfo struct {
	IsPastDue      bool
	ScheduleStatus *ScheduleStatus
}

type TimerTrigger struct {
	worker       *Worker
	functionName string
	busySeconds  float64
}

// NewTimerTrigger returns a timer adapter that always works for busySeconds.
func NewTimerTrigger(worker *Worker, functionName string, busySeconds float64) *TimerTrigger {
	return &TimerTrigger{worker: worker, functionName: functionName, busySeconds: busySeconds}
}

func (t *TimerTrigger) FunctionName() string { return t.functionName }

func (t *TimerTrigger) Kind() string { return "timer" }

// ExtractDuration ignores the payload and returns the fixed duration. A late
// firing is noted in the log but still runs.
func (t *TimerTrigger) ExtractDuration(ctx Context, info TimerInfo) (float64, error) {
	if info.IsPastDue {
		execution := ctx.Execution()
		fields := []zap.Field{zap.String("trigger", t.Kind())}
		if info.ScheduleStatus != nil {
			fields = append(fields,
				zap.Time("schedule_last", info.ScheduleStatus.Last),
				zap.Time("schedule_next", info.ScheduleStatus.Next),
			)
		}
		ctx.Log(fmt.Sprintf("Busy Beaver %s passed due on %s", execution.FunctionName, execution.InvocationID), fields...)
	}
	return t.busySeconds, nil
}

func (t *TimerTrigger) Report(ctx Context, outcome Outcome) {
	logCompletion(ctx, outcome)
}

// Handle runs one timer invocation to completion.
func (t *TimerTrigger) Handle(ctx Context, info TimerInfo) {
	_, _ = Invoke[TimerInfo](t.worker, ctx, t, info)
}
