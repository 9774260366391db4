package triggers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"busy_beaver/internal/beaver"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ISO8601 matches the millisecond UTC timestamps the triggers report.
const ISO8601 = "2006-01-02T15:04:05.000Z07:00"

// TriggerAdapter wires one event source to the benchmark. E is the event
// type the source delivers.
type TriggerAdapter[E any] interface {
	// Kind names the event source in log lines and metric labels.
	Kind() string
	// ExtractDuration returns the number of seconds to work for. A non-nil
	// error means the benchmark must not run; the adapter has already
	// logged whatever diagnostic it wants.
	ExtractDuration(ctx Context, event E) (float64, error)
	// Report publishes a finished run.
	Report(ctx Context, outcome Outcome)
}

// Outcome is one finished benchmark run.
type Outcome struct {
	Kind          string
	Execution     Execution
	BusySeconds   float64
	StartTime     time.Time
	EndTime       time.Time
	RandomNumbers []int
}

// Recorder observes invocations. collectors.InvocationCollector is the
// production implementation.
type Recorder interface {
	InvocationRejected(trigger string)
	InvocationStarted(trigger string)
	InvocationFinished(trigger string, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) InvocationRejected(string)                {}
func (nopRecorder) InvocationStarted(string)                 {}
func (nopRecorder) InvocationFinished(string, time.Duration) {}

// Worker holds what every adapter shares: benchmark bounds and the recorder.
type Worker struct {
	options  beaver.Options
	recorder Recorder
}

// NewWorker returns a Worker. A nil recorder discards observations.
func NewWorker(options beaver.Options, recorder Recorder) *Worker {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Worker{options: options, recorder: recorder}
}

// Invoke runs one invocation: extract the duration, log receipt, burn CPU,
// then hand the outcome to the adapter. The returned error is the
// extraction error, if any.
func Invoke[E any](w *Worker, ctx Context, adapter TriggerAdapter[E], event E) (Outcome, error) {
	kind := adapter.Kind()
	execution := ctx.Execution()

	busySeconds, err := adapter.ExtractDuration(ctx, event)
	if err != nil {
		w.recorder.InvocationRejected(kind)
		return Outcome{}, err
	}

	ctx.Log(
		fmt.Sprintf("Busy Beaver %s receives %s %s, ready to work for %s seconds",
			execution.FunctionName, kind, execution.InvocationID, formatSeconds(busySeconds)),
		zap.String("trigger", kind),
		zap.Float64("busy_seconds", busySeconds),
	)

	w.recorder.InvocationStarted(kind)
	start := time.Now()
	numbers := beaver.Benchmark(busySeconds, w.options)
	end := time.Now()
	w.recorder.InvocationFinished(kind, end.Sub(start))

	outcome := Outcome{
		Kind:          kind,
		Execution:     execution,
		BusySeconds:   busySeconds,
		StartTime:     start,
		EndTime:       end,
		RandomNumbers: numbers,
	}
	adapter.Report(ctx, outcome)
	return outcome, nil
}

// logCompletion writes the completion line every adapter emits.
func logCompletion(ctx Context, o Outcome) {
	ctx.Log(
		fmt.Sprintf("Busy Beaver %s finishes %s %s, random_numbers: %s, start_time: %s, end_time: %s",
			o.Execution.FunctionName, o.Kind, o.Execution.InvocationID,
			joinNumbers(o.RandomNumbers), isoTime(o.StartTime), isoTime(o.EndTime)),
		zap.String("trigger", o.Kind),
		zap.Ints("random_numbers", o.RandomNumbers),
		zap.String("start_time", isoTime(o.StartTime)),
		zap.String("end_time", isoTime(o.EndTime)),
	)
}

func isoTime(t time.Time) string {
	return t.UTC().Format(ISO8601)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinNumbers(numbers []int) string {
	return strings.Join(lo.Map(numbers, func(n int, _ int) string {
		return strconv.Itoa(n)
	}), ",")
}
