package triggers

import (
	"fmt"

	"busy_beaver/internal/beaver"

	"go.uber.org/zap"
)

// QueueMessage is one message pulled off the work queue. Body encodes the
// number of seconds to work for, in decimal or base64.
type QueueMessage struct {
	Subject string
	Body    string
}

type QueueTrigger struct {
	worker       *Worker
	functionName string
}

func NewQueueTrigger(worker *Worker, functionName string) *QueueTrigger {
	return &QueueTrigger{worker: worker, functionName: functionName}
}

func (q *QueueTrigger) FunctionName() string { return q.functionName }

func (q *QueueTrigger) Kind() string { return "queue" }

func (q *QueueTrigger) ExtractDuration(ctx Context, msg QueueMessage) (float64, error) {
	busySeconds, err := beaver.ParseBusySeconds(msg.Body)
	if err != nil {
		execution := ctx.Execution()
		ctx.Log(
			fmt.Sprintf("Busy Beaver %s failes to process queue %s, message cannot be parsed %s",
				execution.FunctionName, execution.InvocationID, msg.Body),
			zap.String("trigger", q.Kind()),
			zap.String("subject", msg.Subject),
			zap.Error(err),
		)
		return 0, err
	}
	return busySeconds, nil
}

func (q *QueueTrigger) Report(ctx Context, outcome Outcome) {
	logCompletion(ctx, outcome)
}

// Handle runs one queue invocation to completion.
func (q *QueueTrigger) Handle(ctx Context, msg QueueMessage) {
	_, _ = Invoke[QueueMessage](q.worker, ctx, q, msg)
}
