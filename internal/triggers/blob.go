package triggers

import (
	"fmt"

	"busy_beaver/internal/beaver"

	"go.uber.org/zap"
)

// BlobEvent announces a new blob. Name encodes the number of seconds to
// work for, in decimal or base64.
type BlobEvent struct {
	Name string
	Path string
}

type BlobTrigger struct {
	worker       *Worker
	functionName string
}

func NewBlobTrigger(worker *Worker, functionName string) *BlobTrigger {
	return &BlobTrigger{worker: worker, functionName: functionName}
}

func (b *BlobTrigger) FunctionName() string { return b.functionName }

func (b *BlobTrigger) Kind() string { return "blob" }

func (b *BlobTrigger) ExtractDuration(ctx Context, event BlobEvent) (float64, error) {
	ctx.Log("!!! BlobTrigger "+event.Name, zap.String("blob_path", event.Path))

	busySeconds, err := beaver.ParseBusySeconds(event.Name)
	if err != nil {
		execution := ctx.Execution()
		ctx.Log(
			fmt.Sprintf("Busy Beaver %s failes to process blob %s, blob name cannot be parsed %s",
				execution.FunctionName, execution.InvocationID, event.Name),
			zap.String("trigger", b.Kind()),
			zap.Error(err),
		)
		return 0, err
	}
	return busySeconds, nil
}

func (b *BlobTrigger) Report(ctx Context, outcome Outcome) {
	logCompletion(ctx, outcome)
}

// Handle runs one blob invocation to completion.
func (b *BlobTrigger) Handle(ctx Context, event BlobEvent) {
	_, _ = Invoke[BlobEvent](b.worker, ctx, b, event)
}
