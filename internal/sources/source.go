package sources

import "context"

// Source delivers events from outside the process to a trigger adapter.
type Source interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var (
	_ Source = (*BlobSource)(nil)
	_ Source = (*QueueSource)(nil)
	_ Source = (*TimerSource)(nil)
)
