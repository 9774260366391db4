package triggers

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Execution identifies one invocation of a trigger function.
type Execution struct {
	FunctionName string
	InvocationID string
}

// NewExecution assigns a fresh invocation id to functionName.
func NewExecution(functionName string) Execution {
	return Execution{
		FunctionName: functionName,
		InvocationID: uuid.NewString(),
	}
}

// Context is what an adapter gets from whoever delivered the event: the
// execution metadata and a place to log.
type Context interface {
	Execution() Execution
	Log(msg string, fields ...zap.Field)
}

type invocationContext struct {
	execution Execution
	logger    *zap.Logger
}

// NewContext returns a Context whose log lines carry the function name and
// invocation id.
func NewContext(logger *zap.Logger, execution Execution) Context {
	return &invocationContext{
		execution: execution,
		logger: logger.With(
			zap.String("function_name", execution.FunctionName),
			zap.String("invocation_id", execution.InvocationID),
		),
	}
}

// NewInvocation is NewContext for a freshly assigned execution.
func NewInvocation(logger *zap.Logger, functionName string) Context {
	return NewContext(logger, NewExecution(functionName))
}

func (c *invocationContext) Execution() Execution {
	return c.execution
}

func (c *invocationContext) Log(msg string, fields ...zap.Field) {
	c.logger.Info(msg, fields...)
}
