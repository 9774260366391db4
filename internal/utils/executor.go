package utils

import (
	"context"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// CommandExecutor runs the host commands the host collector samples.
type CommandExecutor interface {
	Execute(ctx context.Context, command string, args ...string) ([]byte, error)

	GetCPUUsage(ctx context.Context) ([]byte, error)
	GetSystemUptime(ctx context.Context) ([]byte, error)
}

type SystemCommandExecutor struct {
	logger *zap.Logger
}

func NewSystemCommandExecutor(logger *zap.Logger) *SystemCommandExecutor {
	return &SystemCommandExecutor{
		logger: logger,
	}
}

// Execute executes a command and returns its standard output
func (e *SystemCommandExecutor) Execute(ctx context.Context, command string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)

	e.logger.Debug("Executing command",
		zap.String("command", command),
		zap.Strings("args", args),
	)

	output, err := cmd.Output()
	if err != nil {
		e.logger.Error("Command execution failed",
			zap.String("command", command),
			zap.Strings("args", args),
			zap.Error(err),
		)
		return nil, err
	}

	return output, nil
}

// GetCPUUsage gets CPU usage on Linux
// The command it runs is:
// - top -bn1
func (e *SystemCommandExecutor) GetCPUUsage(ctx context.Context) ([]byte, error) {
	return e.Execute(ctx, "top", "-bn1")
}

// GetSystemUptime gets uptime and load averages
// The command it runs is:
// - uptime
func (e *SystemCommandExecutor) GetSystemUptime(ctx context.Context) ([]byte, error) {
	return e.Execute(ctx, "uptime")
}

// NonEmptyLines splits command output into trimmed, non-empty lines
func NonEmptyLines(output []byte) []string {
	var result []string
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return result
}
