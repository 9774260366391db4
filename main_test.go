package main

import (
	"testing"

	"busy_beaver/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func TestAppOptions_GraphIsComplete(t *testing.T) {
	assert.NoError(t, fx.ValidateApp(appOptions(config.New())))
}

func TestNewLogger(t *testing.T) {
	cfg := config.New()
	cfg.Logging.Format = "console"
	cfg.Logging.Level = "debug"

	logger, err := newLogger(cfg)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))

	cfg.Logging.Level = "chatty"
	_, err = newLogger(cfg)
	assert.Error(t, err)
}

func TestNewSources_RespectsToggles(t *testing.T) {
	cfg := config.New()
	off := false
	cfg.Triggers.Queue.Enabled = &off

	srcs := newSources(sourceParams{Config: cfg, Logger: zap.NewNop()})

	names := make([]string, 0, len(srcs))
	for _, s := range srcs {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"blob", "timer"}, names)
}
