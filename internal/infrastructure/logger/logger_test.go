package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"WARN", zapcore.WarnLevel},
		{"  info  ", zapcore.InfoLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	log, err := New(&Config{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	})
	require.NoError(t, err)
	require.NotNil(t, log)

	assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_ConsoleFormat(t *testing.T) {
	log, err := New(&Config{
		Level:  "debug",
		Format: "console",
		Output: "stderr",
	})
	require.NoError(t, err)
	require.NotNil(t, log)

	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_EmptyTimeFormatFallsBack(t *testing.T) {
	log, err := New(&Config{Level: "info", Format: "json"})
	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNew_FileOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "echodesk.log")

	log, err := New(&Config{
		Level:  "info",
		Format: "json",
		Output: path,
	})
	require.NoError(t, err)

	log.Info("call answered")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "call answered")
}

func TestNew_UnwritableFileFallsBackToStdout(t *testing.T) {
	log, err := New(&Config{
		Level:  "info",
		Format: "json",
		Output: "/nonexistent-dir/echodesk.log",
	})
	require.NoError(t, err)
	require.NotNil(t, log)

	// Must not panic when writing
	log.Info("fallback")
}

func TestNewForEnvironment(t *testing.T) {
	prod, err := NewForEnvironment("production")
	require.NoError(t, err)
	require.NotNil(t, prod)

	dev, err := NewForEnvironment("development")
	require.NoError(t, err)
	require.NotNil(t, dev)
}

func TestDefaultAndProductionConfig(t *testing.T) {
	dev := DefaultConfig()
	assert.Equal(t, "console", dev.Format)
	assert.Equal(t, "info", dev.Level)

	prod := ProductionConfig()
	assert.Equal(t, "json", prod.Format)
	assert.Equal(t, "stdout", prod.Output)
}

func TestNamed(t *testing.T) {
	log, err := New(DefaultConfig())
	require.NoError(t, err)

	named := Named(log, "scheduler")
	assert.NotNil(t, named)
}
