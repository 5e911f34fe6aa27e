package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/history-lens/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_JSON(t *testing.T) {
	var buf bytes.Buffer

	l, err := NewBuilder().
		WithFormat(FormatJSON).
		WithOutput(&buf).
		WithLevel(zerolog.DebugLevel).
		Build()
	require.NoError(t, err)

	l.Debug().Str("path", "a.txt").Msg("resolved")

	assert.Contains(t, buf.String(), `"level":"debug"`)
	assert.Contains(t, buf.String(), `"path":"a.txt"`)
	assert.Contains(t, buf.String(), `"message":"resolved"`)
}

func TestBuilder_LevelFilters(t *testing.T) {
	var buf bytes.Buffer

	l, err := NewBuilder().WithFormat(FormatJSON).WithOutput(&buf).WithLevel(zerolog.WarnLevel).Build()
	require.NoError(t, err)

	l.Info().Msg("hidden")
	assert.Empty(t, buf.String())
}

func TestBuilder_File(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "history-lens.log")

	l, err := NewBuilder().WithOutput(nil).WithFile(logFile, 1, 1).Build()
	require.NoError(t, err)

	l.Info().Msg("to file")

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"message":"to file"`)
}

func TestBuilder_NoOutput(t *testing.T) {
	_, err := NewBuilder().WithOutput(nil).Build()
	assert.Error(t, err)
}

func TestNew_FromConfig(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "cfg.log")

	l, err := New(config.LogConfig{Level: "error", Format: "json", File: logFile, MaxSizeMB: 1})
	require.NoError(t, err)
	assert.Equal(t, zerolog.ErrorLevel, l.GetLevel())
}
