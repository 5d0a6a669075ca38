package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "vasalli.log")

	logger := NewLogger(Config{Level: "debug", File: path})
	logger.Info().Str("component", "test").Msg("hello")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"message":"hello"`)
	assert.Contains(t, string(raw), `"component":"test"`)
	assert.Equal(t, zerolog.DebugLevel, logger.GetLevel())
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	logger := NewLogger(Config{Level: "not-a-level"})
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}

func TestNewLoggerConsoleFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	logger := NewLogger(Config{Format: "console", File: path})
	logger.Warn().Msg("plain text")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(string(raw), "{"))
	assert.Contains(t, string(raw), "plain text")
}
