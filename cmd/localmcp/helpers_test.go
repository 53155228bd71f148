package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOCALMCP_DOTENV_TEST=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("LOCALMCP_DOTENV_TEST") })

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("LOCALMCP_DOTENV_TEST"))
}

func TestLoadDotEnvMissing(t *testing.T) {
	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestNewLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "localmcp.log")

	log, closeLog, err := newLogger("debug", path, true)
	require.NoError(t, err)

	log.Debug("query routed", "backend", "binja")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "backend=binja"))
}

func TestNewLoggerLevel(t *testing.T) {
	log, closeLog, err := newLogger("warn", "", false)
	require.NoError(t, err)
	defer func() { _ = closeLog() }()

	assert.False(t, log.Enabled(t.Context(), -4))
	assert.True(t, log.Enabled(t.Context(), 4))
}

func TestNewLoggerBadLevel(t *testing.T) {
	_, _, err := newLogger("loud", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log level")
}
