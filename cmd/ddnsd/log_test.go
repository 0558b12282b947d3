package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ddnsd.log")
	logger, closer := logFromConfig(LogConfig{Level: "debug", Format: "json", Output: path, Rotation: LogRotationConfig{MaxSize: 1}})
	logger.Debug().Str("domain", "home.example.com").Msg("fetched current IP")
	logger.Trace().Msg("not written")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"message":"fetched current IP"`)
	assert.Contains(t, string(b), `"domain":"home.example.com"`)
	assert.NotContains(t, string(b), "not written")
}

func TestLogConsoleFileHasNoColor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ddnsd.log")
	logger, closer := logFromConfig(LogConfig{Level: "info", Format: "console", Output: path})
	logger.Info().Msg("initialized")
	require.NoError(t, closer.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "initialized")
	assert.NotContains(t, string(b), "\x1b[")
}

func TestLogNone(t *testing.T) {
	logger, closer := logFromConfig(LogConfig{Output: "none"})
	assert.Equal(t, zerolog.Disabled, logger.GetLevel())
	assert.NoError(t, closer.Close())
}

func TestLogLevelFallback(t *testing.T) {
	logger, closer := logFromConfig(LogConfig{Level: "", Output: "stderr"})
	defer closer.Close()
	assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
}
