package main

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogConfig struct {
	Level string `mapstructure:"level"`
	// Format is "console" or "json".
	Format string `mapstructure:"format"`
	// Output is "stderr", "stdout", "none", or the path of a log file.
	Output   string            `mapstructure:"output"`
	Rotation LogRotationConfig `mapstructure:"rotation"`
}

// LogRotationConfig applies when Output is a file.
type LogRotationConfig struct {
	// MaxSize is in megabytes.
	MaxSize int `mapstructure:"max_size"`
	// MaxAge is in days.
	MaxAge     int  `mapstructure:"max_age"`
	MaxBackups int  `mapstructure:"max_backups"`
	LocalTime  bool `mapstructure:"local_time"`
	Compress   bool `mapstructure:"compress"`
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// logFromConfig builds the process logger.
// The returned closer releases the log file, if any.
func logFromConfig(cfg LogConfig) (zerolog.Logger, io.Closer) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer
	var closer io.Closer = nopCloser{}
	color := false
	switch cfg.Output {
	case "none", "null":
		return zerolog.Nop(), closer
	case "stdout":
		out, color = os.Stdout, true
	case "stderr", "":
		out, color = os.Stderr, true
	default:
		lj := &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    cfg.Rotation.MaxSize,
			MaxAge:     cfg.Rotation.MaxAge,
			MaxBackups: cfg.Rotation.MaxBackups,
			LocalTime:  cfg.Rotation.LocalTime,
			Compress:   cfg.Rotation.Compress,
		}
		out, closer = lj, lj
	}

	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: !color}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), closer
}
