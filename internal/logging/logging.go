// Package logging provides opt-in file logging with size-based rotation.
//
// Without --debug amantmpl logs nothing beyond warnings to stderr. With
// --debug, JSON logs are written to ~/.amantmpl/logs/amantmpl.log.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the log file.
	FilePath string
	// MaxSizeMB is the size at which the file is rotated (default: 10).
	MaxSizeMB int
	// MaxFiles is the number of rotated files kept (default: 3).
	MaxFiles int
	// WriteToStderr also writes every record to stderr.
	WriteToStderr bool
}

// DefaultConfig returns file logging defaults at the given level.
func DefaultConfig(level string) Config {
	return Config{
		Level:     level,
		FilePath:  DefaultLogPath(),
		MaxSizeMB: 10,
		MaxFiles:  3,
	}
}

// Setup opens the log file and returns a JSON logger writing to it, plus a
// cleanup function that closes the file.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	if cfg.FilePath == "" {
		cfg.FilePath = DefaultLogPath()
	}

	writer, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = writer
	if cfg.WriteToStderr {
		out = io.MultiWriter(writer, os.Stderr)
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	}))

	cleanup := func() {
		_ = writer.Close()
	}
	return logger, cleanup, nil
}

// NewStderrLogger returns the quiet default logger used without --debug.
func NewStderrLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// ParseLevel converts a level name to slog.Level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
