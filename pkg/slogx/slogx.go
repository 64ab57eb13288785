// Package slogx configures the process-wide slog logger.
//
// The TUI owns stdout, so by default logs go to a file; stderr is used only
// when no file is configured (e.g. in tests or when the UI is not running).
package slogx

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Service string
	Version string
	Env     string // e.g. "dev", "prod"
	Level   string // e.g. "debug", "info", "warn", "error"
	Format  string // e.g. "json", "text"
	File    string // log file path; empty means stderr
}

// New returns a configured slog.Logger and a close function for the
// underlying sink. The logger is also installed as the slog default.
func New(cfg Config) (*slog.Logger, func() error, error) {
	var (
		sink    io.Writer = os.Stderr
		closeFn           = func() error { return nil }
	)

	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, nil, err
		}
		sink = f
		closeFn = f.Close
	}

	opts := &slog.HandlerOptions{
		AddSource: cfg.Env == "dev",
		Level:     parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(sink, opts)
	default:
		handler = slog.NewJSONHandler(sink, opts)
	}

	logger := slog.New(handler).With(
		"service", cfg.Service,
		"version", cfg.Version,
		"env", cfg.Env,
	)

	slog.SetDefault(logger)
	return logger, closeFn, nil
}

// parseLevel maps a string to slog.Level.
func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
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
