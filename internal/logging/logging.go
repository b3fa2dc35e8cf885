// Package logging builds the process logger on log/slog.
//
// The server owns stdout for the protocol, so logs go to a file (by default
// parsec.log in the temp directory) or to stderr when the path is "-".
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Log levels re-exported for convenience
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Stderr selects standard error as the log destination.
const Stderr = "-"

// Config holds logging configuration
type Config struct {
	Level  slog.Level
	Format string // "text" or "json"
	File   string // path, or Stderr
	Source string // component name for context
}

// DefaultFile is the log path used when none is configured.
func DefaultFile() string {
	return filepath.Join(os.TempDir(), "parsec.log")
}

// DefaultConfig returns defaults for the given source component.
func DefaultConfig(source string) Config {
	return Config{
		Level:  LevelInfo,
		Format: "text",
		File:   DefaultFile(),
		Source: source,
	}
}

// ParseLevel maps a level name to its slog level. Unknown names are an error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// New creates a logger writing to w.
func New(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	if cfg.Source != "" {
		logger = logger.With("source", cfg.Source)
	}
	return logger
}

// Open creates a logger for cfg.File. The returned closer releases the log
// file and is safe to call when logging goes to stderr.
func Open(cfg Config) (*slog.Logger, io.Closer, error) {
	if cfg.File == "" {
		cfg.File = DefaultFile()
	}
	if cfg.File == Stderr {
		return New(cfg, os.Stderr), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return New(cfg, f), f, nil
}

// Nop returns a logger that discards all output.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
