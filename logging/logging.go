// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/toolchat"
	"github.com/rs/zerolog"
)

// ParseLevel parses a zerolog level name. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("logging: %w: unknown level %q", toolchat.ErrValidation, s)
	}
	return lvl, nil
}

// Logger is a configured logger and the resource backing it.
type Logger struct {
	zerolog.Logger
	closer io.Closer
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// New builds a logger from cfg. With a file configured, JSON lines are
// appended to it. Otherwise console output goes to console when non-nil,
// and logs are discarded when console is nil.
func New(cfg toolchat.LogConfig, console io.Writer) (*Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("logging: create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		return &Logger{Logger: zerolog.New(f).Level(lvl).With().Timestamp().Logger(), closer: f}, nil
	}

	if console == nil {
		return &Logger{Logger: zerolog.Nop()}, nil
	}
	w := zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339, NoColor: true}
	return &Logger{Logger: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}, nil
}
