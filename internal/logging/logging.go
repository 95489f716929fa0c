// Package logging builds the process logger. The logger is created once and
// handed to components explicitly; no global logger is configured.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the level and optional log file.
type Config struct {
	Level string
	// File, if set, receives JSON lines in addition to the console.
	File string
	// Console is where human-readable output goes; defaults to stderr.
	Console io.Writer
	// JSON writes JSON to Console instead of the pretty console format.
	JSON bool
}

// ParseLevel maps a level name to a zerolog level. Unknown names mean info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a logger and a closer for the log file, if one was opened.
// A log file that cannot be opened is reported on the console and skipped.
func New(cfg Config) (zerolog.Logger, io.Closer) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}
	var out io.Writer = console
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly}
	}

	var closer io.Closer = nopCloser{}
	var fileErr error
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			fileErr = err
		} else if f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err != nil {
			fileErr = err
		} else {
			out = zerolog.MultiLevelWriter(out, f)
			closer = f
		}
	}

	logger := zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	if fileErr != nil {
		logger.Warn().Err(fileErr).Str("file", cfg.File).Msg("log file unavailable")
	}
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
