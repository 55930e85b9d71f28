// Package logger builds the zerolog loggers used across the engine, radios and UI.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ble-proximity.klederson.com/internal/config"
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// New creates a logger from the log settings. The returned closer releases the
// output file, if any. The TUI owns stdout, so "stdout" is only honoured for
// headless commands and everything else defaults to stderr or a file path.
func New(cfg config.LogConfig) (zerolog.Logger, func() error, error) {
	writer, closer, err := openOutput(cfg.Output)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log output: %w", err)
	}

	level, err := parseLevel(cfg)
	if err != nil {
		_ = closer()
		return zerolog.Nop(), nil, err
	}

	l := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()

	return l, closer, nil
}

// Init builds a logger and installs it as the zerolog global logger.
func Init(cfg config.LogConfig) (zerolog.Logger, func() error, error) {
	l, closer, err := New(cfg)
	if err != nil {
		return l, nil, err
	}
	log.Logger = l
	return l, closer, nil
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

func parseLevel(cfg config.LogConfig) (zerolog.Level, error) {
	if cfg.Debug {
		return zerolog.DebugLevel, nil
	}
	if cfg.Level == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	return level, nil
}

func openOutput(output string) (io.Writer, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, noop, nil
	case "stderr", "":
		return os.Stderr, noop, nil
	case "none", "discard":
		return io.Discard, noop, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}
