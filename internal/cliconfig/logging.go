package cliconfig

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger returns a console logger on stderr at info level.
func Logger() zerolog.Logger {
	return NewLogger(os.Stderr)
}

// NewLogger returns a timestamped console logger writing to w.
func NewLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
}

// WithLevel returns logger at the named level ("debug", "info", "warn", ...).
func WithLevel(logger zerolog.Logger, level string) (zerolog.Logger, error) {
	if level == "" {
		return logger, nil
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return logger, err
	}
	return logger.Level(lvl), nil
}
