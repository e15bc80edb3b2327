package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger represents a logger instance
type Logger = *logrus.Logger

// Fields represents structured logging fields
type Fields = logrus.Fields

// Entry is a logger with fields attached
type Entry = *logrus.Entry

// NewLogger creates a JSON logger at the given level ("debug", "info", ...).
// Unknown levels fall back to info.
func NewLogger(level string) Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

// NewDiscardLogger returns a logger that drops everything. Used by tests.
func NewDiscardLogger() Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
