package logger

import (
	"io"
	"log/slog"
	"os"
)

type Logger interface {
	Info(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type StdLogger struct {
	internalLogger *slog.Logger
}

func New() Logger {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter builds a Logger emitting to the given writer. Tests use this
// to capture pipeline output.
func NewWithWriter(w io.Writer) Logger {
	l := slog.New(slog.NewTextHandler(w, nil))
	return &StdLogger{internalLogger: l}
}

func (l *StdLogger) Info(msg string, args ...interface{}) {
	l.internalLogger.Info(msg, args...)
}

func (l *StdLogger) Debug(msg string, args ...interface{}) {
	l.internalLogger.Debug(msg, args...)
}

func (l *StdLogger) Warn(msg string, args ...interface{}) {
	l.internalLogger.Warn(msg, args...)
}

func (l *StdLogger) Error(msg string, args ...interface{}) {
	l.internalLogger.Error(msg, args...)
}
