package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger - структурированный логгер с парами ключ/значение
type Logger interface {
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
	Fatal(msg string, keyvals ...interface{})
	With(keyvals ...interface{}) Logger
}

type logger struct {
	l *slog.Logger
}

// New создает логгер, пишущий JSON в stdout с указанным уровнем
func New(level string) Logger {
	return newLogger(os.Stdout, level)
}

// NewNop возвращает логгер, который ничего не пишет (для тестов)
func NewNop() Logger {
	return newLogger(io.Discard, "error")
}

func newLogger(w io.Writer, level string) Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	return &logger{l: slog.New(handler)}
}

func parseLevel(level string) slog.Level {
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

func (l *logger) Debug(msg string, keyvals ...interface{}) { l.l.Debug(msg, keyvals...) }
func (l *logger) Info(msg string, keyvals ...interface{})  { l.l.Info(msg, keyvals...) }
func (l *logger) Warn(msg string, keyvals ...interface{})  { l.l.Warn(msg, keyvals...) }
func (l *logger) Error(msg string, keyvals ...interface{}) { l.l.Error(msg, keyvals...) }

func (l *logger) Fatal(msg string, keyvals ...interface{}) {
	l.l.Error(msg, keyvals...)
	os.Exit(1)
}

func (l *logger) With(keyvals ...interface{}) Logger {
	return &logger{l: l.l.With(keyvals...)}
}
