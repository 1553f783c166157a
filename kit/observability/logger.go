package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	l *slog.Logger
}

type LoggerConfig struct {
	Level  string
	Format string
	Output io.Writer
}

func NewLogger() *Logger {
	return NewLoggerWithConfig(LoggerConfig{})
}

func NewLoggerWithConfig(cfg LoggerConfig) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	} else {
		h = slog.NewJSONHandler(out, opts)
	}
	return &Logger{l: slog.New(h)}
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func (lg *Logger) With(kv ...any) *Logger {
	if lg == nil {
		return nil
	}
	return &Logger{l: lg.l.With(kv...)}
}

func (lg *Logger) Debug(msg string, kv ...any) {
	if lg == nil {
		return
	}
	lg.l.Debug(msg, kv...)
}

func (lg *Logger) Info(msg string, kv ...any) {
	if lg == nil {
		return
	}
	lg.l.Info(msg, kv...)
}

func (lg *Logger) Warn(msg string, kv ...any) {
	if lg == nil {
		return
	}
	lg.l.Warn(msg, kv...)
}

func (lg *Logger) Error(msg string, kv ...any) {
	if lg == nil {
		return
	}
	lg.l.Error(msg, kv...)
}
