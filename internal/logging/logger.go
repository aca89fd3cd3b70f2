package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"keygate/internal/auth"
)

// Logger adapts slog.Logger to auth.Logger
type Logger struct {
	slogger *slog.Logger
}

// NewLogger creates a logger writing to stdout
func NewLogger(config auth.LoggingConfig) (auth.Logger, error) {
	return NewLoggerWithWriter(config, os.Stdout)
}

// NewLoggerWithWriter creates a logger writing to w
func NewLoggerWithWriter(config auth.LoggingConfig, w io.Writer) (auth.Logger, error) {
	level, err := auth.ParseLogLevel(strings.ToLower(config.Level))
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	opts := &slog.HandlerOptions{Level: toSlogLevel(level)}

	var handler slog.Handler
	switch auth.ParseLogFormat(strings.ToLower(config.Format)) {
	case auth.LogFormatText:
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{slogger: slog.New(handler)}, nil
}

func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.log(slog.LevelDebug, msg, keysAndValues)
}

func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.log(slog.LevelInfo, msg, keysAndValues)
}

func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.log(slog.LevelWarn, msg, keysAndValues)
}

func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.log(slog.LevelError, msg, keysAndValues)
}

// With returns a child logger carrying the given fields
func (l *Logger) With(keysAndValues ...any) auth.Logger {
	attrs := parseKeyValues(keysAndValues)
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return &Logger{slogger: l.slogger.With(args...)}
}

func (l *Logger) log(level slog.Level, msg string, keysAndValues []any) {
	ctx := context.Background()
	if !l.slogger.Enabled(ctx, level) {
		return
	}
	l.slogger.LogAttrs(ctx, level, msg, parseKeyValues(keysAndValues)...)
}

// parseKeyValues turns alternating key/value pairs into attributes.
// A trailing key without a value and non-string keys are dropped.
func parseKeyValues(keysAndValues []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, slog.Any(key, keysAndValues[i+1]))
	}
	return attrs
}

func toSlogLevel(level auth.LogLevel) slog.Level {
	switch level {
	case auth.LogLevelDebug:
		return slog.LevelDebug
	case auth.LogLevelWarn:
		return slog.LevelWarn
	case auth.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
