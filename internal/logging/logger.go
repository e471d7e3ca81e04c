// Package logging provides the structured logger used across the service.
// It keeps a small field-map API on top of zap.
package logging

import (
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is the minimum severity a Logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level. Unknown values mean info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Fields is a set of key/value pairs attached to a log entry.
type Fields map[string]interface{}

// WithField returns a single-entry field set.
func WithField(key string, value interface{}) Fields {
	return Fields{key: value}
}

// WithFields wraps an existing map as a field set.
func WithFields(fields map[string]interface{}) Fields {
	return Fields(fields)
}

// Logger writes JSON log lines through zap.
type Logger struct {
	z     *zap.Logger
	level Level
}

// New creates a logger writing to stderr at the given level.
func New(level Level) *Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter creates a logger writing to w. Tests use it to capture output.
func NewWithWriter(level Level, w io.Writer) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(w),
		zap.NewAtomicLevelAt(level.zapLevel()),
	)

	return &Logger{z: zap.New(core), level: level}
}

// Level reports the configured minimum level.
func (l *Logger) Level() Level {
	return l.level
}

// With returns a child logger that always carries fields.
func (l *Logger) With(fields ...Fields) *Logger {
	return &Logger{z: l.z.With(toZap(fields)...), level: l.level}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.z.Debug(msg, toZap(fields)...)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.z.Info(msg, toZap(fields)...)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.z.Warn(msg, toZap(fields)...)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.z.Error(msg, toZap(fields)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.z.Sync()
}

func toZap(sets []Fields) []zap.Field {
	if len(sets) == 0 {
		return nil
	}

	merged := make(map[string]interface{})
	for _, set := range sets {
		for k, v := range set {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		switch v := merged[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}
