// Package logging provides tsdev's structured logger: a slog wrapper with
// leveled methods, component scoping, and an optional rotating file sink.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Level mirrors slog's levels but keeps tsdev's own vocabulary at call
// sites (Debug/Info/Warn/Error) independent of slog's numeric scale.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel parses the --log-level flag value, defaulting to Info for
// anything unrecognized.
func ParseLevel(s string) Level {
	switch s {
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

// Logger is the interface every tsdev component logs through.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(err error, msg string, fields ...any)
	Error(err error, msg string, fields ...any)

	With(fields ...any) Logger
	WithComponent(component string) Logger
}

type logger struct {
	slog      *slog.Logger
	level     Level
	component string
	fields    []any
}

// Config controls where and how logs are written.
type Config struct {
	Level  Level
	JSON   bool
	Output io.Writer

	// RotateFile, if set, additionally tees output to a size-rotated
	// file at this path instead of writing only to Output.
	RotateFile string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultConfig returns a text logger at Info level writing to stderr,
// which keeps the child's stdout free of interleaved parent chatter.
func DefaultConfig() Config {
	return Config{Level: LevelInfo, Output: os.Stderr}
}

// New builds a Logger from cfg.
func New(cfg Config) Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.RotateFile != "" {
		out = io.MultiWriter(out, &lumberjack.Logger{
			Filename:   cfg.RotateFile,
			MaxSize:    orDefault(cfg.MaxSizeMB, 10),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 7),
		})
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.slog()}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &logger{slog: slog.New(handler), level: cfg.Level}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (l *logger) Debug(msg string, fields ...any) { l.log(slog.LevelDebug, nil, msg, fields...) }
func (l *logger) Info(msg string, fields ...any)  { l.log(slog.LevelInfo, nil, msg, fields...) }
func (l *logger) Warn(err error, msg string, fields ...any) {
	l.log(slog.LevelWarn, err, msg, fields...)
}
func (l *logger) Error(err error, msg string, fields ...any) {
	l.log(slog.LevelError, err, msg, fields...)
}

func (l *logger) With(fields ...any) Logger {
	return &logger{slog: l.slog, level: l.level, component: l.component, fields: append(append([]any{}, l.fields...), fields...)}
}

func (l *logger) WithComponent(component string) Logger {
	return &logger{slog: l.slog, level: l.level, component: component, fields: l.fields}
}

func (l *logger) log(level slog.Level, err error, msg string, fields ...any) {
	attrs := make([]slog.Attr, 0, len(l.fields)/2+len(fields)/2+2)
	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	attrs = append(attrs, pairsToAttrs(l.fields)...)
	attrs = append(attrs, pairsToAttrs(fields)...)

	rec := slog.NewRecord(time.Now(), level, msg, 0)
	rec.AddAttrs(attrs...)
	_ = l.slog.Handler().Handle(context.Background(), rec)
}

func pairsToAttrs(fields []any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		attrs = append(attrs, slog.Any(key, fields[i+1]))
	}
	return attrs
}
