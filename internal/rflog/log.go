// Package rflog provides the logging interface used across ragforge's
// pipelines. The shape — Debug/Info/Warn/Error plus a global level and a
// package-level default logger — mirrors the teacher's rag/log.go; the
// implementation is backed by zerolog instead of the standard log package.
package rflog

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelOff Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelOff:
		return zerolog.Disabled
	case LevelError:
		return zerolog.ErrorLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l Level) String() string {
	return [...]string{"OFF", "ERROR", "WARN", "INFO", "DEBUG"}[l]
}

// ParseLevel maps a config string to a Level, defaulting to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OFF":
		return LevelOff
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "DEBUG":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Logger is the structured logging interface every ragforge component logs
// through. Key-value pairs follow zerolog's convention: alternating key,
// value pairs, keys must be strings.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	SetLevel(level Level)
	With(kv ...any) Logger
}

type zlogger struct {
	l zerolog.Logger
}

// New creates a Logger writing structured JSON to stderr at the given level.
func New(level Level) Logger {
	zerolog.SetGlobalLevel(level.zerolog())
	return &zlogger{l: zerolog.New(os.Stderr).With().Timestamp().Logger()}
}

func (z *zlogger) event(lvl zerolog.Level, msg string, kv ...any) {
	ev := z.l.WithLevel(lvl)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		if key == "" {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}

func (z *zlogger) Debug(msg string, kv ...any) { z.event(zerolog.DebugLevel, msg, kv...) }
func (z *zlogger) Info(msg string, kv ...any)  { z.event(zerolog.InfoLevel, msg, kv...) }
func (z *zlogger) Warn(msg string, kv ...any)  { z.event(zerolog.WarnLevel, msg, kv...) }
func (z *zlogger) Error(msg string, kv ...any) { z.event(zerolog.ErrorLevel, msg, kv...) }

func (z *zlogger) SetLevel(level Level) {
	z.l = z.l.Level(level.zerolog())
}

func (z *zlogger) With(kv ...any) Logger {
	ctx := z.l.With()
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		if key == "" {
			continue
		}
		ctx = ctx.Interface(key, kv[i+1])
	}
	return &zlogger{l: ctx.Logger()}
}

// Default is the package-level logger used by components that don't carry
// their own injected Logger. It mirrors the teacher's GlobalLogger.
var Default Logger = New(LevelInfo)

// SetGlobalLevel sets the level of the Default logger.
func SetGlobalLevel(level Level) { Default.SetLevel(level) }

// WithTrace enriches l with trace_id/span_id from ctx's active otel span,
// so C9's per-stage spans and their log lines share a correlation key.
func WithTrace(ctx context.Context, l Logger) Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return l
	}
	kv := []any{"trace_id", sc.TraceID().String()}
	if sc.HasSpanID() {
		kv = append(kv, "span_id", sc.SpanID().String())
	}
	return l.With(kv...)
}
