// Package log is the structured logger used across sitepipe.
//
// Every call takes a context so trace and request fields travel with the
// record. Error takes the error as its own argument and expands its chain,
// types and call sites into fields.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

type Logger interface {
	With(kv ...any) Logger

	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, err error, msg string, kv ...any)

	Sync() error
}

type Options struct {
	App               string
	Version           string
	Commit            string
	Level             slog.Level
	StacktraceLevel   slog.Level
	JsonFormat        bool
	MaxErrorLinks     int
	IncludeErrorLinks bool
	// Writer defaults to os.Stdout
	Writer io.Writer
}

func New(opts Options) (Logger, error) { return newSlog(opts) }

// Toggle returns l when enabled and a silent logger otherwise. Components
// that emit optional diagnostics take the result at construction time.
func Toggle(enabled bool, l Logger) Logger {
	if !enabled || l == nil {
		return Nop()
	}
	return l
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %s (valid levels are debug|info|warn|error)", s)
	}
}
