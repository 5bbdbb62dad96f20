package httpmw

import (
	"context"
	"sync"

	"github.com/keithlinneman/sitepipe/internal/log"
)

type captured struct {
	msg    string
	err    error
	fields []any
}

// recLogger records every call and returns itself from With so child
// loggers land in the same place.
type recLogger struct {
	mu     sync.Mutex
	withs  [][]any
	infos  []captured
	warns  []captured
	errors []captured
}

func (l *recLogger) With(kv ...any) log.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.withs = append(l.withs, kv)
	return l
}

func (l *recLogger) Debug(context.Context, string, ...any) {}

func (l *recLogger) Info(_ context.Context, msg string, kv ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, captured{msg: msg, fields: kv})
}

func (l *recLogger) Warn(_ context.Context, msg string, kv ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, captured{msg: msg, fields: kv})
}

func (l *recLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, captured{msg: msg, err: err, fields: kv})
}

func (l *recLogger) Sync() error { return nil }

func field(kv []any, key string) (any, bool) {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			return kv[i+1], true
		}
	}
	return nil, false
}

func withField(l *recLogger, key string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, kv := range l.withs {
		if v, ok := field(kv, key); ok {
			return v, true
		}
	}
	return nil, false
}
