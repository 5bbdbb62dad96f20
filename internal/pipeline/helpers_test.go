package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/keithlinneman/sitepipe/internal/content"
	"github.com/keithlinneman/sitepipe/internal/log"
)

func mapfs(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for k, v := range files {
		fsys[k] = &fstest.MapFile{Data: []byte(v)}
	}
	return fsys
}

// spyFS records every name opened.
type spyFS struct {
	fs.FS
	mu     sync.Mutex
	opened []string
}

func (s *spyFS) Open(name string) (fs.File, error) {
	s.mu.Lock()
	s.opened = append(s.opened, name)
	s.mu.Unlock()
	return s.FS.Open(name)
}

func (s *spyFS) opens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.opened...)
}

var errDisk = errors.New("input/output error")

// failFS opens everything but fails reads of one name.
type failFS struct {
	fs.FS
	name string
}

func (f failFS) Open(name string) (fs.File, error) {
	file, err := f.FS.Open(name)
	if err != nil || name != f.name {
		return file, err
	}
	return failFile{file}, nil
}

type failFile struct{ fs.File }

func (failFile) Read([]byte) (int, error) { return 0, errDisk }

type spyObserver struct {
	mu           sync.Mutex
	resolutions  []string
	rejections   int
	errors       []string
	aggregations int
	files        int
}

func (o *spyObserver) ObserveResolution(kind string, status int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.resolutions = append(o.resolutions, kind)
}

func (o *spyObserver) IncPrivacyRejection() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejections++
}

func (o *spyObserver) IncPipelineError(kind string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errors = append(o.errors, kind)
}

func (o *spyObserver) ObserveDataAggregation(_ time.Duration, files int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.aggregations++
	o.files = files
}

type logLine struct {
	msg string
	err error
	kv  []any
}

type recLogger struct {
	mu     sync.Mutex
	infos  []logLine
	warns  []logLine
	errors []logLine
}

func (l *recLogger) With(...any) log.Logger                { return l }
func (l *recLogger) Debug(context.Context, string, ...any) {}
func (l *recLogger) Sync() error                           { return nil }

func (l *recLogger) Info(_ context.Context, msg string, kv ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, logLine{msg: msg, kv: kv})
}

func (l *recLogger) Warn(_ context.Context, msg string, kv ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, logLine{msg: msg, kv: kv})
}

func (l *recLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, logLine{msg: msg, err: err, kv: kv})
}

type fixture struct {
	public fs.FS
	parent fs.FS
	cfg    Config
	logger log.Logger
	obs    Observer
}

func (f fixture) build(t *testing.T) *Pipeline {
	t.Helper()
	if f.public == nil {
		f.public = fstest.MapFS{}
	}
	if f.parent == nil {
		f.parent = fstest.MapFS{}
	}
	root := content.NewFS("/srv/site/public", f.public, f.parent)
	p, err := New(f.cfg, Options{Logger: f.logger, Metrics: f.obs, Root: root})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func mustResolve(t *testing.T, p *Pipeline, path string) *Result {
	t.Helper()
	res, err := p.Resolve(context.Background(), path)
	if err != nil {
		t.Fatalf("Resolve(%q): %v", path, err)
	}
	if res == nil {
		t.Fatalf("Resolve(%q): nil result", path)
	}
	return res
}
