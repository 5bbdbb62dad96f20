// Package xerrors wraps errors with call-site information so the logger
// can render error_links and stacks without every caller formatting them.
package xerrors

import (
	"errors"
	"fmt"
	"runtime"
)

// wrapper types answer IsXerrorsWrapper so the logger can skip them when
// it classifies the surface error type.

type withStack struct {
	err error
	pcs []uintptr
}

func (w *withStack) Error() string       { return w.err.Error() }
func (w *withStack) Unwrap() error       { return w.err }
func (w *withStack) StackPCs() []uintptr { return w.pcs }
func (w *withStack) IsXerrorsWrapper()   {}

type wrap struct {
	err error
	msg string
	pc  uintptr
}

func (w *wrap) Error() string     { return w.msg + ": " + w.err.Error() }
func (w *wrap) Unwrap() error     { return w.err }
func (w *wrap) PC() uintptr       { return w.pc }
func (w *wrap) IsXerrorsWrapper() {}

// mark ties an error to a sentinel kind without changing its message.
type mark struct {
	err  error
	kind error
	pc   uintptr
}

func (m *mark) Error() string        { return m.err.Error() }
func (m *mark) Unwrap() error        { return m.err }
func (m *mark) Is(target error) bool { return target == m.kind }
func (m *mark) PC() uintptr          { return m.pc }
func (m *mark) IsXerrorsWrapper()    {}

func captureStack(skip int) []uintptr {
	const maxDepth = 64
	pcs := make([]uintptr, maxDepth)
	// 2 skips runtime.Callers and captureStack
	n := runtime.Callers(2+skip, pcs)
	return pcs[:n]
}

func callerPC(skip int) uintptr {
	var pcs [1]uintptr
	if n := runtime.Callers(2+skip, pcs[:]); n == 0 {
		return 0
	}
	return pcs[0]
}

func withStackSkip(err error, skip int) error {
	if err == nil {
		return nil
	}
	return &withStack{err: err, pcs: captureStack(skip)}
}

// WithStack records the full caller stack on err.
func WithStack(err error) error { return withStackSkip(err, 2) }

// EnsureTrace adds a stack only when nothing in the chain carries one yet.
func EnsureTrace(err error) error {
	if err == nil {
		return nil
	}
	type hasStack interface{ StackPCs() []uintptr }
	var hs hasStack
	if errors.As(err, &hs) && hs != nil && len(hs.StackPCs()) > 0 {
		return err
	}
	return withStackSkip(err, 2)
}

func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrap{err: err, msg: msg, pc: callerPC(1)}
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrap{err: err, msg: fmt.Sprintf(format, args...), pc: callerPC(1)}
}

// Mark returns err tagged with kind: errors.Is(result, kind) reports true
// and the message of err is kept as is. Mark(nil, kind) is nil.
func Mark(err, kind error) error {
	if err == nil {
		return nil
	}
	return &mark{err: err, kind: kind, pc: callerPC(1)}
}

// KindOf returns the first kind attached with Mark, or nil.
func KindOf(err error) error {
	var m *mark
	if errors.As(err, &m) {
		return m.kind
	}
	return nil
}

func New(msg string) error             { return withStackSkip(errors.New(msg), 2) }
func Newf(f string, args ...any) error { return withStackSkip(fmt.Errorf(f, args...), 2) }
