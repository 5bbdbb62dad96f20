package opshttp

import (
	"net/http"

	"github.com/keithlinneman/sitepipe/internal/health"
)

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Probe
	Readiness   health.Probe
	// OnPanic is called when a handler panic is recovered, e.g. to bump a counter.
	OnPanic func()
}
