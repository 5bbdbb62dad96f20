package httpserver

import (
	"net/http"

	"github.com/keithlinneman/sitepipe/internal/health"
	"github.com/keithlinneman/sitepipe/internal/httpmw"
	"github.com/keithlinneman/sitepipe/internal/log"
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	// OnPanic runs after a recovered handler panic, e.g. to bump a counter.
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions
	Health       health.Probe
	Readiness    health.Probe
	// SiteHandler answers every path no other route matched.
	SiteHandler http.Handler
}
