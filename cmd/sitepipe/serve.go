package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keithlinneman/sitepipe/internal/health"
	"github.com/keithlinneman/sitepipe/internal/httpmw"
	"github.com/keithlinneman/sitepipe/internal/httpserver"
	"github.com/keithlinneman/sitepipe/internal/log"
	"github.com/keithlinneman/sitepipe/internal/metrics"
	"github.com/keithlinneman/sitepipe/internal/opshttp"
	"github.com/keithlinneman/sitepipe/internal/otelx"
	"github.com/keithlinneman/sitepipe/internal/prof"
	"github.com/keithlinneman/sitepipe/internal/ratelimit"
	"github.com/keithlinneman/sitepipe/internal/sitehandler"
	v "github.com/keithlinneman/sitepipe/internal/version"
	"github.com/keithlinneman/sitepipe/internal/webassets"
)

// serve runs until ctx is cancelled, then drains and shuts down.
func (a *app) serve(ctx context.Context) error {
	conf := a.conf
	vi := v.Get()

	L, err := a.logger(os.Stdout, "server")
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	// no-op for slog, kept so a buffered backend gets flushed
	defer L.Sync()
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"commit_date", vi.CommitDate,
		"build_id", vi.BuildId,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.VCSDirty,
		"base", conf.Base,
		"layout_file", conf.LayoutFile,
		"marked", conf.Marked,
		"log", conf.Log,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"pyro_server", conf.PyroServer,
		"pyro_tenant", conf.PyroTenantID,
		"trace_sample", conf.TraceSample,
		"trusted_hops", conf.TrustedHops,
		"rate_limit_rps", conf.RateLimitRPS,
		"rate_limit_burst", conf.RateLimitBurst,
	)

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, "server", &vi)

	// Setup pyroscope profiling
	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       v.AppName,
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
			"build_id":  vi.BuildId,
			"source":    "go-agent",
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	m.SetProfilingActive(conf.EnablePyroscope && err == nil)
	defer stopProf()

	// Setup otel for tracing
	// Insecure is true because the collector runs on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
		shutdownOTEL = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	// content pipeline
	p, err := a.newPipeline(L, m)
	if err != nil {
		return fmt.Errorf("content pipeline: %w", err)
	}
	root := p.Root()
	m.SetContentRoot(root.Dir)
	L.Info(ctx, "content root ready", "publicdir", root.Dir, "basedir", root.Parent, "stages", p.Stages())

	siteHandler, err := sitehandler.New(&sitehandler.Options{
		Logger:     L,
		Pipeline:   p,
		FallbackFS: webassets.FallbackFS(),
	})
	if err != nil {
		return fmt.Errorf("site handler: %w", err)
	}

	// setup toggle for server shutdown
	var gate health.ShutdownGate

	// ready while not draining and the content root is still readable
	readiness := health.All(
		health.Named("shutdown", gate.Probe()),
		health.Named("content root", root.Probe()),
	)

	var rateLimitMW func(next http.Handler) http.Handler
	if conf.RateLimitRPS > 0 {
		limiter := ratelimit.New(ctx,
			ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
			// increment prometheus counter on each denied request
			ratelimit.WithOnDenied(func(ip string) {
				m.IncRateLimitDenied()
			}),
			// only log the first time an ip is denied each time it is cleaned from the bucket
			ratelimit.WithOnFirstDenied(func(ip string) {
				L.Warn(ctx, "rate limit triggered", "ip", ip)
			}),
			ratelimit.WithOnCapacity(func() {
				m.IncRateLimitCapacity()
				L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
			}),
		)
		rateLimitMW = limiter.Middleware
	}

	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		SiteHandler:  siteHandler,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  rateLimitMW,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedHops},
	})
	if err != nil {
		return fmt.Errorf("start site http listener: %w", err)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// admin listener only answers private and loopback clients
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:        conf.AdminPort,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      health.Fixed(true, ""),
		Readiness:   readiness,
		OnPanic:     m.IncHttpPanic,
	})
	if err != nil {
		return fmt.Errorf("start ops http listener: %w", err)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		// worst case systemd kills the process after its start timeout
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	// wait for ctrl+c / sigterm
	<-ctx.Done()
	bg := log.WithContext(context.Background(), L)
	L.Info(bg, "shutdown signal received")

	// fail readiness so load balancers stop sending traffic
	gate.Set("draining")
	L.Info(bg, "shutdown gate closed, draining", "drain_period", conf.DrainPeriod.String())

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(conf.DrainPeriod):
		L.Info(bg, "drain period complete")
	case <-forceCh:
		L.Warn(bg, "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(bg, 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "site http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}
	stopProf()

	L.Info(bg, "shutdown complete")
	return nil
}

func notifySystemd() error {
	// set by systemd for Type=notify units
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		conn.Close()
		return fmt.Errorf("systemd notify failed: write failed: %w", err)
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
