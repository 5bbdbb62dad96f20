package opshttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/keithlinneman/sitepipe/internal/health"
	"github.com/keithlinneman/sitepipe/internal/httpmw"
	"github.com/keithlinneman/sitepipe/internal/log"
	"github.com/keithlinneman/sitepipe/internal/xerrors"
)

const defaultPort = 9000

// Handler is the admin mux: /healthz, /readyz, /metrics when a metrics
// handler is set, and /debug/pprof/ when enabled. Only loopback, private
// and link-local peers are answered.
func Handler(L log.Logger, opts *Options) http.Handler {
	if opts == nil {
		opts = &Options{}
	}
	mux := http.NewServeMux()
	mux.Handle("/healthz", health.HealthzHandler(opts.Health))
	mux.Handle("/readyz", health.ReadyzHandler(opts.Readiness))
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}
	if opts.EnablePprof {
		RegisterPprof(mux)
	} else {
		mux.Handle("/debug/pprof/", http.NotFoundHandler())
	}

	h := requireNonPublicNetwork(L, mux)
	return httpmw.Recover(L, opts.OnPanic)(h)
}

// Start serves Handler on opts.Port (default 9000) until stop is called.
func Start(ctx context.Context, L log.Logger, opts *Options) (stop func(context.Context) error, err error) {
	if opts == nil {
		opts = &Options{}
	}
	port := opts.Port
	if port == 0 {
		port = defaultPort
	}
	addr := fmt.Sprintf(":%d", port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           Handler(L, opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// pprof profile and trace stream for 30s by default
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "listen admin addr=%v", addr)
	}

	go func() {
		L.Info(ctx, "ops http server listening", "addr", ln.Addr().String(), "pprof", opts.EnablePprof)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			L.Error(ctx, err, "ops http server error")
		}
	}()

	var once sync.Once
	var stopErr error
	stop = func(sctx context.Context) error {
		once.Do(func() {
			L.Info(sctx, "ops http server shutting down")
			c, cancel := context.WithTimeout(sctx, 5*time.Second)
			defer cancel()
			stopErr = srv.Shutdown(c)
		})
		return stopErr
	}
	return stop, nil
}

// requireNonPublicNetwork answers 403 to peers outside loopback, private
// and link-local ranges. Only RemoteAddr is consulted.
func requireNonPublicNetwork(L log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ap, err := netip.ParseAddrPort(r.RemoteAddr)
		if err != nil {
			L.Warn(r.Context(), "ops request with unparseable remote addr", "remote_addr", r.RemoteAddr)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if ip := ap.Addr().Unmap(); !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsLinkLocalUnicast() {
			L.Warn(r.Context(), "ops request from public address rejected", "remote_ip", ip.String(), "path", r.URL.Path)
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
