package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/sitepipe/internal/health"
	"github.com/keithlinneman/sitepipe/internal/httpmw"
	"github.com/keithlinneman/sitepipe/internal/log"
	"github.com/keithlinneman/sitepipe/internal/xerrors"
)

const (
	healthyPath = "/-/healthy"
	readyPath   = "/-/ready"

	// the site only answers GET and HEAD
	maxRequestBody = 1 << 10
)

// Server defaults.
const (
	DefaultPort              = 8080
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20
)

// NewHandler is the public handler: the health routes, the site handler
// for every other path, and the request middleware around both.
func NewHandler(opts *Options) http.Handler {
	L := opts.Logger
	if L == nil {
		L = log.Nop()
	}

	var recoverMW func(http.Handler) http.Handler
	if opts.UseRecoverMW {
		recoverMW = httpmw.Recover(L, opts.OnPanic)
	}

	// outermost first
	return httpmw.Chain(router(opts),
		httpmw.SecurityHeaders,
		recoverMW,
		httpmw.RequestID("X-Request-Id"),
		// the limiter keys on the resolved client ip
		httpmw.ClientIPWithOptions(opts.ClientIPOpts),
		opts.RateLimitMW,
		otelhttp.NewMiddleware("http.server",
			otelhttp.WithFilter(traced),
			// AnnotateHTTPRoute renames the span once chi has matched
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
			otelhttp.WithPublicEndpointFn(func(*http.Request) bool { return true }),
		),
		httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id"),
		opts.MetricsMW,
		// inside the span so request loggers carry trace_id
		httpmw.WithLogger(L),
	)
}

func router(opts *Options) chi.Router {
	r := chi.NewRouter()
	r.Use(
		// the pipeline emits html, and text for the plain 404
		middleware.Compress(5, "text/html", "text/plain"),
		httpmw.AnnotateHTTPRoute,
		httpmw.AccessLog(),
		httpmw.AnnotateContentKind,
		httpmw.MaxBody(maxRequestBody),
	)

	r.Group(func(r chi.Router) {
		r.Use(httpmw.Scope("health"))
		if opts.Health != nil {
			r.Get(healthyPath, health.HealthzHandler(opts.Health))
		}
		if opts.Readiness != nil {
			r.Get(readyPath, health.ReadyzHandler(opts.Readiness))
		}
	})

	// the content pipeline owns every other path and method
	if opts.SiteHandler != nil {
		site := httpmw.Scope("site")(opts.SiteHandler)
		r.NotFound(site.ServeHTTP)
		r.MethodNotAllowed(site.ServeHTTP)
	}
	return r
}

// traced skips probes and the files browsers fetch on their own.
func traced(r *http.Request) bool {
	switch r.URL.Path {
	case healthyPath, readyPath, "/favicon.ico", "/robots.txt":
		return false
	}
	return true
}

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// Start listens on opts.Port and serves NewHandler(opts) until stop is
// called.
func Start(ctx context.Context, opts *Options) (stop func(context.Context) error, err error) {
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := fmt.Sprintf(":%d", port)

	L := opts.Logger
	if L == nil {
		L = log.Nop()
	}
	srv := NewServer(addr, NewHandler(opts))

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp4", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "listen addr=%v", addr)
	}

	go func() {
		L.Info(ctx, "http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			L.Error(ctx, err, "http server error")
		}
	}()

	var once sync.Once
	var stopErr error
	stop = func(sctx context.Context) error {
		once.Do(func() {
			L.Info(sctx, "http server shutting down")
			c, cancel := context.WithTimeout(sctx, 5*time.Second)
			defer cancel()
			stopErr = srv.Shutdown(c)
		})
		return stopErr
	}
	return stop, nil
}
