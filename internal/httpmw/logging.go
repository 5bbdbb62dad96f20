package httpmw

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/sitepipe/internal/log"
)

// WithLogger stores a request-scoped logger in the context carrying the
// request id, addresses, method and path. The client address is the one
// ClientIP resolved, or the peer when it did not run.
func WithLogger(base log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := RequestIDFromContext(ctx)

			peer := r.RemoteAddr
			if host, _, err := net.SplitHostPort(peer); err == nil {
				peer = host
			}
			client := ClientIPFromContext(ctx)
			if client == "" {
				client = peer
			}
			scheme := schemeFromRequest(r)

			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(
					attribute.String("request_id", reqID),
					attribute.String("client.address", client),
					attribute.String("network.peer.address", peer),
					attribute.String("server.address", r.Host),
					attribute.String("url.scheme", scheme),
				)
			}

			L := base.With(
				"request_id", reqID,
				"client.address", client,
				"network.peer.address", peer,
				"server.address", r.Host,
				"http.request.method", r.Method,
				"url.path", r.URL.Path,
				"url.scheme", scheme,
			)
			next.ServeHTTP(w, r.WithContext(log.WithContext(ctx, L)))
		})
	}
}

// quietPaths are probe endpoints kept out of the access log.
var quietPaths = map[string]bool{
	"/healthz":   true,
	"/readyz":    true,
	"/-/healthy": true,
	"/-/ready":   true,
}

// AccessLog writes one "http request" entry per request with the logger
// WithLogger placed in the context. The pipeline kind from the
// X-Content-Kind header is included when the site handler set it.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, start: time.Now()}
			next.ServeHTTP(rw, r)

			ctx := r.Context()
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(
					attribute.Float64("http.server.ttfb_seconds", rw.ttfb.Seconds()),
					attribute.Int64("http.response.body.size", rw.bytes),
				)
			}
			if quietPaths[r.URL.Path] {
				return
			}

			route := r.URL.Path
			if rc := chi.RouteContext(ctx); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}

			fields := []any{
				"http.response.status_code", rw.statusOrOK(),
				"http.server.request.duration", time.Since(rw.start).Seconds(),
				"http.server.ttfb", rw.ttfb.Seconds(),
				"http.response.body.size", rw.bytes,
				"http.route", route,
			}
			if kind := rw.Header().Get(ContentKindHeader); kind != "" {
				fields = append(fields, "content.kind", kind)
			}
			log.FromContext(ctx).Info(ctx, "http request", fields...)
		})
	}
}

// schemeFromRequest is "http" or "https". X-Forwarded-Proto only survives
// to here when ClientIP trusted the proxy chain.
func schemeFromRequest(r *http.Request) string {
	candidates := []string{r.Header.Get("X-Forwarded-Proto")}
	if r.URL != nil {
		candidates = append(candidates, r.URL.Scheme)
	}
	for _, c := range candidates {
		first, _, _ := strings.Cut(c, ",")
		switch s := strings.ToLower(strings.TrimSpace(first)); s {
		case "http", "https":
			return s
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// Scope names the handler serving the request on its logger and span.
func Scope(handler string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = log.WithContext(ctx, log.FromContext(ctx).With("handler", handler))
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(attribute.String("app.handler", handler))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
