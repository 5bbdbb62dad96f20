// Package sitehandler serves the content pipeline over HTTP.
package sitehandler

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/keithlinneman/sitepipe/internal/httpmw"
	"github.com/keithlinneman/sitepipe/internal/log"
)

type Handler struct {
	opts Options
}

func New(opts *Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: *opts}, nil
}

// ServeHTTP answers a declined not-found with the embedded 404 page.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, nil)
}

// Middleware hands declined requests to next with the status forced to 404.
func (h *Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, next)
	})
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	// hardening: only allow GET/HEAD
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	res, err := h.opts.Pipeline.Resolve(ctx, r.URL.Path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// client went away; nothing useful to send
			return
		}
		h.logger(ctx).Error(ctx, err, "content pipeline failed", "path", r.URL.Path)
		h.serveServerError(w, r)
		return
	}

	w.Header().Set(httpmw.ContentKindHeader, res.Kind.String())
	w.Header().Set("Cache-Control", cacheControlFor(res, &h.opts))

	if res.Declined {
		if next != nil {
			next.ServeHTTP(&statusOverrideWriter{ResponseWriter: w, status: res.Status}, r)
			return
		}
		h.serveFallbackNotFound(w, r)
		return
	}

	if res.Status == http.StatusOK {
		// ServeContent handles HEAD, Range and conditional requests
		w.Header().Set("Content-Type", res.ContentType)
		http.ServeContent(w, r, res.Target.Name, time.Time{}, bytes.NewReader(res.Body))
		return
	}
	writeBody(w, r, res.Status, res.ContentType, res.Body)
}

func (h *Handler) logger(ctx context.Context) log.Logger {
	if L := log.FromContext(ctx); L != log.Nop() {
		return L
	}
	return h.opts.Logger
}

func (h *Handler) serveServerError(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	body, err := fs.ReadFile(h.opts.FallbackFS, h.opts.ServerErrorFile)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeBody(w, r, http.StatusInternalServerError, "text/html; charset=utf-8", body)
}

func (h *Handler) serveFallbackNotFound(w http.ResponseWriter, r *http.Request) {
	body, err := fs.ReadFile(h.opts.FallbackFS, h.opts.Fallback404File)
	if err != nil {
		// last resort: plain text
		writeBody(w, r, http.StatusNotFound, "text/plain; charset=utf-8", []byte("404 page not found"))
		return
	}
	writeBody(w, r, http.StatusNotFound, "text/html; charset=utf-8", body)
}

func writeBody(w http.ResponseWriter, r *http.Request, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}

// statusOverrideWriter forces the first WriteHeader to status; the next
// handler in a declined chain otherwise answers 200.
type statusOverrideWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusOverrideWriter) WriteHeader(code int) {
	if w.wroteHeader {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *statusOverrideWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusOverrideWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
