package httpmw

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/sitepipe/internal/log"
)

func TestSchemeFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		proto string
		url   string
		tls   bool
		want  string
	}{
		{"default", "", "", false, "http"},
		{"tls", "", "", true, "https"},
		{"forwarded https", "https", "", false, "https"},
		{"forwarded upper", "HTTPS", "", false, "https"},
		{"forwarded list", "https, http", "", false, "https"},
		{"forwarded junk falls through", "gopher", "", true, "https"},
		{"forwarded injection", "https\r\nX-Evil: 1", "", false, "http"},
		{"url scheme", "", "https", false, "https"},
		{"url junk", "", "ftp", false, "http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.proto != "" {
				r.Header["X-Forwarded-Proto"] = []string{tt.proto}
			}
			r.URL.Scheme = tt.url
			if tt.tls {
				r.TLS = &tls.ConnectionState{}
			} else {
				r.TLS = nil
			}
			if got := schemeFromRequest(r); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func FuzzSchemeFromRequest(f *testing.F) {
	for _, s := range []string{"http", "HTTPS", "ftp", "", "https\x00x", strings.Repeat("A", 4096)} {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, proto string) {
		r := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		r.Header["X-Forwarded-Proto"] = []string{proto}
		if got := schemeFromRequest(r); got != "http" && got != "https" {
			t.Fatalf("scheme %q for proto %q", got, proto)
		}
	})
}

func TestWithLogger_Fields(t *testing.T) {
	L := &recLogger{}
	var inCtx log.Logger
	h := Chain(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { inCtx = log.FromContext(r.Context()) }),
		RequestID(""),
		ClientIPWithOptions(ClientIPOptions{TrustedHops: 1}),
		WithLogger(L),
	)

	r := httptest.NewRequest(http.MethodGet, "/blog/post?utm=x", http.NoBody)
	r.RemoteAddr = "10.0.0.2:41000"
	r.Header.Set("X-Forwarded-For", "198.51.100.20")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if inCtx != L {
		t.Fatal("request logger not stored in context")
	}
	want := map[string]any{
		"client.address":       "198.51.100.20",
		"network.peer.address": "10.0.0.2",
		"url.path":             "/blog/post",
		"http.request.method":  "GET",
		"url.scheme":           "http",
	}
	for k, v := range want {
		if got, _ := withField(L, k); got != v {
			t.Errorf("%s = %v, want %v", k, got, v)
		}
	}
	if id, _ := withField(L, "request_id"); id == "" || id == nil {
		t.Error("request_id missing")
	}
	if _, ok := withField(L, "url.query"); ok {
		t.Error("query string must not be logged")
	}
}

func withRecLogger(L *recLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(log.WithContext(r.Context(), L)))
	})
}

func TestAccessLog_LogsPage(t *testing.T) {
	L := &recLogger{}
	// mounted inside the router as httpserver does, so the route context
	// is populated by the time the entry is written
	router := chi.NewRouter()
	router.Use(AccessLog())
	router.Get("/docs/{page}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(ContentKindHeader, "markup")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	})
	h := withRecLogger(L, router)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/docs/intro", http.NoBody))

	if len(L.infos) != 1 || L.infos[0].msg != "http request" {
		t.Fatalf("infos = %+v", L.infos)
	}
	f := L.infos[0].fields
	checks := map[string]any{
		"http.response.status_code": http.StatusOK,
		"http.response.body.size":   int64(5),
		"http.route":                "/docs/{page}",
		"content.kind":              "markup",
	}
	for k, v := range checks {
		if got, _ := field(f, k); got != v {
			t.Errorf("%s = %v, want %v", k, got, v)
		}
	}
	if d, ok := field(f, "http.server.request.duration"); !ok || d.(float64) < 0 {
		t.Errorf("duration = %v", d)
	}
}

func TestAccessLog_FirstStatusWins(t *testing.T) {
	L := &recLogger{}
	h := withRecLogger(L, AccessLog()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.WriteHeader(http.StatusOK)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", http.NoBody))

	if got, _ := field(L.infos[0].fields, "http.response.status_code"); got != http.StatusNotFound {
		t.Fatalf("status = %v, want 404", got)
	}
}

func TestAccessLog_SkipsQuietPaths(t *testing.T) {
	L := &recLogger{}
	h := withRecLogger(L, AccessLog()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))
	for _, p := range []string{"/healthz", "/readyz", "/-/healthy", "/-/ready"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, http.NoBody))
	}
	if len(L.infos) != 0 {
		t.Fatalf("logged %d entries, want 0", len(L.infos))
	}
}

func TestAccessLog_NoLoggerInContext(t *testing.T) {
	h := AccessLog()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if rec.Body.String() != "ok" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestResponseWriter_FlushAndUnwrap(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec}
	rw.Flush()
	if !rec.Flushed {
		t.Fatal("Flush not forwarded")
	}
	if rw.Unwrap() != rec {
		t.Fatal("Unwrap should return the inner writer")
	}
}

func TestAccessLog_PipelinePathsAreLogged(t *testing.T) {
	L := &recLogger{}
	h := withRecLogger(L, AccessLog()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))
	for _, p := range []string{"/", "/blog/", "/_drafts/post", "/style.css"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, http.NoBody))
	}
	if len(L.infos) != 4 {
		t.Fatalf("logged %d entries, want 4", len(L.infos))
	}
	if _, ok := field(L.infos[0].fields, "http.server.ttfb"); !ok {
		t.Fatal("missing ttfb field")
	}
}

func TestScope(t *testing.T) {
	L := &recLogger{}
	h := withRecLogger(L, Scope("site")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if v, _ := withField(L, "handler"); v != "site" {
		t.Fatalf("handler = %v", v)
	}
}
