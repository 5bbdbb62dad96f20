package httpserver_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/keithlinneman/sitepipe/internal/content"
	"github.com/keithlinneman/sitepipe/internal/httpmw"
	"github.com/keithlinneman/sitepipe/internal/httpserver"
	"github.com/keithlinneman/sitepipe/internal/log"
	"github.com/keithlinneman/sitepipe/internal/pipeline"
	"github.com/keithlinneman/sitepipe/internal/sitehandler"
	"github.com/keithlinneman/sitepipe/internal/webassets"
)

// TestIntegration_FullStack runs requests through the public middleware
// chain, the site handler and a pipeline over an in-memory content root.
func TestIntegration_FullStack(t *testing.T) {
	t.Parallel()

	public := fstest.MapFS{
		"_data.yaml":       {Data: []byte("globals:\n  site: Example\ntitle: Home\n")},
		"_layout.tmpl":     {Data: []byte("<html><title>{{.site}}</title>{{.body}}</html>")},
		"index.tmpl":       {Data: []byte("<h1>{{.title}}</h1>")},
		"docs/guide.html":  {Data: []byte("<p>guide</p>")},
		"about.md":         {Data: []byte("# About")},
		"_drafts/new.html": {Data: []byte("secret")},
		"style.css":        {Data: []byte("body{}")},
	}
	parent := fstest.MapFS{
		"404.html": {Data: []byte("<p>custom 404</p>")},
	}
	p, err := pipeline.New(pipeline.DefaultConfig(), pipeline.Options{
		Root: content.NewFS("/srv/site/public", public, parent),
	})
	if err != nil {
		t.Fatalf("pipeline.New: %v", err)
	}
	site, err := sitehandler.New(&sitehandler.Options{Pipeline: p, FallbackFS: webassets.FallbackFS()})
	if err != nil {
		t.Fatalf("sitehandler.New: %v", err)
	}
	h := httpserver.NewHandler(&httpserver.Options{
		Logger:       log.Nop(),
		UseRecoverMW: true,
		SiteHandler:  site,
	})

	tests := []struct {
		path   string
		status int
		kind   string
		body   string
	}{
		{"/", http.StatusOK, "template", "<html><title>Example</title><h1>Home</h1></html>"},
		{"/docs/guide", http.StatusOK, "pretty_html", "<p>guide</p>"},
		{"/about", http.StatusOK, "markup", "About</h1>"},
		{"/style.css", http.StatusOK, "pretty_html", "body{}"},
		{"/_drafts/new.html", http.StatusNotFound, "not_found", "<p>custom 404</p>"},
		{"/.git/config", http.StatusNotFound, "not_found", "<p>custom 404</p>"},
		{"/nope", http.StatusNotFound, "not_found", "<p>custom 404</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get(httpmw.ContentKindHeader); got != tt.kind {
				t.Fatalf("kind = %q, want %q", got, tt.kind)
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Fatalf("body = %q", rec.Body.String())
			}
			if rec.Header().Get("Content-Security-Policy") == "" {
				t.Fatal("security headers missing")
			}
		})
	}
}

func TestIntegration_PostIsRejected(t *testing.T) {
	p, err := pipeline.New(pipeline.DefaultConfig(), pipeline.Options{
		Root: content.NewFS("/srv/public", fstest.MapFS{"index.html": {Data: []byte("x")}}, fstest.MapFS{}),
	})
	if err != nil {
		t.Fatal(err)
	}
	site, err := sitehandler.New(&sitehandler.Options{Pipeline: p, FallbackFS: webassets.FallbackFS()})
	if err != nil {
		t.Fatal(err)
	}
	h := httpserver.NewHandler(&httpserver.Options{SiteHandler: site})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b")))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
