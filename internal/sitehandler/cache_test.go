package sitehandler

import (
	"testing"

	"github.com/keithlinneman/sitepipe/internal/pipeline"
)

func TestCacheControlFor(t *testing.T) {
	opts := Options{}
	opts.setDefaults()

	tests := []struct {
		name string
		res  pipeline.Result
		want string
	}{
		{"template", pipeline.Result{Kind: pipeline.KindTemplate, Target: pipeline.Target{Name: "app.js.tmpl"}}, opts.HTMLCacheControl},
		{"markup", pipeline.Result{Kind: pipeline.KindMarkup, Target: pipeline.Target{Name: "about.md"}}, opts.HTMLCacheControl},
		{"not found", pipeline.Result{Kind: pipeline.KindNotFound, Target: pipeline.Target{Name: "404.html"}}, "no-store"},
		{"html", pipeline.Result{Kind: pipeline.KindPrettyHTML, Target: pipeline.Target{Name: "blog/post.html"}}, opts.HTMLCacheControl},
		{"css", pipeline.Result{Kind: pipeline.KindPrettyHTML, Target: pipeline.Target{Name: "css/site.css"}}, opts.AssetCacheControl},
		{"font", pipeline.Result{Kind: pipeline.KindPrettyHTML, Target: pipeline.Target{Name: "fonts/a.WOFF2"}}, opts.AssetCacheControl},
		{"xml", pipeline.Result{Kind: pipeline.KindPrettyHTML, Target: pipeline.Target{Name: "sitemap.xml"}}, opts.OtherCacheControl},
	}
	for _, tt := range tests {
		if got := cacheControlFor(&tt.res, &opts); got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}
