package pipeline

import (
	"context"
	"path"
	"strings"
)

const (
	TemplateExt = ".tmpl"
	HTMLExt     = ".html"
	MarkupExt   = ".md"
	indexName   = "index"
)

// Request is what a stage sees of one incoming request.
type Request struct {
	// Path is the URL path, unchanged for the whole run.
	Path string
}

// Stage is one resolver in the chain. Resolve returns (nil, nil) to defer
// to the next stage.
type Stage interface {
	Name() string
	Resolve(ctx context.Context, req *Request) (*Result, error)
}

// pageBase strips the leading slash; the root and any path ending in a
// slash name the index of that directory.
func pageBase(urlPath string) string {
	p := strings.TrimPrefix(urlPath, "/")
	if p == "" || strings.HasSuffix(p, "/") {
		p += indexName
	}
	return p
}

// templateName always appends the template extension.
func templateName(urlPath string) string {
	return pageBase(urlPath) + TemplateExt
}

// fileName appends ext only when the path has no extension of its own.
func fileName(urlPath, ext string) string {
	p := pageBase(urlPath)
	if path.Ext(p) == "" {
		p += ext
	}
	return p
}
