package sitehandler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/keithlinneman/sitepipe/internal/log"
	"github.com/keithlinneman/sitepipe/internal/pipeline"
)

var ErrInvalidOptions = errors.New("sitehandler: invalid options")

// Resolver is the content pipeline as seen by the handler.
type Resolver interface {
	Resolve(ctx context.Context, urlPath string) (*pipeline.Result, error)
}

type Options struct {
	// Logger is used when the request context carries none.
	Logger   log.Logger
	Pipeline Resolver
	// FallbackFS holds the generic 500 page and the 404 page used when the
	// pipeline declines and there is no next handler.
	FallbackFS fs.FS

	ServerErrorFile string // default: "500.html"
	Fallback404File string // default: "404.html"

	// Cache policies. Rendered kinds use HTMLCacheControl; static files go
	// by extension; 404 and 500 are always no-store.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=31536000, immutable"
	OtherCacheControl string // default: "public, max-age=3600"
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.ServerErrorFile == "" {
		o.ServerErrorFile = "500.html"
	}
	if o.Fallback404File == "" {
		o.Fallback404File = "404.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=31536000, immutable"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.Pipeline == nil {
		return fmt.Errorf("%w: Pipeline is nil", ErrInvalidOptions)
	}
	if o.FallbackFS == nil {
		return fmt.Errorf("%w: FallbackFS is nil", ErrInvalidOptions)
	}
	// the error page must ship with the binary
	if _, err := fs.Stat(o.FallbackFS, o.ServerErrorFile); err != nil {
		return fmt.Errorf("%w: missing %q in fallback FS: %v", ErrInvalidOptions, o.ServerErrorFile, err)
	}
	// fallback 404 is optional, plain text otherwise
	return nil
}
