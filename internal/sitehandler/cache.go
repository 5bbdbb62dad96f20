package sitehandler

import (
	"path"
	"strings"

	"github.com/keithlinneman/sitepipe/internal/pipeline"
)

func cacheControlFor(res *pipeline.Result, o *Options) string {
	switch res.Kind {
	case pipeline.KindNotFound:
		return "no-store"
	case pipeline.KindTemplate, pipeline.KindMarkup:
		// rendered per request from data that may change at any time
		return o.HTMLCacheControl
	default:
		return cacheControlForFile(res.Target.Name, o)
	}
}

func cacheControlForFile(name string, o *Options) string {
	ext := strings.ToLower(path.Ext(name))

	switch ext {
	case ".html", ".htm":
		return o.HTMLCacheControl

	case ".css", ".js", ".mjs",
		".png", ".jpg", ".jpeg", ".webp", ".gif", ".svg", ".ico",
		".woff", ".woff2", ".ttf", ".eot",
		".map":
		return o.AssetCacheControl

	default:
		if ext == "" {
			return o.HTMLCacheControl
		}
		return o.OtherCacheControl
	}
}
