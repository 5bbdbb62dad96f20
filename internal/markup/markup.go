// Package markup converts markdown documents to HTML with goldmark.
//
// Options mirror the marked-style bag accepted on the command line:
// gfm, breaks, headerIds, xhtml, smartypants and sanitize.
package markup

import (
	"bytes"
	"errors"
	"sort"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/keithlinneman/sitepipe/internal/xerrors"
)

// ErrOption marks an options bag entry with a value of the wrong type.
var ErrOption = errors.New("markup: invalid option")

// Options selects renderer behaviour.
type Options struct {
	GFM         bool // tables, strikethrough, autolinks, task lists
	Breaks      bool // single newlines become <br>
	HeaderIDs   bool // headings get generated id attributes
	XHTML       bool // self-closing void elements
	Smartypants bool // typographic quotes and dashes
	Sanitize    bool // drop raw HTML instead of passing it through
}

// DefaultOptions match marked's defaults.
func DefaultOptions() Options {
	return Options{GFM: true, HeaderIDs: true}
}

// ParseOptions applies a marked-style bag over the defaults. It returns the
// keys it does not understand, sorted, so the caller can report them.
func ParseOptions(bag map[string]any) (Options, []string, error) {
	o := DefaultOptions()
	fields := map[string]*bool{
		"gfm":         &o.GFM,
		"breaks":      &o.Breaks,
		"headerIds":   &o.HeaderIDs,
		"xhtml":       &o.XHTML,
		"smartypants": &o.Smartypants,
		"sanitize":    &o.Sanitize,
	}
	var unknown []string
	for k, v := range bag {
		dst, ok := fields[k]
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		b, ok := v.(bool)
		if !ok {
			return Options{}, nil, xerrors.Mark(xerrors.Newf("option %q: want bool, got %T", k, v), ErrOption)
		}
		*dst = b
	}
	sort.Strings(unknown)
	return o, unknown, nil
}

// Renderer is safe for concurrent use.
type Renderer struct {
	md   goldmark.Markdown
	opts Options
}

func New(o Options) *Renderer {
	var exts []goldmark.Extender
	if o.GFM {
		exts = append(exts, extension.GFM)
	}
	if o.Smartypants {
		exts = append(exts, extension.Typographer)
	}

	var popts []parser.Option
	if o.HeaderIDs {
		popts = append(popts, parser.WithAutoHeadingID())
	}

	var ropts []goldmark.Option
	var hopts []renderer.Option
	if o.Breaks {
		hopts = append(hopts, gmhtml.WithHardWraps())
	}
	if o.XHTML {
		hopts = append(hopts, gmhtml.WithXHTML())
	}
	if !o.Sanitize {
		hopts = append(hopts, gmhtml.WithUnsafe())
	}
	ropts = append(ropts,
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(popts...),
		goldmark.WithRendererOptions(hopts...),
	)
	return &Renderer{md: goldmark.New(ropts...), opts: o}
}

func (r *Renderer) Options() Options { return r.opts }

// Document is a rendered markdown file.
type Document struct {
	HTML []byte
	// Meta holds the parsed front matter, nil when there was none.
	Meta map[string]any
}

// Render strips YAML, TOML or JSON front matter and converts the rest.
// Front matter that does not parse is left in place and rendered as text.
func (r *Renderer) Render(src []byte) (Document, error) {
	var meta map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(src), &meta)
	if err != nil {
		body, meta = src, nil
	}
	html, err := r.Convert(body)
	if err != nil {
		return Document{}, err
	}
	return Document{HTML: html, Meta: meta}, nil
}

// Convert renders markdown without front matter handling.
func (r *Renderer) Convert(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return nil, xerrors.Wrap(err, "convert markdown")
	}
	return buf.Bytes(), nil
}
