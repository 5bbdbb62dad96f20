// Package tmpl renders html/template pages found in the content root,
// wrapping each page in the nearest layout file.
//
// A page is executed first; its output is then handed to the layout as
// .body together with the page's vars. Templates may call
//
//	{{partial "nav"}}          another template, same vars, .tmpl implied
//	{{markdown .summary}}      markdown text rendered to HTML
//	{{add 1 2}} {{sub 3 1}}    integer arithmetic
//
// Nothing is cached: every render parses from disk.
package tmpl

import (
	"bytes"
	"errors"
	"html/template"
	"io/fs"
	"path"
	"strings"

	"github.com/keithlinneman/sitepipe/internal/content"
	"github.com/keithlinneman/sitepipe/internal/markup"
	"github.com/keithlinneman/sitepipe/internal/xerrors"
)

const (
	// Ext is the template file extension.
	Ext = ".tmpl"
	// BodyKey is the var under which a layout receives the rendered page.
	BodyKey = "body"

	maxPartialDepth = 16
)

var (
	// ErrPartialNotFound is returned by partial for a missing template.
	ErrPartialNotFound = errors.New("tmpl: partial not found")
	// ErrPartialDepth stops runaway partial recursion.
	ErrPartialDepth = errors.New("tmpl: partial nesting too deep")
)

type Options struct {
	// FS is the content root; layouts and partials resolve inside it.
	FS fs.FS
	// LayoutFile is the layout name searched for from the page's directory
	// upwards. Empty disables layouts.
	LayoutFile string
	// Markup backs the markdown helper. Nil uses markup defaults.
	Markup *markup.Renderer
}

// Engine is immutable and safe for concurrent use.
type Engine struct {
	fsys       fs.FS
	layoutFile string
	md         *markup.Renderer
}

func New(o Options) *Engine {
	md := o.Markup
	if md == nil {
		md = markup.New(markup.DefaultOptions())
	}
	return &Engine{fsys: o.FS, layoutFile: o.LayoutFile, md: md}
}

// Page is a template ready to render.
type Page struct {
	// Name is the slash-separated name inside the content root, used for
	// layout lookup and error messages.
	Name string
	Src  []byte
}

// Render executes page with vars and wraps it in the nearest layout.
// layout reports the layout used, "" when the page was served bare.
func (e *Engine) Render(page Page, vars map[string]any) (out []byte, layout string, err error) {
	body, err := e.execute(page.Name, page.Src, vars, 0)
	if err != nil {
		return nil, "", err
	}

	layoutName, layoutSrc, err := e.findLayout(page.Name)
	if err != nil || layoutName == "" {
		return body, "", err
	}

	withBody := make(map[string]any, len(vars)+1)
	for k, v := range vars {
		withBody[k] = v
	}
	withBody[BodyKey] = template.HTML(body)

	out, err = e.execute(layoutName, layoutSrc, withBody, 0)
	if err != nil {
		return nil, "", err
	}
	return out, layoutName, nil
}

// RenderBare executes page without looking for a layout. Partials still
// resolve inside the content root.
func (e *Engine) RenderBare(page Page, vars map[string]any) ([]byte, error) {
	return e.execute(page.Name, page.Src, vars, 0)
}

// findLayout walks from the page's directory to the root and returns the
// first layout file found.
func (e *Engine) findLayout(pageName string) (string, []byte, error) {
	if e.layoutFile == "" || e.fsys == nil {
		return "", nil, nil
	}
	dir := path.Dir(pageName)
	for {
		name := path.Join(dir, e.layoutFile)
		if name != pageName {
			src, found, err := content.Acquire(e.fsys, name)
			if err != nil {
				return "", nil, err
			}
			if found {
				return name, src, nil
			}
		}
		if dir == "." {
			return "", nil, nil
		}
		dir = path.Dir(dir)
	}
}

func (e *Engine) execute(name string, src []byte, vars map[string]any, depth int) ([]byte, error) {
	t, err := template.New(name).Funcs(e.funcs(vars, depth)).Parse(string(src))
	if err != nil {
		return nil, xerrors.Wrapf(err, "parse template %s", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return nil, xerrors.Wrapf(err, "execute template %s", name)
	}
	return buf.Bytes(), nil
}

func (e *Engine) funcs(vars map[string]any, depth int) template.FuncMap {
	return template.FuncMap{
		"partial": func(name string) (template.HTML, error) {
			return e.partial(name, vars, depth+1)
		},
		"markdown": func(s string) (template.HTML, error) {
			out, err := e.md.Convert([]byte(s))
			return template.HTML(out), err
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
}

func (e *Engine) partial(name string, vars map[string]any, depth int) (template.HTML, error) {
	if depth > maxPartialDepth {
		return "", xerrors.Mark(xerrors.Newf("partial %s at depth %d", name, depth), ErrPartialDepth)
	}
	name = strings.TrimPrefix(name, "/")
	if path.Ext(name) == "" {
		name += Ext
	}
	src, found, err := content.Acquire(e.fsys, name)
	if err != nil {
		return "", err
	}
	if !found {
		return "", xerrors.Mark(xerrors.Newf("partial %s", name), ErrPartialNotFound)
	}
	out, err := e.execute(name, src, vars, depth)
	if err != nil {
		return "", err
	}
	return template.HTML(out), nil
}
