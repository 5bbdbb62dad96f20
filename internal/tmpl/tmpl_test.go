package tmpl

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/keithlinneman/sitepipe/internal/markup"
)

func mapfs(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for k, v := range files {
		fsys[k] = &fstest.MapFile{Data: []byte(v)}
	}
	return fsys
}

func page(fsys fstest.MapFS, name string) Page {
	return Page{Name: name, Src: fsys[name].Data}
}

func TestRender_NoLayout(t *testing.T) {
	fsys := mapfs(map[string]string{"index.tmpl": "<p>{{.title}}</p>"})
	e := New(Options{FS: fsys, LayoutFile: "_layout.tmpl"})

	out, layout, err := e.Render(page(fsys, "index.tmpl"), map[string]any{"title": "Home"})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "<p>Home</p>" || layout != "" {
		t.Fatalf("out=%q layout=%q", out, layout)
	}
}

func TestRender_NearestLayoutWins(t *testing.T) {
	fsys := mapfs(map[string]string{
		"_layout.tmpl":             "<root>{{.body}}</root>",
		"blog/_layout.tmpl":        "<blog title=\"{{.title}}\">{{.body}}</blog>",
		"blog/post.tmpl":           "<p>{{.title}}</p>",
		"blog/2024/deep/item.tmpl": "<i>x</i>",
		"about.tmpl":               "<p>about</p>",
	})
	e := New(Options{FS: fsys, LayoutFile: "_layout.tmpl"})
	vars := map[string]any{"title": "T & U"}

	tests := []struct {
		page, wantLayout, want string
	}{
		{"blog/post.tmpl", "blog/_layout.tmpl", "<blog title=\"T &amp; U\"><p>T &amp; U</p></blog>"},
		{"blog/2024/deep/item.tmpl", "blog/_layout.tmpl", "<blog title=\"T &amp; U\"><i>x</i></blog>"},
		{"about.tmpl", "_layout.tmpl", "<root><p>about</p></root>"},
	}
	for _, tt := range tests {
		out, layout, err := e.Render(page(fsys, tt.page), vars)
		if err != nil {
			t.Fatalf("%s: %v", tt.page, err)
		}
		if layout != tt.wantLayout || string(out) != tt.want {
			t.Errorf("%s: layout=%q out=%q", tt.page, layout, out)
		}
	}
	if _, ok := vars[BodyKey]; ok {
		t.Fatal("caller vars must not be modified")
	}
}

func TestRender_LayoutsDisabled(t *testing.T) {
	fsys := mapfs(map[string]string{"_layout.tmpl": "L{{.body}}", "a.tmpl": "A"})
	out, _, err := New(Options{FS: fsys}).Render(page(fsys, "a.tmpl"), nil)
	if err != nil || string(out) != "A" {
		t.Fatalf("out=%q err=%v", out, err)
	}
}

func TestRenderBare_IgnoresLayout(t *testing.T) {
	fsys := mapfs(map[string]string{"_layout.tmpl": "L{{.body}}"})
	e := New(Options{FS: fsys, LayoutFile: "_layout.tmpl"})
	out, err := e.RenderBare(Page{Name: "404.tmpl", Src: []byte("missing: {{.error}}")}, map[string]any{"error": "not found"})
	if err != nil || string(out) != "missing: not found" {
		t.Fatalf("out=%q err=%v", out, err)
	}
}

func TestPartial(t *testing.T) {
	fsys := mapfs(map[string]string{
		"_partials/nav.tmpl":  "<nav>{{.site}} {{partial \"_partials/item\"}}</nav>",
		"_partials/item.tmpl": "<a>{{add 1 2}}</a>",
		"index.tmpl":          "{{partial \"/_partials/nav\"}}",
	})
	out, _, err := New(Options{FS: fsys}).Render(page(fsys, "index.tmpl"), map[string]any{"site": "S"})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "<nav>S <a>3</a></nav>" {
		t.Fatalf("out = %q", out)
	}
}

func TestPartial_Missing(t *testing.T) {
	fsys := mapfs(map[string]string{"index.tmpl": "{{partial \"nope\"}}"})
	_, _, err := New(Options{FS: fsys}).Render(page(fsys, "index.tmpl"), nil)
	if !errors.Is(err, ErrPartialNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestPartial_Recursion(t *testing.T) {
	fsys := mapfs(map[string]string{"loop.tmpl": "{{partial \"loop\"}}"})
	_, _, err := New(Options{FS: fsys}).Render(page(fsys, "loop.tmpl"), nil)
	if !errors.Is(err, ErrPartialDepth) {
		t.Fatalf("err = %v", err)
	}
}

func TestMarkdownHelper(t *testing.T) {
	fsys := mapfs(map[string]string{"a.tmpl": "{{markdown .intro}}"})
	md := markup.New(markup.Options{})
	out, _, err := New(Options{FS: fsys, Markup: md}).Render(page(fsys, "a.tmpl"), map[string]any{"intro": "# Hi"})
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(string(out)) != "<h1>Hi</h1>" {
		t.Fatalf("out = %q", out)
	}
}

func TestRender_Errors(t *testing.T) {
	e := New(Options{FS: fstest.MapFS{}})
	if _, _, err := e.Render(Page{Name: "bad.tmpl", Src: []byte("{{.x")}, nil); err == nil || !strings.Contains(err.Error(), "parse template bad.tmpl") {
		t.Fatalf("parse err = %v", err)
	}
	if _, _, err := e.Render(Page{Name: "exec.tmpl", Src: []byte("{{template \"missing\"}}")}, nil); err == nil {
		t.Fatal("execute error expected")
	}

	fsys := mapfs(map[string]string{"_layout.tmpl": "{{.body"})
	e = New(Options{FS: fsys, LayoutFile: "_layout.tmpl"})
	if _, _, err := e.Render(Page{Name: "p.tmpl", Src: []byte("ok")}, nil); err == nil {
		t.Fatal("broken layout should fail the render")
	}
}
