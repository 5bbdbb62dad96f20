package pipeline

import "testing"

func TestNames(t *testing.T) {
	tests := []struct {
		path, tmpl, html, md string
	}{
		{"/", "index.tmpl", "index.html", "index.md"},
		{"/about", "about.tmpl", "about.html", "about.md"},
		{"/blog/", "blog/index.tmpl", "blog/index.html", "blog/index.md"},
		{"/blog/post", "blog/post.tmpl", "blog/post.html", "blog/post.md"},
		{"/style.css", "style.css.tmpl", "style.css", "style.css"},
		{"/notes.md", "notes.md.tmpl", "notes.md", "notes.md"},
	}
	for _, tt := range tests {
		if got := templateName(tt.path); got != tt.tmpl {
			t.Errorf("templateName(%q) = %q, want %q", tt.path, got, tt.tmpl)
		}
		if got := fileName(tt.path, HTMLExt); got != tt.html {
			t.Errorf("fileName(%q, html) = %q, want %q", tt.path, got, tt.html)
		}
		if got := fileName(tt.path, MarkupExt); got != tt.md {
			t.Errorf("fileName(%q, md) = %q, want %q", tt.path, got, tt.md)
		}
	}
}

func TestIsPrivate(t *testing.T) {
	tests := map[string]bool{
		"/":                false,
		"/about":           false,
		"/blog/my_post":    false,
		"/_layout":         true,
		"/blog/_data.yaml": true,
		"/.git":            true,
		"/.gitignore":      true,
		"/.github/x":       true,
		"/docs/../x":       true,
		"/./x":             true,
		"/a\x00b":          true,
		"/a\\b":            true,
		"/.well-known/x":   false,
	}
	for path, want := range tests {
		if got := isPrivate(path); got != want {
			t.Errorf("isPrivate(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestKindString(t *testing.T) {
	for k, want := range map[Kind]string{
		KindTemplate:   "template",
		KindPrettyHTML: "pretty_html",
		KindMarkup:     "markup",
		KindNotFound:   "not_found",
		KindUnknown:    "unknown",
	} {
		if k.String() != want {
			t.Errorf("%d.String() = %q", k, k.String())
		}
	}
}
