package pathutil

import (
	"reflect"
	"testing"
)

func TestSegments(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"/", []string{""}},
		{"", []string{""}},
		{"/about", []string{"about"}},
		{"/blog/post/", []string{"blog", "post"}},
		{"//a//b//", []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		if got := Segments(tt.path); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Segments(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestHasDotSegments(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/normal/path", false},
		{"/path/./here", true},
		{"/path/../up", true},
		{"..", true},
		{"/...", false},
		{"/.hidden", false},
		{"/path/to/.", true},
	}
	for _, tt := range tests {
		if got := HasDotSegments(tt.path); got != tt.want {
			t.Errorf("HasDotSegments(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestHasPrivateSegment(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/", false},
		{"/about", false},
		{"/blog/my_post", false},
		{"/_layout", true},
		{"/_data.yaml", true},
		{"/blog/_drafts/post", true},
		{"/partials/_nav/", true},
		{"/.git/config", true},
		{"/.gitignore", true},
		{"/.github/workflows", true},
		{"/docs/.git", true},
		{"/.hidden", false},
		{"/my.git", false},
		{"/a/b/c_", false},
	}
	for _, tt := range tests {
		if got := HasPrivateSegment(tt.path); got != tt.want {
			t.Errorf("HasPrivateSegment(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
