// Package pathutil holds the URL path checks shared by the resolver chain.
package pathutil

import "strings"

// VCSMarker is the prefix that flags version-control metadata (.git,
// .gitignore, .github, ...).
const VCSMarker = ".git"

// Segments strips leading and trailing slashes and splits p on "/".
// The root path yields a single empty segment.
func Segments(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// IsPrivateSegment reports whether a single segment names a private
// directory or file: a leading underscore or a VCS marker prefix.
func IsPrivateSegment(seg string) bool {
	return strings.HasPrefix(seg, "_") || strings.HasPrefix(seg, VCSMarker)
}

// HasPrivateSegment reports whether any segment of p is private.
func HasPrivateSegment(p string) bool {
	for _, seg := range Segments(p) {
		if IsPrivateSegment(seg) {
			return true
		}
	}
	return false
}
