package pipeline

import (
	"strings"

	"github.com/keithlinneman/sitepipe/internal/pathutil"
)

// isPrivate reports whether urlPath must be answered as not found before
// any resolver looks at the filesystem: a segment starting with "_" or
// ".git", a "." or ".." segment, a NUL byte or a backslash.
func isPrivate(urlPath string) bool {
	if strings.ContainsAny(urlPath, "\x00\\") {
		return true
	}
	return pathutil.HasPrivateSegment(urlPath) || pathutil.HasDotSegments(urlPath)
}
