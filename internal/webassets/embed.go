// Package webassets carries the pages served when the content root cannot
// answer, and a starter site for `sitepipe init`.
package webassets

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/keithlinneman/sitepipe/internal/xerrors"
)

// seed has _-prefixed files, hence all:
//
//go:embed fallback all:seed
var embedded embed.FS

const (
	ServerErrorPage = "500.html"
	NotFoundPage    = "404.html"
)

// ErrSeedExists is returned by WriteSeed when a target file is present.
var ErrSeedExists = errors.New("webassets: seed target exists")

func FallbackFS() fs.FS {
	sub, err := fs.Sub(embedded, "fallback")
	if err != nil {
		panic(fmt.Errorf("webassets: fallback subfs: %w", err))
	}
	return sub
}

// SeedFS is the starter site: public/ plus a 404 view beside it.
func SeedFS() fs.FS {
	sub, err := fs.Sub(embedded, "seed")
	if err != nil {
		panic(fmt.Errorf("webassets: seed subfs: %w", err))
	}
	return sub
}

// WriteSeed copies the starter site into dir and returns the files written.
// No existing file is overwritten; the check runs before anything is
// written.
func WriteSeed(dir string) ([]string, error) {
	seed := SeedFS()
	var files []string
	err := fs.WalkDir(seed, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "walk seed")
	}

	for _, name := range files {
		dst := filepath.Join(dir, filepath.FromSlash(name))
		if _, err := os.Lstat(dst); err == nil {
			return nil, xerrors.Mark(xerrors.Newf("%s already exists", dst), ErrSeedExists)
		}
	}
	for _, name := range files {
		data, err := fs.ReadFile(seed, name)
		if err != nil {
			return nil, xerrors.Wrapf(err, "read seed %s", name)
		}
		dst := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return nil, xerrors.Wrapf(err, "mkdir %s", filepath.Dir(dst))
		}
		if err := atomic.WriteFile(dst, bytes.NewReader(data)); err != nil {
			return nil, xerrors.Wrapf(err, "write %s", dst)
		}
	}
	return files, nil
}
