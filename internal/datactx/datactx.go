// Package datactx builds the variable context shared by template renders
// from the _data.yaml files scattered through a content root.
//
// Every file is found again on each call; nothing is cached. Files merge
// shallowest directory first, then by path, so a deeper or later file wins
// on a key collision. Each file's "globals" mapping is merged before the
// file's own top-level keys.
package datactx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v2"

	"github.com/keithlinneman/sitepipe/internal/xerrors"
)

const (
	// FileName is the reserved name of a data file.
	FileName = "_data.yaml"

	globalsKey = "globals"
	pattern    = "**/" + FileName
)

// ErrLoad marks a failure to discover, read or parse a data file. One bad
// file fails the whole aggregation.
var ErrLoad = errors.New("datactx: load failed")

// excluded directory names are never searched.
var excluded = map[string]bool{
	".git":         true,
	"node_modules": true,
}

// Context is the merged data handed to templates.
type Context map[string]any

// Aggregate discovers, loads and merges every data file under fsys.
// It returns the merged context and the names of the files merged, in
// merge order.
func Aggregate(ctx context.Context, fsys fs.FS) (Context, []string, error) {
	files, err := Discover(fsys)
	if err != nil {
		return nil, nil, err
	}
	out := make(Context)
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		doc, err := Load(fsys, name)
		if err != nil {
			return nil, nil, err
		}
		out.Merge(doc)
	}
	return out, files, nil
}

// Discover returns the data files under fsys in merge order: by directory
// depth, then lexicographically. Excluded directories are not descended into.
func Discover(fsys fs.FS) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && excluded[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}
		if ok, _ := doublestar.Match(pattern, p); ok {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, xerrors.Mark(xerrors.Wrapf(err, "discover %s", FileName), ErrLoad)
	}
	sort.Slice(files, func(i, j int) bool {
		di, dj := strings.Count(files[i], "/"), strings.Count(files[j], "/")
		if di != dj {
			return di < dj
		}
		return files[i] < files[j]
	})
	return files, nil
}

// Load reads one data file. An empty file is an empty mapping; a document
// whose top level is not a mapping is an error.
func Load(fsys fs.FS, name string) (map[string]any, error) {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, xerrors.Mark(xerrors.Wrapf(err, "read %s", name), ErrLoad)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, xerrors.Mark(xerrors.Wrapf(err, "parse %s", name), ErrLoad)
	}
	for k, v := range doc {
		doc[k] = normalize(v)
	}
	return doc, nil
}

// Merge folds one data file into c: its globals mapping first, then all of
// its top-level keys, globals included.
func (c Context) Merge(doc map[string]any) {
	if g, ok := doc[globalsKey].(map[string]any); ok {
		for k, v := range g {
			c[k] = v
		}
	}
	for k, v := range doc {
		c[k] = v
	}
}

// normalize turns yaml.v2's map[interface{}]interface{} into
// map[string]any all the way down so templates and encoding/json can use it.
func normalize(v any) any {
	switch t := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalize(val)
		}
		return m
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}
