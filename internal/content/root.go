package content

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/keithlinneman/sitepipe/internal/xerrors"
)

// Root is the read-only content tree for one pipeline instance.
type Root struct {
	// Dir is the absolute content directory (publicdir).
	Dir string
	// Parent is the absolute parent of Dir (basedir).
	Parent string

	FS       fs.FS
	ParentFS fs.FS
}

// Open resolves base against the working directory and checks it is a
// directory.
func Open(base string) (*Root, error) {
	if base == "" {
		return nil, xerrors.New("content: base directory is empty")
	}
	dir, err := filepath.Abs(base)
	if err != nil {
		return nil, xerrors.Wrapf(err, "content: resolve %q", base)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, xerrors.Wrapf(err, "content: stat %s", dir)
	}
	if !info.IsDir() {
		return nil, xerrors.Newf("content: %s is not a directory", dir)
	}
	parent := filepath.Dir(dir)
	return &Root{
		Dir:      dir,
		Parent:   parent,
		FS:       os.DirFS(dir),
		ParentFS: os.DirFS(parent),
	}, nil
}

// NewFS builds a Root over caller-supplied filesystems, dir and parent are
// only used for diagnostics.
func NewFS(dir string, fsys, parentFS fs.FS) *Root {
	return &Root{Dir: dir, Parent: filepath.Dir(dir), FS: fsys, ParentFS: parentFS}
}

// Path returns the absolute path of name inside the content directory.
func (r *Root) Path(name string) string {
	return filepath.Join(r.Dir, filepath.FromSlash(name))
}

// ParentPath returns the absolute path of name inside the parent directory.
func (r *Root) ParentPath(name string) string {
	return filepath.Join(r.Parent, filepath.FromSlash(name))
}

// ReadyErr fails when the content directory is no longer readable.
func (r *Root) ReadyErr() error {
	if r == nil || r.FS == nil {
		return xerrors.New("content: no content root")
	}
	if _, err := fs.Stat(r.FS, "."); err != nil {
		return xerrors.Wrap(err, "content: root unreadable")
	}
	return nil
}
