package content

import (
	"errors"
	"io"
	"io/fs"

	"github.com/keithlinneman/sitepipe/internal/xerrors"
)

// ErrRead marks failures reading a file that was already opened.
var ErrRead = errors.New("content: read failed")

// Acquire opens, stats and reads name from fsys using a single handle.
//
// found is false when the name is invalid, missing, not permitted, a
// directory or cannot be opened for any other reason; err is nil then.
// Once the file is open any failure is returned marked with ErrRead.
func Acquire(fsys fs.FS, name string) (data []byte, found bool, err error) {
	if fsys == nil || name == "" || !fs.ValidPath(name) {
		return nil, false, nil
	}
	// any open failure counts as absent, the same as an existence probe
	f, err := fsys.Open(name)
	if err != nil {
		return nil, false, nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, true, xerrors.Mark(xerrors.Wrapf(err, "stat %s", name), ErrRead)
	}
	if info.IsDir() {
		return nil, false, nil
	}

	data, err = io.ReadAll(f)
	if err != nil {
		return nil, true, xerrors.Mark(xerrors.Wrapf(err, "read %s", name), ErrRead)
	}
	return data, true, nil
}
