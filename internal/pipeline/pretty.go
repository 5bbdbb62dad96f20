package pipeline

import (
	"context"
	"mime"
	"net/http"
	"path"

	"github.com/keithlinneman/sitepipe/internal/content"
	"github.com/keithlinneman/sitepipe/internal/xerrors"
)

type prettyStage struct {
	*env
}

func (s *prettyStage) Name() string { return KindPrettyHTML.String() }

func (s *prettyStage) Resolve(ctx context.Context, req *Request) (*Result, error) {
	name := fileName(req.Path, HTMLExt)
	target := Target{Kind: KindPrettyHTML, Name: name, Path: s.root.Path(name)}

	s.diag.Info(ctx, "attempting html", "file", target.Path)
	body, found, err := content.Acquire(s.root.FS, name)
	if err != nil {
		return nil, xerrors.Mark(err, ErrRead)
	}
	if !found {
		s.diag.Info(ctx, "html not found", "file", name)
		return nil, nil
	}
	s.diag.Info(ctx, "serving html", "file", name)
	return &Result{
		Kind:        KindPrettyHTML,
		Status:      http.StatusOK,
		Target:      target,
		ContentType: contentType(name, body),
		Body:        body,
	}, nil
}

// contentType goes by extension and sniffs the body when that is unknown.
func contentType(name string, body []byte) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(body)
}
