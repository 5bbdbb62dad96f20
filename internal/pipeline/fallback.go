package pipeline

import (
	"context"
	"net/http"

	"github.com/keithlinneman/sitepipe/internal/content"
	"github.com/keithlinneman/sitepipe/internal/tmpl"
	"github.com/keithlinneman/sitepipe/internal/xerrors"
)

const (
	NotFoundTemplate = "404" + TemplateExt
	NotFoundPage     = "404" + HTMLExt
)

// fallbackStage answers every request it sees with a 404. Its views live
// in the content root's parent.
type fallbackStage struct {
	*env
}

func (s *fallbackStage) Name() string { return KindNotFound.String() }

func (s *fallbackStage) Resolve(ctx context.Context, _ *Request) (*Result, error) {
	res := &Result{Kind: KindNotFound, Status: http.StatusNotFound}

	src, found, err := content.Acquire(s.root.ParentFS, NotFoundTemplate)
	if err != nil {
		return nil, xerrors.Mark(err, ErrRead)
	}
	if found {
		res.Target = Target{Kind: KindNotFound, Name: NotFoundTemplate, Path: s.root.ParentPath(NotFoundTemplate)}
		body, err := s.notFound.RenderBare(tmpl.Page{Name: NotFoundTemplate, Src: src}, map[string]any{"error": ErrNotFound})
		if err != nil {
			return nil, xerrors.Mark(xerrors.Wrap(err, "render not found view"), ErrRender)
		}
		res.ContentType, res.Body = htmlContentType, body
		s.diag.Info(ctx, "serving not found template", "file", res.Target.Path)
		return res, nil
	}

	body, found, err := content.Acquire(s.root.ParentFS, NotFoundPage)
	if err != nil {
		return nil, xerrors.Mark(err, ErrRead)
	}
	if found {
		res.Target = Target{Kind: KindNotFound, Name: NotFoundPage, Path: s.root.ParentPath(NotFoundPage)}
		res.ContentType, res.Body = htmlContentType, body
		s.diag.Info(ctx, "serving not found page", "file", res.Target.Path)
		return res, nil
	}

	s.diag.Info(ctx, "no not found view, declining")
	res.Declined = true
	return res, nil
}
