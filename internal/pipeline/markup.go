package pipeline

import (
	"context"
	"net/http"

	"github.com/keithlinneman/sitepipe/internal/content"
	"github.com/keithlinneman/sitepipe/internal/xerrors"
)

type markupStage struct {
	*env
}

func (s *markupStage) Name() string { return KindMarkup.String() }

func (s *markupStage) Resolve(ctx context.Context, req *Request) (*Result, error) {
	name := fileName(req.Path, MarkupExt)
	target := Target{Kind: KindMarkup, Name: name, Path: s.root.Path(name)}

	s.diag.Info(ctx, "attempting markup", "file", target.Path)
	src, found, err := content.Acquire(s.root.FS, name)
	if err != nil {
		// always reported, even with diagnostics off
		err = xerrors.Mark(err, ErrMarkupRead)
		s.logger.Error(ctx, err, "markup read failed", "file", target.Path)
		return nil, err
	}
	if !found {
		s.diag.Info(ctx, "markup not found", "file", name)
		return nil, nil
	}

	doc, err := s.md.Render(src)
	if err != nil {
		return nil, xerrors.Mark(xerrors.Wrapf(err, "convert %s", name), ErrRender)
	}
	s.diag.Info(ctx, "serving markup", "file", name, "front_matter", doc.Meta != nil)
	return &Result{
		Kind:        KindMarkup,
		Status:      http.StatusOK,
		Target:      target,
		ContentType: htmlContentType,
		Body:        doc.HTML,
	}, nil
}
