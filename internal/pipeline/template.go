package pipeline

import (
	"context"
	"net/http"
	"time"

	"github.com/keithlinneman/sitepipe/internal/content"
	"github.com/keithlinneman/sitepipe/internal/datactx"
	"github.com/keithlinneman/sitepipe/internal/tmpl"
	"github.com/keithlinneman/sitepipe/internal/xerrors"
)

const htmlContentType = "text/html; charset=utf-8"

type templateStage struct {
	*env
}

func (s *templateStage) Name() string { return KindTemplate.String() }

func (s *templateStage) Resolve(ctx context.Context, req *Request) (*Result, error) {
	name := templateName(req.Path)
	target := Target{Kind: KindTemplate, Name: name, Path: s.root.Path(name)}

	s.diag.Info(ctx, "attempting template", "file", target.Path)
	src, found, err := content.Acquire(s.root.FS, name)
	if err != nil {
		return nil, xerrors.Mark(err, ErrRead)
	}
	if !found {
		s.diag.Info(ctx, "template not found", "file", target.Path)
		return nil, nil
	}

	data, err := s.aggregate(ctx)
	if err != nil {
		return nil, err
	}
	vars := make(map[string]any, len(data)+6)
	for k, v := range data {
		vars[k] = v
	}
	for k, v := range s.cfg.Vars() {
		vars[k] = v
	}

	s.diag.Info(ctx, "rendering template", "file", target.Path, "vars", len(vars))
	body, layout, err := s.pages.Render(tmpl.Page{Name: name, Src: src}, vars)
	if err != nil {
		return nil, xerrors.Mark(xerrors.Wrapf(err, "render %s", name), ErrRender)
	}
	return &Result{
		Kind:        KindTemplate,
		Status:      http.StatusOK,
		Target:      target,
		ContentType: htmlContentType,
		Body:        body,
		Layout:      layout,
	}, nil
}

// aggregate runs a fresh data scan; it happens only once a template was
// found so other kinds never pay for it.
func (s *templateStage) aggregate(ctx context.Context) (datactx.Context, error) {
	start := time.Now()
	data, files, err := datactx.Aggregate(ctx, s.root.FS)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, xerrors.Mark(xerrors.Wrap(err, "aggregate data"), ErrDataAggregation)
	}
	s.obs.ObserveDataAggregation(time.Since(start), len(files))
	s.diag.Info(ctx, "data aggregated", "files", files)
	return data, nil
}
