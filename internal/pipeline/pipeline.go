package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/sitepipe/internal/content"
	"github.com/keithlinneman/sitepipe/internal/log"
	"github.com/keithlinneman/sitepipe/internal/markup"
	"github.com/keithlinneman/sitepipe/internal/tmpl"
	"github.com/keithlinneman/sitepipe/internal/xerrors"
)

const tracerName = "github.com/keithlinneman/sitepipe/internal/pipeline"

type Options struct {
	Logger log.Logger
	// Tracer defaults to the global provider's tracer.
	Tracer  trace.Tracer
	Metrics Observer
	// Root overrides Config.Base, mostly for tests.
	Root *content.Root
}

// env is shared read-only by every stage.
type env struct {
	cfg  Config
	root *content.Root
	// logger always emits; diag only when Config.Log is set
	logger log.Logger
	diag   log.Logger
	obs    Observer

	md       *markup.Renderer
	pages    *tmpl.Engine
	notFound *tmpl.Engine
}

// Pipeline is immutable after New and safe for concurrent use.
type Pipeline struct {
	env      *env
	stages   []Stage
	fallback Stage
	tracer   trace.Tracer
}

func New(cfg Config, opts Options) (*Pipeline, error) {
	cfg.setDefaults()

	L := opts.Logger
	if L == nil {
		L = log.Nop()
	}
	L = L.With("component", "pipeline")

	root := opts.Root
	if root == nil {
		var err error
		if root, err = content.Open(cfg.Base); err != nil {
			return nil, xerrors.Mark(err, ErrInvalidConfig)
		}
	}
	cfg.BaseDir, cfg.PublicDir = root.Parent, root.Dir

	mo, unknown, err := cfg.markupOptions()
	if err != nil {
		return nil, err
	}
	if len(unknown) > 0 {
		L.Warn(context.Background(), "ignoring unsupported marked options", "keys", unknown)
	}
	md := markup.New(mo)

	obs := opts.Metrics
	if obs == nil {
		obs = nopObserver{}
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	e := &env{
		cfg:      cfg,
		root:     root,
		logger:   L,
		diag:     log.Toggle(cfg.Log, L),
		obs:      obs,
		md:       md,
		pages:    tmpl.New(tmpl.Options{FS: root.FS, LayoutFile: cfg.LayoutFile, Markup: md}),
		notFound: tmpl.New(tmpl.Options{FS: root.ParentFS, Markup: md}),
	}
	fallback := &fallbackStage{e}
	return &Pipeline{
		env: e,
		stages: []Stage{
			&templateStage{e},
			&prettyStage{e},
			&markupStage{e},
			fallback,
		},
		fallback: fallback,
		tracer:   tracer,
	}, nil
}

// Config returns the effective configuration, BaseDir and PublicDir filled.
func (p *Pipeline) Config() Config { return p.env.cfg }

func (p *Pipeline) Root() *content.Root { return p.env.root }

// Stages lists stage names in evaluation order.
func (p *Pipeline) Stages() []string {
	out := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		out = append(out, s.Name())
	}
	return out
}

// Resolve runs the guard and then each stage in order until one answers.
// A non-nil error means no response was produced and the host should
// answer 500; a cancelled ctx returns ctx.Err().
func (p *Pipeline) Resolve(ctx context.Context, urlPath string) (*Result, error) {
	start := time.Now()
	req := &Request{Path: urlPath}

	res, err := p.resolve(ctx, req)
	switch {
	case err != nil:
		if ctx.Err() == nil {
			p.env.obs.IncPipelineError(errorType(err))
		}
		return nil, err
	case res != nil:
		p.env.obs.ObserveResolution(res.Kind.String(), res.Status, time.Since(start))
	}
	return res, nil
}

func (p *Pipeline) resolve(ctx context.Context, req *Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isPrivate(req.Path) {
		p.env.diag.Info(ctx, "private path rejected", "path", req.Path)
		p.env.obs.IncPrivacyRejection()
		res, err := p.run(ctx, p.fallback, req)
		if res != nil {
			res.Rejected = true
		}
		return res, err
	}

	for _, st := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.run(ctx, st, req)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}
	// unreachable while the fallback stage terminates the chain
	return nil, xerrors.Newf("pipeline: no stage answered %q", req.Path)
}

func (p *Pipeline) run(ctx context.Context, st Stage, req *Request) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline."+st.Name(),
		trace.WithAttributes(attribute.String("url.path", req.Path)))
	defer span.End()

	res, err := st.Resolve(ctx, req)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, errorType(err))
	case res == nil:
		span.SetAttributes(attribute.Bool("pipeline.deferred", true))
	default:
		span.SetAttributes(
			attribute.String("content.kind", res.Kind.String()),
			attribute.String("content.file", res.Target.Name),
			attribute.Int("http.response.status_code", res.Status),
			attribute.Bool("pipeline.declined", res.Declined),
		)
	}
	return res, err
}
