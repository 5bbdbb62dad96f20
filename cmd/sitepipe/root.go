package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/sitepipe/internal/cfg"
	"github.com/keithlinneman/sitepipe/internal/log"
	"github.com/keithlinneman/sitepipe/internal/pipeline"
	v "github.com/keithlinneman/sitepipe/internal/version"
)

// app is the state shared by every subcommand.
type app struct {
	conf cfg.App
}

func newRootCmd() *cobra.Command {
	a := &app{}
	vi := v.Get()

	root := &cobra.Command{
		Use:   v.AppName,
		Short: "Serve a content directory through the template, html and markdown resolver chain",
		Long: `sitepipe answers each request path with the first match of
<path>.tmpl (rendered with the merged _data.yaml context and the nearest layout),
<path>.html, or <path>.md, and otherwise a 404 view from the content root's parent.
Paths with a segment starting with "_" or ".git" are never served.`,
		Version: vi.Version,
		// serve is the default
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg.FillFromEnv(cmd.Flags(), cfg.EnvPrefix, func(format string, args ...any) {
				fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
			})
			if err := cfg.Validate(a.conf); err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			return nil
		},
	}
	root.SetVersionTemplate(vi.String() + "\n")
	cfg.Register(root.PersistentFlags(), &a.conf)

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the public and admin listeners (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.serve(cmd.Context())
			},
		},
		a.resolveCmd(),
		a.dataCmd(),
		a.initCmd(),
	)
	return root
}

// logger builds the process logger writing to w.
func (a *app) logger(w io.Writer, component string) (log.Logger, error) {
	lvl, err := log.ParseLevel(a.conf.LogLevel)
	if err != nil {
		return nil, err
	}
	stackLvl, err := log.ParseLevel(a.conf.StacktraceLevel)
	if err != nil {
		return nil, err
	}
	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           v.Version,
		Commit:            v.Commit,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JsonFormat:        a.conf.LogJSON,
		MaxErrorLinks:     a.conf.MaxErrorLinks,
		IncludeErrorLinks: a.conf.IncludeErrorLinks,
		Writer:            w,
	})
	if err != nil {
		return nil, err
	}
	return lg.With("component", component), nil
}

func (a *app) pipelineConfig() (pipeline.Config, error) {
	marked, err := a.conf.MarkedOptions()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Base:       a.conf.Base,
		LayoutFile: a.conf.LayoutFile,
		Marked:     marked,
		Log:        a.conf.Log,
	}, nil
}

func (a *app) newPipeline(L log.Logger, obs pipeline.Observer) (*pipeline.Pipeline, error) {
	pc, err := a.pipelineConfig()
	if err != nil {
		return nil, err
	}
	return pipeline.New(pc, pipeline.Options{Logger: L, Metrics: obs})
}
