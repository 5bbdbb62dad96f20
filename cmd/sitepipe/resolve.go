package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/sitepipe/internal/pipeline"
)

// resolveCmd runs paths through the pipeline without a server and prints
// what each would be answered with.
func (a *app) resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve PATH...",
		Short: "Show which content each URL path resolves to",
		Example: `  sitepipe resolve / /about /blog/
  sitepipe --base site/public resolve /_drafts/x`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			L, err := a.logger(cmd.ErrOrStderr(), "resolve")
			if err != nil {
				return err
			}
			p, err := a.newPipeline(L, nil)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tSTATUS\tKIND\tFILE\tBYTES")
			var failed int
			for _, path := range args {
				res, err := p.Resolve(ctx, path)
				if err != nil {
					failed++
					L.Error(ctx, err, "resolve failed", "path", path)
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n", path, 500, "error", "-", "-")
					continue
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%d\n", path, res.Status, kindLabel(res), fileLabel(res), len(res.Body))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d paths failed to resolve", failed, len(args))
			}
			return nil
		},
	}
}

func kindLabel(res *pipeline.Result) string {
	switch {
	case res.Rejected:
		return res.Kind.String() + " (private)"
	case res.Declined:
		return res.Kind.String() + " (declined)"
	default:
		return res.Kind.String()
	}
}

func fileLabel(res *pipeline.Result) string {
	if res.Target.Path == "" {
		return "-"
	}
	if res.Layout != "" {
		return res.Target.Path + " +" + res.Layout
	}
	return res.Target.Path
}
