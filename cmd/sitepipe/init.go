package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/sitepipe/internal/webassets"
)

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [DIR]",
		Short: "Write a starter site (DIR/public plus DIR/404.tmpl)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			files, err := webassets.WriteSeed(dir)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir, filepath.FromSlash(f)))
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "serve it with: %s --base %s\n", cmd.Root().Name(), filepath.Join(dir, "public"))
			return nil
		},
	}
}
