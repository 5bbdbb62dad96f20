package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/keithlinneman/sitepipe/internal/content"
	"github.com/keithlinneman/sitepipe/internal/datactx"
)

// dataCmd prints the data context templates would see, without the
// configuration keys.
func (a *app) dataCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Print the merged _data.yaml context as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			root, err := content.Open(a.conf.Base)
			if err != nil {
				return err
			}
			data, files, err := datactx.Aggregate(ctx, root.FS)
			if err != nil {
				return err
			}

			body, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return fmt.Errorf("encode data context: %w", err)
			}
			body = append(body, '\n')

			if out == "" {
				_, err = cmd.OutOrStdout().Write(body)
				return err
			}
			if err := atomic.WriteFile(out, bytes.NewReader(body)); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d data files)\n", out, len(files))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file atomically instead of stdout")
	return cmd
}
