package main

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/edge-functions/internal/edge"
)

func newHealthCmd(opts *options) *cobra.Command {
	var mvgrid bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Call the proxied health check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := edge.PathHealth
			if mvgrid {
				path = edge.PathMVGridHealth
			}

			r, err := opts.do(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			return r.print(cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&mvgrid, "mvgrid", false, "check the grid fault risk service instead of the inference backend")

	return cmd
}
