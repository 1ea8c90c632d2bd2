package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/edge-functions/internal/edge"
	"github.com/angeloszaimis/edge-functions/internal/provenance"
	"github.com/angeloszaimis/edge-functions/pkg/logger"
)

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show build provenance and both health checks at once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				display provenance.Display
				health  string
				mvgrid  string
			)

			g, ctx := errgroup.WithContext(cmd.Context())

			g.Go(func() error {
				display = provenance.NewClient(logger.Discard(), opts.baseURL, opts.client()).Load(ctx)
				return nil
			})
			g.Go(func() (err error) {
				health, err = opts.statusOf(ctx, edge.PathHealth)
				return err
			})
			g.Go(func() (err error) {
				mvgrid, err = opts.statusOf(ctx, edge.PathMVGridHealth)
				return err
			})

			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, display.String())
			fmt.Fprintf(out, "inference: %s\n", health)
			fmt.Fprintf(out, "mvgrid: %s\n", mvgrid)
			return nil
		},
	}
}

// statusOf summarizes one health endpoint as "up", "down (<status>)" or
// "unreachable". It only fails when the command itself was cancelled or
// timed out.
func (o *options) statusOf(ctx context.Context, path string) (string, error) {
	r, err := o.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", errors.Wrapf(ctxErr, "checking %s", path)
		}
		return "unreachable", nil
	}
	if r.Status != http.StatusOK {
		return fmt.Sprintf("down (%d)", r.Status), nil
	}
	return "up", nil
}
