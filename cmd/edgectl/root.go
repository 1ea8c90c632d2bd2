package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type options struct {
	baseURL string
	timeout time.Duration
}

func (o *options) client() *http.Client {
	return &http.Client{Timeout: o.timeout}
}

func (o *options) url(path string) string {
	return strings.TrimRight(o.baseURL, "/") + path
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "edgectl",
		Short:        "Inspect and exercise a running edge proxy",
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "base URL of the edge proxy")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "overall timeout of each call")

	cmd.AddCommand(
		newBuildCmd(opts),
		newHealthCmd(opts),
		newPredictCmd(opts),
		newStatusCmd(opts),
	)

	return cmd
}

type reply struct {
	Status int
	Body   []byte
}

func (o *options) do(ctx context.Context, method, path string, body []byte) (*reply, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, o.url(path), reader)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := o.client().Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading response")
	}

	return &reply{Status: res.StatusCode, Body: payload}, nil
}

// print writes the status line and body, and fails on an error status.
func (r *reply) print(w io.Writer) error {
	fmt.Fprintf(w, "%d %s\n", r.Status, http.StatusText(r.Status))
	if len(r.Body) > 0 {
		fmt.Fprintln(w, strings.TrimRight(string(r.Body), "\n"))
	}

	if r.Status >= http.StatusBadRequest {
		return errors.Errorf("edge proxy answered %d", r.Status)
	}
	return nil
}
