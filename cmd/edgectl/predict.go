package main

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/angeloszaimis/edge-functions/internal/edge"
)

func newPredictCmd(opts *options) *cobra.Command {
	var (
		data string
		file string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Send a JSON payload to the prediction endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := readPayload(data, file)
			if err != nil {
				return err
			}

			r, err := opts.do(cmd.Context(), http.MethodPost, edge.PathMVGridPredict, payload)
			if err != nil {
				return err
			}
			return r.print(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "inline JSON payload")
	cmd.Flags().StringVarP(&file, "file", "f", "", "file holding the JSON payload")
	cmd.MarkFlagsMutuallyExclusive("data", "file")
	cmd.MarkFlagsOneRequired("data", "file")

	return cmd
}

func readPayload(data, file string) ([]byte, error) {
	payload := []byte(data)
	if file != "" {
		var err error
		if payload, err = os.ReadFile(file); err != nil {
			return nil, errors.Wrap(err, "reading payload file")
		}
	}

	if !json.Valid(payload) {
		return nil, errors.New("payload is not valid JSON")
	}
	return payload, nil
}
