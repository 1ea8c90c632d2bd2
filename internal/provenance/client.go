package provenance

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// BuildPath is where the build metadata document is served.
const BuildPath = "/api/build"

const maxDocumentBytes = 64 << 10

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(logger *slog.Logger, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Load fetches the build document bypassing caches. Failures are logged and
// yield Unavailable.
func (c *Client) Load(ctx context.Context) Display {
	doc, err := c.fetch(ctx)
	if err != nil {
		c.logger.Debug("Build metadata unavailable", slog.String("err", err.Error()))
		return Unavailable()
	}

	return FromDocument(doc)
}

func (c *Client) fetch(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+BuildPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building build metadata request")
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetching build metadata")
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, errors.Errorf("build endpoint responded with status %d", res.StatusCode)
	}

	var doc map[string]any
	if err := json.NewDecoder(io.LimitReader(res.Body, maxDocumentBytes)).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decoding build metadata")
	}

	return doc, nil
}
