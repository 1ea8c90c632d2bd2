package forwarder

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/angeloszaimis/edge-functions/internal/upstream"
)

// MaxBodyBytes caps the inbound body forwarded on POST.
const MaxBodyBytes = 1 << 20

// FailureMode selects the response written when the upstream is unreachable.
type FailureMode int

const (
	// FailureGeneric answers 502 {"error":"Upstream fetch failed","detail":...}.
	FailureGeneric FailureMode = iota
	// FailureDegraded answers 503 with a degraded health document.
	FailureDegraded
)

func (m FailureMode) String() string {
	switch m {
	case FailureGeneric:
		return "generic"
	case FailureDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// Upstream forwards one request descriptor under a retry policy.
type Upstream interface {
	Forward(ctx context.Context, req upstream.Request, policy upstream.Policy) upstream.Result
}

// Config describes one forwarded endpoint.
type Config struct {
	// Name labels the endpoint in logs and metrics.
	Name        string
	Method      string
	Target      string
	Policy      upstream.Policy
	FailureMode FailureMode
}

type Forwarder struct {
	cfg    Config
	client Upstream
	logger *slog.Logger
	now    func() time.Time
}

func New(logger *slog.Logger, client Upstream, cfg Config) *Forwarder {
	return &Forwarder{
		cfg:    cfg,
		client: client,
		logger: logger.With(slog.String("route", cfg.Name)),
		now:    time.Now,
	}
}

func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	applyCORS(w.Header(), f.cfg.Method)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if r.Method != f.cfg.Method {
		w.Header().Set("Allow", allowedMethods(f.cfg.Method))
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "Method not allowed"})
		return
	}

	req, err := f.describe(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "Request body too large"})
			return
		}
		f.logger.Warn("Failed to read request body", slog.String("err", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}

	result := f.client.Forward(r.Context(), req, f.cfg.Policy)

	if result.Failure != nil {
		f.logger.Warn("Upstream unreachable",
			slog.String("upstream", f.cfg.Target),
			slog.String("kind", string(result.Kind())),
			slog.String("detail", result.Failure.Detail),
			slog.Int("attempts", result.Attempts))
		f.writeFailure(w, result.Failure)
		return
	}

	f.logger.Debug("Forwarded request",
		slog.String("upstream", f.cfg.Target),
		slog.Int("status", result.Response.Status),
		slog.String("kind", string(result.Kind())),
		slog.Int("attempts", result.Attempts))
	writeUpstream(w, result.Response)
}

// describe builds the outbound request. POST bodies are forwarded byte for
// byte as JSON.
func (f *Forwarder) describe(w http.ResponseWriter, r *http.Request) (upstream.Request, error) {
	req := upstream.Request{
		Name:   f.cfg.Name,
		Method: f.cfg.Method,
		URL:    f.cfg.Target,
	}

	if f.cfg.Method != http.MethodPost {
		return req, nil
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return req, errors.Wrap(err, "reading inbound body")
	}

	req.Body = payload
	req.Header = http.Header{"Content-Type": []string{contentTypeJSON}}
	return req, nil
}

func (f *Forwarder) writeFailure(w http.ResponseWriter, failure *upstream.Failure) {
	if f.cfg.FailureMode == FailureDegraded {
		writeJSON(w, http.StatusServiceUnavailable, newDegradedBody(failure, f.now()))
		return
	}

	writeJSON(w, http.StatusBadGateway, errorBody{
		Error:  "Upstream fetch failed",
		Detail: failure.Error(),
	})
}

func writeUpstream(w http.ResponseWriter, resp *upstream.Response) {
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = contentTypeJSON
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
