package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Kind classifies why a call did not produce a usable response.
type Kind string

const (
	KindTimeout Kind = "timeout"
	KindNetwork Kind = "network-error"
	KindHTTP    Kind = "http-error"
)

// Request describes one outbound call. Body is replayed on every attempt.
type Request struct {
	// Name labels the call in logs and metrics.
	Name   string
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read upstream response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Failure is returned when no attempt produced a usable response.
type Failure struct {
	Kind   Kind
	Detail string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// Result holds either a Response or a Failure, never both.
type Result struct {
	Response *Response
	Failure  *Failure
	Attempts int
}

// Kind returns the failure kind, KindHTTP for a passed-through 4xx, or "" for
// a successful response.
func (r Result) Kind() Kind {
	if r.Failure != nil {
		return r.Failure.Kind
	}
	if r.Response != nil && r.Response.Status >= http.StatusBadRequest {
		return KindHTTP
	}
	return ""
}

// Observer receives every finished attempt.
type Observer interface {
	ObserveAttempt(name string, outcome string, duration time.Duration)
}

type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer
}

// NewClient creates a Client. The http.Client should not carry its own
// Timeout; per-attempt deadlines come from the Policy. observer may be nil.
func NewClient(logger *slog.Logger, httpClient *http.Client, observer Observer) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		observer:   observer,
	}
}

// Forward runs req through the retry state machine. It returns the first
// non-retryable response, or a Failure when the budget ran out: the final
// attempt's error verbatim, or KindHTTP when the final attempt was still 5xx.
func (c *Client) Forward(ctx context.Context, req Request, policy Policy) Result {
	if _, err := url.ParseRequestURI(req.URL); err != nil {
		return Result{Failure: newFailure(errors.Wrap(err, "invalid upstream url"))}
	}

	var (
		state   = policy.Start()
		resp    *Response
		lastErr error
	)

	for {
		switch state.Phase {
		case PhaseAttempting:
			start := time.Now()
			resp, lastErr = c.attempt(ctx, req, policy.PerAttemptTimeout)
			outcome := Outcome{Err: lastErr}
			if resp != nil {
				outcome.Status = resp.Status
			}
			c.record(req, state.Attempt, outcome, time.Since(start))
			state = policy.Next(state, outcome)

		case PhaseBackingOff:
			c.logger.Debug("Backing off before retry",
				slog.String("upstream", req.Name),
				slog.Int("attempt", state.Attempt),
				slog.Duration("backoff", state.Backoff))

			if err := sleep(ctx, state.Backoff); err != nil {
				failure := lastFailure(resp, lastErr)
				failure.Detail = fmt.Sprintf("%s (retry abandoned: %s)", failure.Detail, err)
				return Result{Failure: failure, Attempts: state.Attempt}
			}
			state = policy.Next(state, Outcome{})

		case PhaseDone:
			if lastErr != nil || (Outcome{Status: resp.Status}).Retryable() {
				return Result{Failure: lastFailure(resp, lastErr), Attempts: state.Attempt}
			}
			return Result{Response: resp, Attempts: state.Attempt}
		}
	}
}

func (c *Client) attempt(ctx context.Context, req Request, timeout time.Duration) (*Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, errors.Wrap(err, "building upstream request")
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	res, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading upstream response")
	}

	return &Response{
		Status: res.StatusCode,
		Header: res.Header.Clone(),
		Body:   payload,
	}, nil
}

func (c *Client) record(req Request, attempt int, outcome Outcome, duration time.Duration) {
	attrs := []any{
		slog.String("upstream", req.Name),
		slog.String("url", req.URL),
		slog.Int("attempt", attempt),
		slog.String("outcome", outcome.Label()),
		slog.Duration("duration", duration),
	}
	if outcome.Err != nil {
		attrs = append(attrs, slog.String("err", outcome.Err.Error()))
	} else {
		attrs = append(attrs, slog.Int("status", outcome.Status))
	}
	c.logger.Debug("Upstream attempt finished", attrs...)

	if c.observer != nil {
		c.observer.ObserveAttempt(req.Name, outcome.Label(), duration)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// lastFailure describes a failed attempt: its error verbatim, or its 5xx
// status.
func lastFailure(resp *Response, err error) *Failure {
	if err != nil {
		return newFailure(err)
	}
	return statusFailure(resp.Status)
}

// statusFailure reports a 5xx that was still returned by the final attempt.
func statusFailure(status int) *Failure {
	return &Failure{
		Kind:   KindHTTP,
		Detail: fmt.Sprintf("upstream responded with status %d %s", status, http.StatusText(status)),
	}
}

func newFailure(err error) *Failure {
	return &Failure{Kind: classify(err), Detail: err.Error()}
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindNetwork
}
