// Package forwarder implements the HTTP handlers that pass a browser request
// through to one upstream endpoint.
//
// A Forwarder accepts exactly one method plus OPTIONS, applies CORS headers to
// every response, forwards the request through the upstream client and turns
// the result into a JSON response. Upstream responses, including 4xx and 5xx,
// are passed through verbatim. When no attempt produced a response the
// forwarder answers 502 with a generic error body, or 503 with a degraded
// health document when configured with FailureDegraded.
package forwarder
