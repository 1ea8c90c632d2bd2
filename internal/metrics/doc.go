// Package metrics collects request and upstream metrics for the edge functions
// and exposes them in the Prometheus text format.
//
// Events flow through a buffered channel into a single goroutine that updates
// the Prometheus vectors, so the request path never blocks on metrics:
//   - edge_requests_total and edge_request_duration_seconds per route
//   - edge_upstream_attempts_total and edge_upstream_attempt_duration_seconds per upstream and outcome
//   - edge_upstream_up per upstream, fed by the warmup prober
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.ObserveAttempt("mvgrid-predict", "http_5xx", 120*time.Millisecond)
//
//	mux.Handle("/metrics", collector.Handler())
//
// Events are sent with non-blocking semantics; when the buffer is full they are
// dropped. On shutdown the collector drains what is left in the channel.
package metrics
