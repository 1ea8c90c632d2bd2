// Package upstream issues HTTP calls to a single upstream service under a
// per-attempt timeout and retries transient failures sequentially.
//
// The retry loop is an explicit state machine:
//
//	Attempting(n) -> BackingOff(n) -> Attempting(n+1)
//	Attempting(n) -> Done
//
// Network errors, timeouts and 5xx responses move the machine to BackingOff
// while attempts remain. Any other response, or exhausting the attempt budget,
// moves it to Done. Backoff is linear: attempt n waits n * BackoffBase.
//
// Usage:
//
//	client := upstream.NewClient(logger, &http.Client{}, nil)
//	result := client.Forward(ctx, upstream.Request{
//	    Name:   "predict",
//	    Method: http.MethodPost,
//	    URL:    "https://example.com/predict",
//	    Body:   payload,
//	}, upstream.Policy{MaxAttempts: 3, PerAttemptTimeout: 15 * time.Second, BackoffBase: 800 * time.Millisecond})
//	if result.Failure != nil {
//	    // timeout, network-error, or http-error when the last attempt was still 5xx
//	}
package upstream
