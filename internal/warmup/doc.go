// Package warmup periodically probes the health URL of each upstream so
// hosts that sleep when idle are awake before a visitor needs them.
//
// Probes go through a pester client with its own retry budget and linear
// backoff. Results only feed logs and the upstream gauge; they never change
// how requests are forwarded.
package warmup
