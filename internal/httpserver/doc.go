// Package httpserver runs the edge proxy's HTTP listener with a validated
// address, bounded timeouts and graceful shutdown.
package httpserver
