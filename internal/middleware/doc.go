// Package middleware holds the handler wrappers shared by every route:
// request ids, access logging with request metrics, and panic recovery.
package middleware
