// Package logger builds the structured log/slog logger shared by the server,
// the serverless entry points and the CLI. Records carry the service name and
// deployment environment.
package logger
