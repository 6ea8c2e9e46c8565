// Package logger provides structured logging with configurable log levels.
// It wraps the standard log/slog package: JSON output in production, text
// output elsewhere, with every record tagged with the service and environment.
package logger
