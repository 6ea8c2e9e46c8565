// Package requestlog keeps the most recent operational log lines in a
// fixed-capacity ring buffer so they can be served over the API.
//
// Lines are stored newest-first from the reader's point of view; once the
// buffer is full each append evicts the oldest line. Every line is mirrored
// to the process slog logger, at error level when it starts with "ERROR:".
package requestlog
