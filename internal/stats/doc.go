// Package stats samples host CPU and memory usage on demand. Nothing is cached
// or polled in the background; each Sample call queries the provider.
package stats
