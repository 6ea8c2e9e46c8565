// Package healthcheck probes the targets of the active routes on an interval.
// Probing is passive: results feed the request log and the target_up gauge
// but never change which target a request is dispatched to.
package healthcheck
