// Package registry holds the authoritative in-memory route set used for
// dispatch.
//
// Routes are published as immutable Snapshots through an atomic pointer.
// Reload builds a complete new Snapshot from the store and swaps it in, so a
// reader always sees either the old or the new route set, never a mix. Reloads
// are serialized; when two overlap, the one that started last publishes last.
// A failed reload leaves the previous Snapshot active.
package registry
