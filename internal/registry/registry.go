package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
)

// Lister is the read side of the route store.
type Lister interface {
	List(ctx context.Context) ([]route.Route, error)
}

// LineAppender receives operational log lines.
type LineAppender interface {
	Appendf(format string, args ...any)
	Errorf(format string, args ...any)
}

// ReloadObserver is notified after every successful publication.
type ReloadObserver interface {
	ObserveReload(routes int)
}

type Registry struct {
	store    Lister
	logger   *slog.Logger
	lines    LineAppender
	observer ReloadObserver

	current  atomic.Pointer[Snapshot]
	loaded   atomic.Bool
	reloadMu sync.Mutex
}

// New returns a Registry serving an empty snapshot until the first Reload.
// observer may be nil.
func New(store Lister, logger *slog.Logger, lines LineAppender, observer ReloadObserver) *Registry {
	r := &Registry{
		store:    store,
		logger:   logger,
		lines:    lines,
		observer: observer,
	}
	r.current.Store(newSnapshot(nil, time.Time{}))
	return r
}

// Current returns the active snapshot. It never blocks on store I/O.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Loaded reports whether at least one reload has succeeded.
func (r *Registry) Loaded() bool {
	return r.loaded.Load()
}

// Reload replaces the active snapshot with the store's current route list.
// On error the previous snapshot stays active.
func (r *Registry) Reload(ctx context.Context) error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	routes, err := r.store.List(ctx)
	if err != nil {
		r.lines.Errorf("Failed to reload proxy routes: %v", err)
		r.logger.Error("Route reload failed, keeping previous snapshot",
			slog.Int("active_routes", r.Current().Len()),
			slog.Any("err", err))
		return fmt.Errorf("reload routes: %w", err)
	}

	snapshot := newSnapshot(routes, time.Now())
	for _, rt := range snapshot.routes {
		r.lines.Appendf("Setting up proxy route: %s -> %s", rt.Hostname, rt.TargetURL)
	}
	for _, rt := range snapshot.shadowed() {
		r.logger.Warn("Duplicate hostname, route is shadowed by an earlier one",
			slog.Int64("id", rt.ID),
			slog.String("hostname", rt.Hostname),
			slog.String("target", rt.TargetURL))
	}

	r.current.Store(snapshot)
	r.loaded.Store(true)

	if r.observer != nil {
		r.observer.ObserveReload(snapshot.Len())
	}

	r.logger.Debug("Published route snapshot", slog.Int("routes", snapshot.Len()))
	return nil
}
