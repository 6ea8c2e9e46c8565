package handler

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/middleware"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/registry"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
)

// SnapshotSource provides the active route snapshot.
type SnapshotSource interface {
	Current() *registry.Snapshot
}

// Forwarder sends a request to a route's target.
type Forwarder interface {
	Forward(w http.ResponseWriter, r *http.Request, rt route.Route)
}

type Dispatcher struct {
	logger   *slog.Logger
	routes   SnapshotSource
	proxy    Forwarder
	fallback http.Handler
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// One snapshot per request; the matched route carries both hostname and
	// target so nothing is read from a later snapshot.
	snapshot := d.routes.Current()

	rt, ok := snapshot.Lookup(r.Host)
	if !ok {
		d.fallback.ServeHTTP(w, r)
		return
	}

	d.logger.Debug("Dispatching to route",
		slog.String("request_id", middleware.RequestID(r.Context())),
		slog.Int64("route_id", rt.ID),
		slog.String("host", r.Host),
		slog.String("target", rt.TargetURL),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path))

	d.proxy.Forward(w, r, rt)
}

func NewDispatcher(logger *slog.Logger, routes SnapshotSource, proxy Forwarder, fallback http.Handler) *Dispatcher {
	if fallback == nil {
		fallback = http.NotFoundHandler()
	}
	return &Dispatcher{
		logger:   logger,
		routes:   routes,
		proxy:    proxy,
		fallback: fallback,
	}
}
