package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/healthcheck"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/metrics"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/stats"
)

// RouteStore is the write side of route management.
type RouteStore interface {
	List(ctx context.Context) ([]route.Route, error)
	Create(ctx context.Context, fields route.Fields) (route.Route, error)
	Update(ctx context.Context, id int64, fields route.Fields) (route.Route, error)
	Delete(ctx context.Context, id int64) error
}

type Reloader interface {
	Reload(ctx context.Context) error
}

type LogBuffer interface {
	Snapshot() []string
	Appendf(format string, args ...any)
	Errorf(format string, args ...any)
}

type Analytics interface {
	Snapshot() metrics.Snapshot
}

type StatsSampler interface {
	Sample(ctx context.Context) (stats.Usage, error)
}

type HealthReporter interface {
	Status() []healthcheck.TargetStatus
}

// Deps are the collaborators the API needs.
type Deps struct {
	Logger    *slog.Logger
	Store     RouteStore
	Registry  Reloader
	Logs      LogBuffer
	Analytics Analytics
	Stats     StatsSampler
	// Health is optional; without it the route health endpoint is not mounted.
	Health HealthReporter
}

type API struct {
	logger    *slog.Logger
	store     RouteStore
	registry  Reloader
	logs      LogBuffer
	analytics Analytics
	stats     StatsSampler
	health    HealthReporter
}

func New(deps Deps) *API {
	return &API{
		logger:    deps.Logger,
		store:     deps.Store,
		registry:  deps.Registry,
		logs:      deps.Logs,
		analytics: deps.Analytics,
		stats:     deps.Stats,
		health:    deps.Health,
	}
}

// Register mounts the endpoints on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/routes", a.createRoute)
	mux.HandleFunc("GET /api/routes", a.listRoutes)
	mux.HandleFunc("PUT /api/routes/{id}", a.updateRoute)
	mux.HandleFunc("DELETE /api/routes/{id}", a.deleteRoute)
	mux.HandleFunc("GET /api/logs", a.listLogs)
	mux.HandleFunc("GET /api/analytics", a.getAnalytics)
	mux.HandleFunc("GET /api/server-stats", a.getServerStats)
	if a.health != nil {
		mux.HandleFunc("GET /api/routes/health", a.getRouteHealth)
	}
}

// reload refreshes the registry after a successful mutation. The store
// already holds the change, so a failed reload is logged by the registry and
// does not fail the request. It is detached from the request's cancellation.
func (a *API) reload(ctx context.Context) {
	_ = a.registry.Reload(context.WithoutCancel(ctx))
}
