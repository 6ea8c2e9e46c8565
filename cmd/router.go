package main

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/reverse-proxy-manager/config"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/api"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/backend"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/handler"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/healthcheck"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/metrics"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/middleware"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/registry"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/requestlog"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/routestore"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/stats"
)

type routerDeps struct {
	config    *config.Config
	logger    *slog.Logger
	store     routestore.Store
	registry  *registry.Registry
	logs      *requestlog.Logger
	analytics *metrics.Collector
	sampler   *stats.Sampler
	proxy     *backend.Client
	monitor   *healthcheck.Monitor
}

// setupRouter composes the request pipeline. Host-matched requests go to the
// proxy; everything else reaches the mux (management API, metrics, then the
// fallthrough chain on "/").
func setupRouter(d routerDeps) http.Handler {
	mux := http.NewServeMux()

	deps := api.Deps{
		Logger:    d.logger,
		Store:     d.store,
		Registry:  d.registry,
		Logs:      d.logs,
		Analytics: d.analytics,
		Stats:     d.sampler,
	}
	if d.monitor != nil {
		deps.Health = d.monitor
	}
	api.New(deps).Register(mux)

	if d.config.Metrics.Enabled {
		mux.Handle("GET "+d.config.Metrics.Path, d.analytics.Handler())
	}

	mux.Handle("/", handler.NewFallthrough(handler.FallthroughConfig{
		StaticDir:      d.config.Static.Dir,
		UpstreamPrefix: d.config.Proxy.FallbackPrefix,
		UpstreamURL:    d.config.Proxy.FallbackUpstream,
		DebugPrefix:    d.config.Proxy.DebugPrefix,
	}, d.proxy))

	dispatcher := handler.NewDispatcher(d.logger, d.registry, d.proxy, mux)

	observe := middleware.Observe(d.logs, d.analytics)
	recoverer := middleware.Recover(d.logger, d.logs)

	return observe(middleware.CORS(recoverer(dispatcher)))
}
