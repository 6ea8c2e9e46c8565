package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/reverse-proxy-manager/config"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/backend"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/healthcheck"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/httpserver"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/metrics"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/registry"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/requestlog"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/routestore"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/stats"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reverse proxy and management API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
}

// application holds the long-lived components shared by the router and the
// server lifecycle.
type application struct {
	handler   http.Handler
	store     routestore.Store
	registry  *registry.Registry
	logs      *requestlog.Logger
	analytics *metrics.Collector
	monitor   *healthcheck.Monitor
}

// newApplication opens the route store, performs the initial reload and
// composes the request pipeline. The caller owns Close.
func newApplication(ctx context.Context, cfg *config.Config, log *slog.Logger) (*application, error) {
	store, err := routestore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening route store: %w", err)
	}

	logs := requestlog.New(cfg.RequestLog.Capacity, log)
	analytics := metrics.NewCollector()
	routes := registry.New(store, log, logs, analytics)

	if err := routes.Reload(ctx); err != nil {
		store.Close()
		return nil, err
	}

	proxy := backend.New(cfg.ProxyTimeout(), log, logs)
	sampler := stats.NewSampler(stats.NewHostProvider(), log, logs)

	var monitor *healthcheck.Monitor
	if cfg.HealthCheck.Enabled {
		_, timeout := cfg.HealthCheckTimings()
		monitor = healthcheck.New(routes, cfg.HealthCheck.Path, timeout, log, logs, analytics)
	}

	handler := setupRouter(routerDeps{
		config:    cfg,
		logger:    log,
		store:     store,
		registry:  routes,
		logs:      logs,
		analytics: analytics,
		sampler:   sampler,
		proxy:     proxy,
		monitor:   monitor,
	})

	return &application{
		handler:   handler,
		store:     store,
		registry:  routes,
		logs:      logs,
		analytics: analytics,
		monitor:   monitor,
	}, nil
}

func (a *application) Close() error {
	return a.store.Close()
}

func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize proxy", slog.Any("err", err))
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("Failed to close route store", slog.Any("err", err))
		}
	}()

	read, write, idle := cfg.ServerTimeouts()
	srv, err := httpserver.New(cfg.Server.Address, app.handler, httpserver.Timeouts{
		Read:  read,
		Write: write,
		Idle:  idle,
	})
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		return err
	}

	if app.monitor != nil {
		interval, _ := cfg.HealthCheckTimings()
		go app.monitor.Run(ctx, interval)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	app.logs.Appendf("Reverse proxy server running on %s!", srv.Addr())

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			log.Error("Error during shutdown", slog.Any("err", err))
			return err
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting reverse proxy", slog.Any("err", err))
			return err
		}
	}

	return nil
}
