package healthcheck

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/registry"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
)

const (
	DefaultTimeout = 5 * time.Second
	maxConcurrent  = 8
)

type SnapshotSource interface {
	Current() *registry.Snapshot
}

type Observer interface {
	ObserveTargetHealth(hostname, target string, up bool)
	ForgetTarget(hostname, target string)
}

type LineAppender interface {
	Appendf(format string, args ...any)
	Errorf(format string, args ...any)
}

// TargetStatus is the outcome of the latest probe of one route.
type TargetStatus struct {
	Hostname  string    `json:"hostname"`
	Target    string    `json:"targetUrl"`
	Up        bool      `json:"up"`
	CheckedAt time.Time `json:"checkedAt"`
}

type key struct {
	hostname string
	target   string
}

type Monitor struct {
	routes   SnapshotSource
	client   *http.Client
	path     string
	logger   *slog.Logger
	lines    LineAppender
	observer Observer

	mu     sync.RWMutex
	status map[key]TargetStatus
}

// New returns a Monitor probing path on every route target. A zero timeout
// uses DefaultTimeout.
func New(routes SnapshotSource, path string, timeout time.Duration, logger *slog.Logger, lines LineAppender, observer Observer) *Monitor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if path == "" {
		path = "/"
	}

	return &Monitor{
		routes:   routes,
		client:   &http.Client{Timeout: timeout},
		path:     path,
		logger:   logger,
		lines:    lines,
		observer: observer,
		status:   make(map[key]TargetStatus),
	}
}

// Run probes every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Health check stopped")
			return
		case <-ticker.C:
			m.CheckOnce(ctx)
		}
	}
}

// CheckOnce probes each route of the current snapshot once and records the
// results. Routes no longer in the snapshot are forgotten.
func (m *Monitor) CheckOnce(ctx context.Context) {
	routes := m.routes.Current().Routes()

	results := make([]TargetStatus, len(routes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, rt := range routes {
		g.Go(func() error {
			results[i] = m.probe(gctx, rt)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return
	}

	m.record(results)
}

// Status returns the latest probe results ordered by hostname.
func (m *Monitor) Status() []TargetStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]TargetStatus, 0, len(m.status))
	for _, s := range m.status {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hostname != out[j].Hostname {
			return out[i].Hostname < out[j].Hostname
		}
		return out[i].Target < out[j].Target
	})
	return out
}

func (m *Monitor) probe(ctx context.Context, rt route.Route) TargetStatus {
	status := TargetStatus{Hostname: rt.Hostname, Target: rt.TargetURL}

	err := m.get(ctx, rt.TargetURL)
	status.Up = err == nil
	status.CheckedAt = time.Now()

	if err != nil {
		m.logger.Debug("Probe failed",
			slog.String("hostname", rt.Hostname),
			slog.String("target", rt.TargetURL),
			slog.Any("err", err))
	}

	return status
}

// get treats any response below 500 as alive: the route answers, whatever
// the probe path means to it. The probe path is appended to the target's base
// path, as forwarded requests are.
func (m *Monitor) get(ctx context.Context, target string) error {
	base, err := url.Parse(target)
	if err != nil {
		return err
	}
	probeURL := base.JoinPath(m.path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL.String(), nil)
	if err != nil {
		return err
	}

	res, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))

	if res.StatusCode >= http.StatusInternalServerError {
		return &statusError{code: res.StatusCode}
	}
	return nil
}

func (m *Monitor) record(results []TargetStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[key]struct{}, len(results))
	for _, s := range results {
		k := key{hostname: s.Hostname, target: s.Target}
		seen[k] = struct{}{}

		prev, known := m.status[k]
		m.status[k] = s
		m.observer.ObserveTargetHealth(s.Hostname, s.Target, s.Up)

		switch {
		case !s.Up && (!known || prev.Up):
			m.lines.Errorf("Target %s for %s is down", s.Target, s.Hostname)
			m.logger.Warn("Target is down",
				slog.String("hostname", s.Hostname),
				slog.String("target", s.Target))
		case s.Up && known && !prev.Up:
			m.lines.Appendf("Target %s for %s is back up", s.Target, s.Hostname)
			m.logger.Info("Target is back up",
				slog.String("hostname", s.Hostname),
				slog.String("target", s.Target))
		}
	}

	for k := range m.status {
		if _, ok := seen[k]; !ok {
			delete(m.status, k)
			m.observer.ForgetTarget(k.hostname, k.target)
		}
	}
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "probe answered " + http.StatusText(e.code)
}
