package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const metricsNamespace = "reverse_proxy"

// Collector is the analytics entry point used by the request pipeline and
// the route registry.
type Collector struct {
	metrics  *Metrics
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	errors         prometheus.Counter
	activeRoutes   prometheus.Gauge
	lastReloadedAt prometheus.Gauge
	targetUp       *prometheus.GaugeVec
}

func NewCollector() *Collector {
	c := &Collector{
		metrics:  NewMetrics(),
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Completed requests by status code",
		}, []string{"code"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "request_errors_total",
			Help:      "Completed requests with a status code of 400 or above",
		}),
		activeRoutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_routes",
			Help:      "Number of routes in the active snapshot",
		}),
		lastReloadedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_reloaded_at",
			Help:      "Unix timestamp of the last successful route reload",
		}),
		targetUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "target_up",
			Help:      "1 if the last probe of a route target got a response, 0 otherwise",
		}, []string{"hostname", "target"}),
	}

	c.registry.MustRegister(
		c.requests,
		c.errors,
		c.activeRoutes,
		c.lastReloadedAt,
		c.targetUp,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

func (c *Collector) RecordCompletion(statusCode int) {
	c.metrics.RecordCompletion(statusCode)

	c.requests.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	if statusCode >= 400 {
		c.errors.Inc()
	}
}

// ObserveReload records the size of a freshly published route snapshot.
func (c *Collector) ObserveReload(routes int) {
	c.activeRoutes.Set(float64(routes))
	c.lastReloadedAt.SetToCurrentTime()
}

func (c *Collector) ObserveTargetHealth(hostname, target string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	c.targetUp.WithLabelValues(hostname, target).Set(v)
}

// ForgetTarget drops the health series of a route that left the snapshot.
func (c *Collector) ForgetTarget(hostname, target string) {
	c.targetUp.DeleteLabelValues(hostname, target)
}

func (c *Collector) ErrorRatePercent() float64 {
	return c.metrics.ErrorRatePercent()
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}

// Registry exposes the Prometheus registry backing Handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
