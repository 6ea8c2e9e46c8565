// Package metrics provides the process-wide request analytics.
//
// It counts every completed request and every completed request whose status
// code is 400 or above, and derives an error rate from the two:
//
//	collector := metrics.NewCollector()
//	collector.RecordCompletion(http.StatusOK)
//	collector.RecordCompletion(http.StatusNotFound)
//	collector.ErrorRatePercent() // 50
//
// Counters are updated under a mutex; nothing is sampled or dropped. The same
// values are mirrored into a private Prometheus registry, together with the
// number of routes in the active snapshot, the time of the last reload and
// per-target health, and exposed through Handler. Nothing survives a restart.
package metrics
