package api

import (
	"net/http"
	"strconv"
)

type analyticsResponse struct {
	TotalRequests int64   `json:"totalRequests"`
	ErrorRate     float64 `json:"errorRate"`
}

type serverStatsResponse struct {
	CPU    string `json:"cpu"`
	Memory string `json:"memory"`
}

func (a *API) listLogs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.logs.Snapshot())
}

func (a *API) getAnalytics(w http.ResponseWriter, _ *http.Request) {
	snap := a.analytics.Snapshot()
	writeJSON(w, http.StatusOK, analyticsResponse{
		TotalRequests: snap.TotalRequests,
		ErrorRate:     snap.ErrorRate,
	})
}

func (a *API) getServerStats(w http.ResponseWriter, r *http.Request) {
	usage, err := a.stats.Sample(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch server stats")
		return
	}

	writeJSON(w, http.StatusOK, serverStatsResponse{
		CPU:    strconv.FormatFloat(usage.CPUPercent, 'f', 2, 64),
		Memory: strconv.FormatFloat(usage.MemoryPercent, 'f', 2, 64),
	})
}

func (a *API) getRouteHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.health.Status())
}
