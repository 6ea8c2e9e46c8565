package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/angeloszaimis/reverse-proxy-manager/internal/middleware"
	"github.com/angeloszaimis/reverse-proxy-manager/internal/route"
)

const maxBodyBytes = 1 << 20

func (a *API) createRoute(w http.ResponseWriter, r *http.Request) {
	id := middleware.RequestID(r.Context())

	fields, err := decodeFields(w, r)
	if err != nil {
		a.badRequest(w, id, "creating route", err)
		return
	}

	created, err := a.store.Create(r.Context(), fields)
	if err != nil {
		a.badRequest(w, id, "creating route", err)
		return
	}

	a.logs.Appendf("%s Created new route id %d: %s -> %s", id, created.ID, created.Hostname, created.TargetURL)
	a.reload(r.Context())

	writeJSON(w, http.StatusOK, created)
}

func (a *API) listRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := a.store.List(r.Context())
	if err != nil {
		id := middleware.RequestID(r.Context())
		a.logs.Errorf("%s Error listing routes: %v", id, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if routes == nil {
		routes = []route.Route{}
	}

	writeJSON(w, http.StatusOK, routes)
}

func (a *API) updateRoute(w http.ResponseWriter, r *http.Request) {
	id := middleware.RequestID(r.Context())

	routeID, err := parseRouteID(r)
	if err != nil {
		a.badRequest(w, id, "updating route", err)
		return
	}

	fields, err := decodeFields(w, r)
	if err != nil {
		a.badRequest(w, id, "updating route", err)
		return
	}

	updated, err := a.store.Update(r.Context(), routeID, fields)
	if err != nil {
		a.badRequest(w, id, "updating route", err)
		return
	}

	a.logs.Appendf("%s Updated route id %d: %s -> %s", id, routeID, updated.Hostname, updated.TargetURL)
	a.reload(r.Context())

	writeJSON(w, http.StatusOK, updated)
}

func (a *API) deleteRoute(w http.ResponseWriter, r *http.Request) {
	id := middleware.RequestID(r.Context())

	routeID, err := parseRouteID(r)
	if err != nil {
		a.badRequest(w, id, "deleting route", err)
		return
	}

	if err := a.store.Delete(r.Context(), routeID); err != nil {
		a.badRequest(w, id, "deleting route", err)
		return
	}

	a.reload(r.Context())
	a.logs.Appendf("%s Deleted route with id: %d", id, routeID)

	w.WriteHeader(http.StatusOK)
}

func (a *API) badRequest(w http.ResponseWriter, id, action string, err error) {
	a.logs.Errorf("%s Error %s: %v", id, action, err)
	a.logger.Warn("Rejected route mutation",
		slog.String("request_id", id),
		slog.String("action", action),
		slog.Any("err", err))
	writeError(w, http.StatusBadRequest, err.Error())
}

func decodeFields(w http.ResponseWriter, r *http.Request) (route.Fields, error) {
	var fields route.Fields

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return route.Fields{}, nil
		}
		return route.Fields{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	return fields, nil
}

func parseRouteID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid route id %q", raw)
	}
	return id, nil
}
