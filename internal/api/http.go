// Package api exposes the operator surface: snapshot reads, indicator
// lookups, mode control, and health.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelsoc/sentry/internal/intel"
	"github.com/sentinelsoc/sentry/internal/sched"
	"github.com/sentinelsoc/sentry/internal/store"
)

// HTTPAPI serves read-only snapshots of the retention store plus the
// intel lookup and scheduler mode controls.
type HTTPAPI struct {
	store     *store.Memory
	intel     *intel.QueryService
	scheduler *sched.Scheduler
	logger    *slog.Logger
}

// NewHTTPAPI creates the operator API.
func NewHTTPAPI(st *store.Memory, intelQuery *intel.QueryService, scheduler *sched.Scheduler, logger *slog.Logger) *HTTPAPI {
	return &HTTPAPI{
		store:     st,
		intel:     intelQuery,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Router builds the route table.
func (a *HTTPAPI) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/events", a.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/alerts", a.handleAlerts).Methods(http.MethodGet)
	r.HandleFunc("/stats", a.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/intel/{indicator}", a.handleIntelLookup).Methods(http.MethodGet)
	r.HandleFunc("/mode", a.handleGetMode).Methods(http.MethodGet)
	r.HandleFunc("/mode", a.handleSetMode).Methods(http.MethodPut)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", a.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.handleReady).Methods(http.MethodGet)
	return r
}

func (a *HTTPAPI) handleEvents(w http.ResponseWriter, r *http.Request) {
	events := a.store.Events(parseLimit(r))
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":    events,
		"count":     len(events),
		"timestamp": time.Now().UTC(),
	})
}

func (a *HTTPAPI) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := a.store.Alerts(parseLimit(r))
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts":    alerts,
		"count":     len(alerts),
		"timestamp": time.Now().UTC(),
	})
}

func (a *HTTPAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":     a.store.Stats(),
		"mode":      a.scheduler.Mode(),
		"timestamp": time.Now().UTC(),
	})
}

func (a *HTTPAPI) handleIntelLookup(w http.ResponseWriter, r *http.Request) {
	indicator := mux.Vars(r)["indicator"]
	a.writeJSON(w, http.StatusOK, a.intel.Lookup(indicator))
}

func (a *HTTPAPI) handleGetMode(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]interface{}{"mode": a.scheduler.Mode()})
}

func (a *HTTPAPI) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	mode, err := sched.ParseMode(body.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := a.scheduler.SetMode(mode); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	a.logger.Info("Ingestion mode set via API", "mode", mode)
	a.writeJSON(w, http.StatusOK, map[string]interface{}{"mode": mode})
}

func (a *HTTPAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (a *HTTPAPI) handleReady(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"mode":   a.scheduler.Mode(),
	})
}

func (a *HTTPAPI) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("Failed to encode response", "error", err)
	}
}

// parseLimit reads the optional ?limit= query parameter; zero means all.
func parseLimit(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			return limit
		}
	}
	return 0
}
