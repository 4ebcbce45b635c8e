package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Pratheekshhaa/AgenticAI-mech/internal/alerts"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/model"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/status"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/store"
)

// HTTPAPI provides the read-only status surface plus the operator alert
// transitions. Dashboards are the intended consumer; nothing here mutates
// monitor state except alert acknowledgement.
type HTTPAPI struct {
	reporter   *status.Reporter
	alerts     *alerts.Manager
	findingLog *store.FindingLog
	isolations store.IsolationStore
	natsConn   *nats.Conn
}

// NewHTTPAPI creates the HTTP API.
func NewHTTPAPI(reporter *status.Reporter, alertMgr *alerts.Manager, findingLog *store.FindingLog, isolations store.IsolationStore, natsConn *nats.Conn) *HTTPAPI {
	return &HTTPAPI{
		reporter:   reporter,
		alerts:     alertMgr,
		findingLog: findingLog,
		isolations: isolations,
		natsConn:   natsConn,
	}
}

// SetupRoutes configures HTTP routes.
func (api *HTTPAPI) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/agents/", api.handleAgentStatus)
	mux.HandleFunc("/dashboard", api.handleDashboard)
	mux.HandleFunc("/alerts", api.handleAlerts)
	mux.HandleFunc("/alerts/", api.handleAlertTransition)
	mux.HandleFunc("/findings", api.handleFindings)
	mux.HandleFunc("/isolations", api.handleIsolations)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", api.handleHealth)
	mux.HandleFunc("/readyz", api.handleReady)
}

// handleAgentStatus handles GET /agents/{id}/status.
func (api *HTTPAPI) handleAgentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/agents/")
	if !strings.HasSuffix(path, "/status") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	agentID := strings.TrimSuffix(path, "/status")
	if agentID == "" || strings.Contains(agentID, "/") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	writeJSON(w, api.reporter.AgentStatus(agentID, time.Now()))
}

// handleDashboard handles GET /dashboard.
func (api *HTTPAPI) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, api.reporter.Dashboard(time.Now()))
}

// handleAlerts handles GET /alerts with an optional status filter.
func (api *HTTPAPI) handleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter := r.URL.Query().Get("status")
	switch filter {
	case "", model.AlertStatusNew, model.AlertStatusAcknowledged, model.AlertStatusResolved:
	default:
		http.Error(w, "Invalid status filter", http.StatusBadRequest)
		return
	}

	writeJSON(w, map[string]interface{}{
		"alerts": api.alerts.All(filter),
	})
}

// handleAlertTransition handles POST /alerts/{id}/ack and
// POST /alerts/{id}/resolve, the external operator transitions.
func (api *HTTPAPI) handleAlertTransition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/alerts/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	alertID := parts[0]
	var err error
	switch parts[1] {
	case "ack":
		err = api.alerts.Acknowledge(alertID)
	case "resolve":
		err = api.alerts.Resolve(alertID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	writeJSON(w, api.alerts.Get(alertID))
}

// handleFindings handles GET /findings with optional agent_id, severity,
// and limit query parameters.
func (api *HTTPAPI) handleFindings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var findings []model.Finding

	agentID := r.URL.Query().Get("agent_id")
	severity := r.URL.Query().Get("severity")

	if agentID != "" {
		findings = api.findingLog.ByAgent(agentID)
	} else if severity != "" {
		findings = api.findingLog.BySeverity(severity)
	} else {
		findings = api.findingLog.All()
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 && limit < len(findings) {
			findings = findings[len(findings)-limit:]
		}
	}

	writeJSON(w, map[string]interface{}{
		"findings": findings,
		"count":    len(findings),
	})
}

// handleIsolations handles GET /isolations.
func (api *HTTPAPI) handleIsolations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := api.isolations.All()
	if err != nil {
		http.Error(w, "Failed to read isolation records", http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"isolations": records,
	})
}

// handleHealth reports process liveness.
func (api *HTTPAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleReady reports readiness: the bus connection must be up.
func (api *HTTPAPI) handleReady(w http.ResponseWriter, r *http.Request) {
	if api.natsConn != nil && !api.natsConn.IsConnected() {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "nats disconnected"})
		return
	}
	writeJSON(w, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
