package alerts

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pratheekshhaa/AgenticAI-mech/internal/bus"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/model"
)

// Manager keeps the append-only alert log. Alerts are created in state new
// for high and critical findings only; lower severities feed the score but
// are never promoted. Status transitions (new -> acknowledged -> resolved)
// are driven externally through Acknowledge and Resolve; the monitor's own
// logic never mutates a raised alert.
type Manager struct {
	mu        sync.RWMutex
	alerts    []*model.Alert
	byID      map[string]*model.Alert
	publisher bus.Publisher
	logger    *slog.Logger
}

// NewManager creates an alert manager publishing raised alerts on the bus.
func NewManager(publisher bus.Publisher, logger *slog.Logger) *Manager {
	return &Manager{
		byID:      make(map[string]*model.Alert),
		publisher: publisher,
		logger:    logger,
	}
}

// Raise promotes a finding to an alert, appends it to the log, and publishes
// it on ueba.alerts. Raise never overwrites an existing alert. The publish
// is best-effort: failure is logged and the alert is still retained.
func (m *Manager) Raise(finding model.Finding, now time.Time) *model.Alert {
	alert := &model.Alert{
		ID:        uuid.NewString(),
		Timestamp: now,
		AgentID:   finding.AgentID,
		Finding:   finding,
		Status:    model.AlertStatusNew,
	}

	m.mu.Lock()
	m.alerts = append(m.alerts, alert)
	m.byID[alert.ID] = alert
	m.mu.Unlock()

	m.logger.Info("Alert raised",
		"alert_id", alert.ID,
		"agent_id", alert.AgentID,
		"type", finding.Type,
		"severity", finding.Severity)

	m.publish(alert)
	return alert
}

// publish serializes the alert onto the alerts subject.
func (m *Manager) publish(alert *model.Alert) {
	data, err := json.Marshal(alert)
	if err != nil {
		m.logger.Error("Failed to marshal alert", "alert_id", alert.ID, "error", err)
		return
	}
	if err := m.publisher.Publish(bus.AlertsSubject, data); err != nil {
		m.logger.Error("Failed to publish alert", "alert_id", alert.ID, "error", err)
	}
}

// Acknowledge transitions an alert from new to acknowledged.
func (m *Manager) Acknowledge(alertID string) error {
	return m.transition(alertID, model.AlertStatusNew, model.AlertStatusAcknowledged)
}

// Resolve transitions an alert from acknowledged to resolved. Resolved is
// terminal.
func (m *Manager) Resolve(alertID string) error {
	return m.transition(alertID, model.AlertStatusAcknowledged, model.AlertStatusResolved)
}

func (m *Manager) transition(alertID, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert, ok := m.byID[alertID]
	if !ok {
		return fmt.Errorf("unknown alert %s", alertID)
	}
	if alert.Status != from {
		return fmt.Errorf("alert %s is %s, cannot transition to %s", alertID, alert.Status, to)
	}

	alert.Status = to
	m.logger.Info("Alert status changed", "alert_id", alertID, "status", to)
	return nil
}

// Get returns a copy of the alert with the given ID, or nil.
func (m *Manager) Get(alertID string) *model.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	alert, ok := m.byID[alertID]
	if !ok {
		return nil
	}
	copied := *alert
	return &copied
}

// All returns copies of every alert, oldest first, optionally filtered by
// status.
func (m *Manager) All(status string) []model.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Alert, 0, len(m.alerts))
	for _, alert := range m.alerts {
		if status != "" && alert.Status != status {
			continue
		}
		out = append(out, *alert)
	}
	return out
}

// ActiveCount returns the number of alerts still in state new.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, alert := range m.alerts {
		if alert.Status == model.AlertStatusNew {
			count++
		}
	}
	return count
}

// Recent returns copies of the most recent n alerts, newest last.
func (m *Manager) Recent(n int) []model.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n > len(m.alerts) {
		n = len(m.alerts)
	}
	out := make([]model.Alert, 0, n)
	for _, alert := range m.alerts[len(m.alerts)-n:] {
		out = append(out, *alert)
	}
	return out
}

// LastForAgent returns a copy of the newest alert for an agent, or nil.
func (m *Manager) LastForAgent(agentID string) *model.Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.alerts) - 1; i >= 0; i-- {
		if m.alerts[i].AgentID == agentID {
			copied := *m.alerts[i]
			return &copied
		}
	}
	return nil
}
