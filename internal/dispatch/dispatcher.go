package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Pratheekshhaa/AgenticAI-mech/internal/bus"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/metrics"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/model"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/store"
)

// StopWorkflowsSubject carries advisory stop intents. The orchestrator owns
// workflow cancellation; the dispatcher only publishes the intent.
const StopWorkflowsSubject = "ueba.workflows.stop"

// IsolationReason is the reason recorded with automatic isolations.
const IsolationReason = "UEBA security alert"

// Dispatcher converts alert severity into containment actions and publishes
// control commands on the agent's control subject. Commands are best-effort
// and expected to be idempotent from the receiver's perspective; a failed
// publish is retried once and then logged.
type Dispatcher struct {
	publisher  bus.Publisher
	isolations store.IsolationStore
	logger     *slog.Logger
	metrics    *metrics.Metrics

	throttleRate int
	reisolate    bool
}

// NewDispatcher creates a dispatcher. throttleRate is the per-minute limit
// sent with throttle commands. reisolate controls whether isolate commands
// are re-issued for agents that already have an isolation record.
func NewDispatcher(publisher bus.Publisher, isolations store.IsolationStore, throttleRate int, reisolate bool, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		publisher:    publisher,
		isolations:   isolations,
		logger:       logger,
		metrics:      m,
		throttleRate: throttleRate,
		reisolate:    reisolate,
	}
}

// Act fans an alert's severity out into containment actions. It reports
// whether an isolate command was published so the caller can avoid a
// duplicate threshold isolation in the same update cycle.
func (d *Dispatcher) Act(agentID, severity string, alert *model.Alert, score float64, now time.Time) bool {
	switch severity {
	case model.SeverityCritical:
		isolated := d.Isolate(agentID, score, now)
		d.notifySecurityTeam(alert)
		d.stopWorkflows(agentID, now)
		return isolated
	case model.SeverityHigh:
		d.Throttle(agentID, now)
		d.notifyAdmin(alert)
	case model.SeverityMedium:
		d.increaseMonitoring(agentID)
	case model.SeverityLow:
		d.logger.Debug("No automated action for low severity", "agent_id", agentID)
	}
	return false
}

// Isolate publishes an isolate command and records the isolation durably.
// When re-isolation is disabled and a record already exists for the agent,
// nothing is emitted. Returns whether an isolate command was published.
func (d *Dispatcher) Isolate(agentID string, score float64, now time.Time) bool {
	if !d.reisolate {
		existing, err := d.isolations.Get(agentID)
		if err != nil {
			d.logger.Error("Failed to check isolation record", "agent_id", agentID, "error", err)
		} else if existing != nil {
			d.logger.Debug("Agent already isolated, suppressing re-isolation", "agent_id", agentID)
			return false
		}
	}

	d.logger.Warn("Isolating agent", "agent_id", agentID, "score", score)

	cmd := model.ControlCommand{
		Command:   model.CommandIsolate,
		AgentID:   agentID,
		Timestamp: now,
		Reason:    IsolationReason,
	}
	if err := d.publishControl(agentID, cmd); err != nil {
		d.logger.Error("Failed to publish isolate command", "agent_id", agentID, "error", err)
	} else {
		d.metrics.IncIsolations()
	}

	record := model.IsolationRecord{
		AgentID:   agentID,
		Reason:    IsolationReason,
		Score:     score,
		Timestamp: now,
	}
	if err := d.isolations.Put(record); err != nil {
		d.logger.Error("Failed to store isolation record", "agent_id", agentID, "error", err)
	}

	return true
}

// Throttle publishes a throttle command with the configured rate limit.
func (d *Dispatcher) Throttle(agentID string, now time.Time) {
	d.logger.Warn("Throttling agent", "agent_id", agentID, "rate_limit", d.throttleRate)

	cmd := model.ControlCommand{
		Command:   model.CommandThrottle,
		AgentID:   agentID,
		Timestamp: now,
		RateLimit: d.throttleRate,
	}
	if err := d.publishControl(agentID, cmd); err != nil {
		d.logger.Error("Failed to publish throttle command", "agent_id", agentID, "error", err)
	}
}

// publishControl publishes a control command with a single retry. Publishing
// is fire-and-forget; persistent failure is the caller's to log.
func (d *Dispatcher) publishControl(agentID string, cmd model.ControlCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal control command: %w", err)
	}

	subject := bus.ControlSubject(agentID)
	if err := d.publisher.Publish(subject, data); err != nil {
		d.logger.Warn("Control publish failed, retrying once",
			"subject", subject, "command", cmd.Command, "error", err)
		if err := d.publisher.Publish(subject, data); err != nil {
			d.metrics.IncControlPublishErrors()
			return fmt.Errorf("failed to publish %s command: %w", cmd.Command, err)
		}
	}

	d.logger.Info("Published control command",
		"subject", subject, "command", cmd.Command, "agent_id", agentID)
	return nil
}

// stopWorkflows publishes an advisory intent to stop the agent's workflows.
func (d *Dispatcher) stopWorkflows(agentID string, now time.Time) {
	intent := map[string]interface{}{
		"command":   "stop_workflows",
		"agent_id":  agentID,
		"timestamp": now,
	}
	data, err := json.Marshal(intent)
	if err != nil {
		d.logger.Error("Failed to marshal stop intent", "agent_id", agentID, "error", err)
		return
	}
	if err := d.publisher.Publish(StopWorkflowsSubject, data); err != nil {
		d.logger.Error("Failed to publish stop intent", "agent_id", agentID, "error", err)
		return
	}
	d.logger.Info("Published workflow stop intent", "agent_id", agentID)
}

// notifySecurityTeam records the notification. Delivery to an external
// paging system is out of scope; the alert already rides on ueba.alerts.
func (d *Dispatcher) notifySecurityTeam(alert *model.Alert) {
	if alert == nil {
		return
	}
	d.logger.Warn("Notifying security team",
		"alert_id", alert.ID, "agent_id", alert.AgentID, "message", alert.Finding.Message)
}

// notifyAdmin records the admin notification.
func (d *Dispatcher) notifyAdmin(alert *model.Alert) {
	if alert == nil {
		return
	}
	d.logger.Info("Notifying admin",
		"alert_id", alert.ID, "agent_id", alert.AgentID, "message", alert.Finding.Message)
}

// increaseMonitoring is log-only; no external command is emitted.
func (d *Dispatcher) increaseMonitoring(agentID string) {
	d.logger.Info("Increasing monitoring", "agent_id", agentID)
}
