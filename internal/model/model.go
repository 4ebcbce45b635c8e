package model

import (
	"time"
)

// Severity levels for findings and alerts, ordered from least to most severe.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// severityRank maps severities to a comparable level. Unknown severities rank 0.
var severityRank = map[string]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// SeverityRank returns the numeric rank of a severity (0 for unknown).
func SeverityRank(severity string) int {
	return severityRank[severity]
}

// SeverityWeight returns the score increment contributed by a finding
// of the given severity.
func SeverityWeight(severity string) float64 {
	switch severity {
	case SeverityCritical:
		return 0.30
	case SeverityHigh:
		return 0.20
	case SeverityMedium:
		return 0.10
	case SeverityLow:
		return 0.05
	default:
		return 0
	}
}

// Event represents a single piece of agent activity delivered over the bus.
// Events are immutable once constructed and are consumed synchronously.
type Event struct {
	AgentID   string                 `json:"agent_id"`
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Finding is one rule's output describing a single detected deviation.
// ObservedValue and Threshold are set for rate-based findings only.
type Finding struct {
	Type          string                 `json:"type"`
	Severity      string                 `json:"severity"`
	Message       string                 `json:"message"`
	AgentID       string                 `json:"agent_id"`
	ObservedValue int                    `json:"observed_value,omitempty"`
	Threshold     string                 `json:"threshold,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
	Timestamp     time.Time              `json:"timestamp"`
}

// Alert lifecycle states.
const (
	AlertStatusNew          = "new"
	AlertStatusAcknowledged = "acknowledged"
	AlertStatusResolved     = "resolved"
)

// Alert is a persisted, status-tracked promotion of a high/critical finding.
// The embedded finding and timestamp never mutate after creation; only the
// status field transitions (new -> acknowledged -> resolved).
type Alert struct {
	ID        string    `json:"alert_id"`
	Timestamp time.Time `json:"timestamp"`
	AgentID   string    `json:"agent_id"`
	Finding   Finding   `json:"finding"`
	Status    string    `json:"status"`
}

// AgentScore tracks the decaying anomaly score for a single agent.
// Score is always clamped to [0,1].
type AgentScore struct {
	AgentID    string    `json:"agent_id"`
	Score      float64   `json:"score"`
	LastUpdate time.Time `json:"last_update"`
}

// IsolationRecord captures one isolation decision for an agent. The durable
// store keeps the latest record per agent (overwritten, not appended).
type IsolationRecord struct {
	AgentID   string    `json:"agent_id"`
	Reason    string    `json:"reason"`
	Score     float64   `json:"ueba_score"`
	Timestamp time.Time `json:"timestamp"`
}

// Control command names published on an agent's control subject.
const (
	CommandIsolate  = "isolate"
	CommandThrottle = "throttle"
)

// ControlCommand is the payload published on agent.<id>.control. Reason is
// set for isolate commands, RateLimit for throttle commands.
type ControlCommand struct {
	Command   string    `json:"command"`
	AgentID   string    `json:"agent_id"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
	RateLimit int       `json:"rate_limit,omitempty"`
}
