package status

import (
	"time"

	"github.com/Pratheekshhaa/AgenticAI-mech/internal/alerts"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/model"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/recorder"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/score"
)

// AgentStatus is the per-agent view served to dashboards.
type AgentStatus struct {
	AgentID         string                          `json:"agent_id"`
	AnomalyScore    float64                         `json:"anomaly_score"`
	Status          string                          `json:"status"`
	LastAlert       *model.Alert                    `json:"last_alert,omitempty"`
	BehaviorSummary map[string]recorder.TypeSummary `json:"behavior_summary"`
}

// DashboardData is the fleet-wide view served to dashboards.
type DashboardData struct {
	TotalAgentsMonitored int            `json:"total_agents_monitored"`
	ActiveAlerts         int            `json:"active_alerts"`
	AnomalyDistribution  map[string]int `json:"anomaly_distribution"`
	RecentAlerts         []model.Alert  `json:"recent_alerts"`
	LearningMode         bool           `json:"learning_mode"`
	LearningProgress     float64        `json:"learning_progress"`
}

// Reporter is the read-only aggregation over the monitor's state. It owns
// no state of its own beyond the baseline-learning start time.
type Reporter struct {
	recorder *recorder.Recorder
	scores   *score.Aggregator
	alerts   *alerts.Manager

	isolationThreshold float64
	learningPeriodDays int
	learningStart      time.Time
}

// NewReporter creates a reporter. learningStart anchors the baseline
// learning progress percentage.
func NewReporter(rec *recorder.Recorder, scores *score.Aggregator, alertMgr *alerts.Manager, isolationThreshold float64, learningPeriodDays int, learningStart time.Time) *Reporter {
	return &Reporter{
		recorder:           rec,
		scores:             scores,
		alerts:             alertMgr,
		isolationThreshold: isolationThreshold,
		learningPeriodDays: learningPeriodDays,
		learningStart:      learningStart,
	}
}

// AgentStatus returns the current view of one agent as of now.
func (r *Reporter) AgentStatus(agentID string, now time.Time) AgentStatus {
	currentScore := r.scores.Score(agentID, now)

	state := "monitored"
	if currentScore > r.isolationThreshold {
		state = "isolated"
	}

	return AgentStatus{
		AgentID:         agentID,
		AnomalyScore:    currentScore,
		Status:          state,
		LastAlert:       r.alerts.LastForAgent(agentID),
		BehaviorSummary: r.recorder.Summary(agentID, now),
	}
}

// Dashboard returns the fleet-wide view as of now. Score buckets follow the
// dashboard's fixed ranges: critical above the isolation threshold region,
// down to normal at 0.2 and below.
func (r *Reporter) Dashboard(now time.Time) DashboardData {
	distribution := map[string]int{
		"critical": 0,
		"high":     0,
		"medium":   0,
		"low":      0,
		"normal":   0,
	}

	for _, s := range r.scores.Snapshot(now) {
		switch {
		case s > 0.8:
			distribution["critical"]++
		case s > 0.6:
			distribution["high"]++
		case s > 0.4:
			distribution["medium"]++
		case s > 0.2:
			distribution["low"]++
		default:
			distribution["normal"]++
		}
	}

	return DashboardData{
		TotalAgentsMonitored: r.scores.AgentCount(),
		ActiveAlerts:         r.alerts.ActiveCount(),
		AnomalyDistribution:  distribution,
		RecentAlerts:         r.alerts.Recent(10),
		LearningMode:         r.LearningProgress(now) < 100,
		LearningProgress:     r.LearningProgress(now),
	}
}

// LearningProgress returns the baseline learning progress percentage.
func (r *Reporter) LearningProgress(now time.Time) float64 {
	if r.learningPeriodDays <= 0 {
		return 100
	}

	elapsedDays := now.Sub(r.learningStart).Hours() / 24
	progress := (elapsedDays / float64(r.learningPeriodDays)) * 100
	if progress > 100 {
		return 100
	}
	if progress < 0 {
		return 0
	}
	return progress
}
