package monitor

import (
	"log/slog"

	"github.com/Pratheekshhaa/AgenticAI-mech/internal/alerts"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/dispatch"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/metrics"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/model"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/recorder"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/rules"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/score"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/store"
)

// Monitor runs the per-event pipeline: record behavior, evaluate rules,
// update the score, raise alerts, and dispatch containment. All components
// are injected by the composition root; there is no ambient global instance.
type Monitor struct {
	recorder   *recorder.Recorder
	engine     *rules.Engine
	scores     *score.Aggregator
	alerts     *alerts.Manager
	dispatcher *dispatch.Dispatcher
	findingLog *store.FindingLog
	metrics    *metrics.Metrics
	logger     *slog.Logger

	isolationThreshold float64
}

// New creates a monitor over the given components.
func New(
	rec *recorder.Recorder,
	engine *rules.Engine,
	scores *score.Aggregator,
	alertMgr *alerts.Manager,
	dispatcher *dispatch.Dispatcher,
	findingLog *store.FindingLog,
	isolationThreshold float64,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		recorder:           rec,
		engine:             engine,
		scores:             scores,
		alerts:             alertMgr,
		dispatcher:         dispatcher,
		findingLog:         findingLog,
		metrics:            m,
		logger:             logger,
		isolationThreshold: isolationThreshold,
	}
}

// ProcessEvent runs one event through the full pipeline. Processing is
// driven by event time: windows, decay, and thresholds all key off the
// event's timestamp, which the bus adapter sets to delivery time when the
// payload carries none.
func (m *Monitor) ProcessEvent(ev *model.Event) {
	now := ev.Timestamp

	m.recorder.Record(ev.AgentID, ev.EventType, now)

	findings := m.engine.Evaluate(ev, m.recorder, now)

	// A score entry is created on the first finding for an agent, not on
	// the first event; finding-free events only read the decayed score.
	var currentScore float64
	if len(findings) > 0 {
		currentScore = m.scores.Update(ev.AgentID, findings, now)
	} else {
		currentScore = m.scores.Score(ev.AgentID, now)
	}

	isolatedThisCycle := false
	for i := range findings {
		finding := findings[i]
		m.metrics.IncFindings(finding.Severity)
		m.findingLog.Add(finding)

		m.logger.Info("Anomaly detected",
			"agent_id", ev.AgentID,
			"type", finding.Type,
			"severity", finding.Severity,
			"score", currentScore)

		if model.SeverityRank(finding.Severity) >= model.SeverityRank(model.SeverityHigh) {
			alert := m.alerts.Raise(finding, now)
			m.metrics.IncAlerts()
			if m.dispatcher.Act(ev.AgentID, finding.Severity, alert, currentScore, now) {
				isolatedThisCycle = true
			}
		} else {
			m.dispatcher.Act(ev.AgentID, finding.Severity, nil, currentScore, now)
		}
	}

	// Threshold isolation runs regardless of individual finding severity,
	// but at most one isolate command is emitted per update cycle.
	if currentScore > m.isolationThreshold && !isolatedThisCycle {
		m.dispatcher.Isolate(ev.AgentID, currentScore, now)
	}
}
