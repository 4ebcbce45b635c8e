package rules

import (
	"fmt"
	"time"

	"github.com/Pratheekshhaa/AgenticAI-mech/internal/model"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/policy"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/recorder"
)

// Finding type identifiers emitted by the engine.
const (
	TypeAPICallFrequency    = "API_CALL_FREQUENCY"
	TypeMessageFrequency    = "MESSAGE_FREQUENCY"
	TypeUnusualTimeAccess   = "UNUSUAL_TIME_ACCESS"
	TypeHighFailureRate     = "HIGH_FAILURE_RATE"
	TypeSensitiveDataAccess = "SENSITIVE_DATA_ACCESS"
)

// Event types the rate rules key on.
const (
	EventAPICall       = "api_call"
	EventMessageSent   = "message_sent"
	EventRequestFailed = "request_failed"
	EventDataAccess    = "data_access"
)

// Engine evaluates the fixed anomaly rule set against incoming events.
// Evaluation is synchronous and bounded: pure arithmetic and recorder
// lookups only. All rules run on every event; a single event may yield
// multiple findings.
type Engine struct {
	policy *policy.Policy
}

// NewEngine creates a rule engine bound to the given policy thresholds.
func NewEngine(p *policy.Policy) *Engine {
	return &Engine{policy: p}
}

// Evaluate runs every rule against the event and the recorder's current
// window state. The event must already have been recorded. Malformed
// payloads never raise; a rule missing its field yields no finding.
func (e *Engine) Evaluate(ev *model.Event, rec *recorder.Recorder, now time.Time) []model.Finding {
	var findings []model.Finding

	if f := e.checkAPICallFrequency(ev, rec, now); f != nil {
		findings = append(findings, *f)
	}
	if f := e.checkMessageFrequency(ev, rec, now); f != nil {
		findings = append(findings, *f)
	}
	if f := e.checkUnusualTimeAccess(ev, now); f != nil {
		findings = append(findings, *f)
	}
	if f := e.checkHighFailureRate(ev, rec, now); f != nil {
		findings = append(findings, *f)
	}
	if f := e.checkSensitiveDataAccess(ev, now); f != nil {
		findings = append(findings, *f)
	}

	return findings
}

// checkAPICallFrequency flags agents exceeding the per-minute API call limit.
func (e *Engine) checkAPICallFrequency(ev *model.Event, rec *recorder.Recorder, now time.Time) *model.Finding {
	if ev.EventType != EventAPICall {
		return nil
	}

	max := e.policy.AnomalyDetection.APICalls.MaxCallsPerMinute
	calls := rec.CountSince(ev.AgentID, EventAPICall, now.Add(-time.Minute))
	if calls <= max {
		return nil
	}

	return &model.Finding{
		Type:          TypeAPICallFrequency,
		Severity:      model.SeverityHigh,
		Message:       fmt.Sprintf("Agent %s made %d API calls in last minute (max: %d)", ev.AgentID, calls, max),
		AgentID:       ev.AgentID,
		ObservedValue: calls,
		Threshold:     fmt.Sprintf("%d", max),
		Timestamp:     now,
	}
}

// checkMessageFrequency flags agents exceeding the per-minute message limit.
func (e *Engine) checkMessageFrequency(ev *model.Event, rec *recorder.Recorder, now time.Time) *model.Finding {
	if ev.EventType != EventMessageSent {
		return nil
	}

	max := e.policy.AnomalyDetection.Agents.MaxMessagesPerMinute
	messages := rec.CountSince(ev.AgentID, EventMessageSent, now.Add(-time.Minute))
	if messages <= max {
		return nil
	}

	return &model.Finding{
		Type:          TypeMessageFrequency,
		Severity:      model.SeverityMedium,
		Message:       fmt.Sprintf("Agent %s sent %d messages in last minute", ev.AgentID, messages),
		AgentID:       ev.AgentID,
		ObservedValue: messages,
		Threshold:     fmt.Sprintf("%d", max),
		Timestamp:     now,
	}
}

// checkUnusualTimeAccess flags activity outside 06:00-22:00 local time.
// Evaluated on every event regardless of type.
func (e *Engine) checkUnusualTimeAccess(ev *model.Event, now time.Time) *model.Finding {
	hour := ev.Timestamp.Local().Hour()
	if hour >= 6 && hour <= 22 {
		return nil
	}

	return &model.Finding{
		Type:          TypeUnusualTimeAccess,
		Severity:      model.SeverityLow,
		Message:       fmt.Sprintf("Agent %s active during unusual hours (%02d:00)", ev.AgentID, hour),
		AgentID:       ev.AgentID,
		ObservedValue: hour,
		Threshold:     "06:00-22:00",
		Timestamp:     now,
	}
}

// checkHighFailureRate flags agents exceeding the per-hour failed request limit.
func (e *Engine) checkHighFailureRate(ev *model.Event, rec *recorder.Recorder, now time.Time) *model.Finding {
	if ev.EventType != EventRequestFailed {
		return nil
	}

	max := e.policy.AnomalyDetection.Agents.MaxFailedRequestsPerHour
	failures := rec.CountSince(ev.AgentID, EventRequestFailed, now.Add(-time.Hour))
	if failures <= max {
		return nil
	}

	return &model.Finding{
		Type:          TypeHighFailureRate,
		Severity:      model.SeverityHigh,
		Message:       fmt.Sprintf("Agent %s has %d failed requests in last hour", ev.AgentID, failures),
		AgentID:       ev.AgentID,
		ObservedValue: failures,
		Threshold:     fmt.Sprintf("%d", max),
		Timestamp:     now,
	}
}

// checkSensitiveDataAccess flags data_access events whose payload marks the
// data sensitive. No rate threshold; the full payload rides in the finding.
// A payload missing the sensitive field yields no finding.
func (e *Engine) checkSensitiveDataAccess(ev *model.Event, now time.Time) *model.Finding {
	if ev.EventType != EventDataAccess {
		return nil
	}

	sensitive, ok := ev.Payload["sensitive"].(bool)
	if !ok || !sensitive {
		return nil
	}

	dataType, _ := ev.Payload["data_type"].(string)

	return &model.Finding{
		Type:      TypeSensitiveDataAccess,
		Severity:  model.SeverityCritical,
		Message:   fmt.Sprintf("Agent %s accessed sensitive data: %s", ev.AgentID, dataType),
		AgentID:   ev.AgentID,
		Details:   ev.Payload,
		Timestamp: now,
	}
}
