package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pratheekshhaa/AgenticAI-mech/internal/model"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/policy"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/recorder"
)

// daytime returns a timestamp inside normal hours so the unusual-time rule
// stays quiet unless a test wants it.
func daytime() time.Time {
	return time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)
}

func findingsOfType(findings []model.Finding, findingType string) []model.Finding {
	var out []model.Finding
	for _, f := range findings {
		if f.Type == findingType {
			out = append(out, f)
		}
	}
	return out
}

func TestEngine_APICallFrequency_TriggersOn101st(t *testing.T) {
	engine := NewEngine(policy.Default())
	rec := recorder.New()
	base := daytime()

	// The first 100 calls in the minute stay below the threshold.
	for i := 0; i < 100; i++ {
		ts := base.Add(time.Duration(i) * 100 * time.Millisecond)
		ev := &model.Event{AgentID: "agent-x", EventType: EventAPICall, Timestamp: ts}
		rec.Record(ev.AgentID, ev.EventType, ts)

		findings := engine.Evaluate(ev, rec, ts)
		assert.Empty(t, findingsOfType(findings, TypeAPICallFrequency),
			"call %d must not trigger", i+1)
	}

	// The 101st call is the one that trips the rule.
	ts := base.Add(101 * 100 * time.Millisecond)
	ev := &model.Event{AgentID: "agent-x", EventType: EventAPICall, Timestamp: ts}
	rec.Record(ev.AgentID, ev.EventType, ts)

	findings := findingsOfType(engine.Evaluate(ev, rec, ts), TypeAPICallFrequency)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
	assert.Equal(t, 101, findings[0].ObservedValue)
	assert.Equal(t, "100", findings[0].Threshold)
	assert.Equal(t, "agent-x", findings[0].AgentID)
}

func TestEngine_APICallFrequency_IgnoresCallsOutsideMinute(t *testing.T) {
	engine := NewEngine(policy.Default())
	rec := recorder.New()
	base := daytime()

	// 150 calls spread over five minutes never exceed the per-minute rate.
	for i := 0; i < 150; i++ {
		ts := base.Add(time.Duration(i) * 2 * time.Second)
		ev := &model.Event{AgentID: "agent-x", EventType: EventAPICall, Timestamp: ts}
		rec.Record(ev.AgentID, ev.EventType, ts)

		findings := engine.Evaluate(ev, rec, ts)
		assert.Empty(t, findingsOfType(findings, TypeAPICallFrequency))
	}
}

func TestEngine_MessageFrequency(t *testing.T) {
	engine := NewEngine(policy.Default())
	rec := recorder.New()
	base := daytime()

	var last []model.Finding
	for i := 0; i < 51; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		ev := &model.Event{AgentID: "agent-y", EventType: EventMessageSent, Timestamp: ts}
		rec.Record(ev.AgentID, ev.EventType, ts)
		last = engine.Evaluate(ev, rec, ts)
	}

	findings := findingsOfType(last, TypeMessageFrequency)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SeverityMedium, findings[0].Severity)
	assert.Equal(t, 51, findings[0].ObservedValue)
}

func TestEngine_UnusualTimeAccess(t *testing.T) {
	engine := NewEngine(policy.Default())
	rec := recorder.New()

	night := time.Date(2025, 1, 15, 3, 0, 0, 0, time.Local)
	ev := &model.Event{AgentID: "agent-y", EventType: EventMessageSent, Timestamp: night}
	rec.Record(ev.AgentID, ev.EventType, night)

	findings := findingsOfType(engine.Evaluate(ev, rec, night), TypeUnusualTimeAccess)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SeverityLow, findings[0].Severity)
	assert.Equal(t, 3, findings[0].ObservedValue)
	assert.Equal(t, "06:00-22:00", findings[0].Threshold)

	// Applies to every event type.
	ev = &model.Event{AgentID: "agent-y", EventType: EventAPICall, Timestamp: night}
	rec.Record(ev.AgentID, ev.EventType, night)
	assert.Len(t, findingsOfType(engine.Evaluate(ev, rec, night), TypeUnusualTimeAccess), 1)

	// Quiet during normal hours.
	day := daytime()
	ev = &model.Event{AgentID: "agent-y", EventType: EventMessageSent, Timestamp: day}
	rec.Record(ev.AgentID, ev.EventType, day)
	assert.Empty(t, findingsOfType(engine.Evaluate(ev, rec, day), TypeUnusualTimeAccess))
}

func TestEngine_HighFailureRate(t *testing.T) {
	engine := NewEngine(policy.Default())
	rec := recorder.New()
	base := daytime()

	var last []model.Finding
	for i := 0; i < 11; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		ev := &model.Event{AgentID: "agent-z", EventType: EventRequestFailed, Timestamp: ts}
		rec.Record(ev.AgentID, ev.EventType, ts)
		last = engine.Evaluate(ev, rec, ts)
	}

	findings := findingsOfType(last, TypeHighFailureRate)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
	assert.Equal(t, 11, findings[0].ObservedValue)
	assert.Equal(t, "10", findings[0].Threshold)
}

func TestEngine_SensitiveDataAccess(t *testing.T) {
	engine := NewEngine(policy.Default())
	rec := recorder.New()
	now := daytime()

	ev := &model.Event{
		AgentID:   "agent-x",
		EventType: EventDataAccess,
		Payload: map[string]interface{}{
			"sensitive": true,
			"data_type": "customer_records",
		},
		Timestamp: now,
	}
	rec.Record(ev.AgentID, ev.EventType, now)

	findings := findingsOfType(engine.Evaluate(ev, rec, now), TypeSensitiveDataAccess)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SeverityCritical, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "customer_records")
	assert.Equal(t, ev.Payload, findings[0].Details)
}

func TestEngine_SensitiveDataAccess_MalformedPayload(t *testing.T) {
	engine := NewEngine(policy.Default())
	rec := recorder.New()
	now := daytime()

	// Missing sensitive flag: the rule yields nothing, no error.
	ev := &model.Event{AgentID: "agent-x", EventType: EventDataAccess, Timestamp: now}
	rec.Record(ev.AgentID, ev.EventType, now)
	assert.Empty(t, findingsOfType(engine.Evaluate(ev, rec, now), TypeSensitiveDataAccess))

	// Wrong type for the flag behaves the same.
	ev = &model.Event{
		AgentID:   "agent-x",
		EventType: EventDataAccess,
		Payload:   map[string]interface{}{"sensitive": "yes"},
		Timestamp: now,
	}
	rec.Record(ev.AgentID, ev.EventType, now)
	assert.Empty(t, findingsOfType(engine.Evaluate(ev, rec, now), TypeSensitiveDataAccess))

	// sensitive=false is not an anomaly.
	ev = &model.Event{
		AgentID:   "agent-x",
		EventType: EventDataAccess,
		Payload:   map[string]interface{}{"sensitive": false},
		Timestamp: now,
	}
	rec.Record(ev.AgentID, ev.EventType, now)
	assert.Empty(t, engine.Evaluate(ev, rec, now))
}

func TestEngine_MultipleFindingsFromOneEvent(t *testing.T) {
	engine := NewEngine(policy.Default())
	rec := recorder.New()

	// Sensitive access at 23:00 trips both the sensitive-data rule and the
	// unusual-hour rule; all rules run, no short-circuit.
	night := time.Date(2025, 1, 15, 23, 0, 0, 0, time.Local)
	ev := &model.Event{
		AgentID:   "agent-x",
		EventType: EventDataAccess,
		Payload:   map[string]interface{}{"sensitive": true},
		Timestamp: night,
	}
	rec.Record(ev.AgentID, ev.EventType, night)

	findings := engine.Evaluate(ev, rec, night)
	assert.Len(t, findings, 2)
	assert.Len(t, findingsOfType(findings, TypeSensitiveDataAccess), 1)
	assert.Len(t, findingsOfType(findings, TypeUnusualTimeAccess), 1)
}

func TestEngine_CustomThresholds(t *testing.T) {
	pol := policy.Default()
	pol.AnomalyDetection.APICalls.MaxCallsPerMinute = 3
	engine := NewEngine(pol)
	rec := recorder.New()
	base := daytime()

	var last []model.Finding
	for i := 0; i < 4; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		ev := &model.Event{AgentID: "agent-x", EventType: EventAPICall, Timestamp: ts}
		rec.Record(ev.AgentID, ev.EventType, ts)
		last = engine.Evaluate(ev, rec, ts)
	}

	findings := findingsOfType(last, TypeAPICallFrequency)
	require.Len(t, findings, 1)
	assert.Equal(t, 4, findings[0].ObservedValue)
	assert.Equal(t, "3", findings[0].Threshold)
}
