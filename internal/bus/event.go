package bus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Pratheekshhaa/AgenticAI-mech/internal/model"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/rules"
)

// ParseEvent decodes a bus message into an Event. Decoding is tolerant:
// a message that is not valid JSON, or that lacks fields, still yields an
// event as long as the subject names an agent. Raw traffic with no event
// type is treated as message_sent activity.
func ParseEvent(subject string, data []byte, now time.Time) (*model.Event, error) {
	agentID, err := agentFromSubject(subject)
	if err != nil {
		return nil, err
	}

	ev := &model.Event{
		AgentID:   agentID,
		EventType: rules.EventMessageSent,
		Timestamp: now,
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return ev, nil
	}

	if id, ok := fields["agent_id"].(string); ok && id != "" {
		ev.AgentID = id
	}
	if eventType, ok := fields["event_type"].(string); ok && eventType != "" {
		ev.EventType = eventType
	} else if eventType, ok := fields["type"].(string); ok && eventType != "" {
		ev.EventType = eventType
	}

	if ts, ok := fields["timestamp"].(float64); ok {
		ev.Timestamp = time.UnixMilli(int64(ts))
	} else if ts, ok := fields["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			ev.Timestamp = parsed
		}
	}

	if payload, ok := fields["payload"].(map[string]interface{}); ok {
		ev.Payload = payload
	} else if payload, ok := fields["data"].(map[string]interface{}); ok {
		ev.Payload = payload
	}

	return ev, nil
}

// agentFromSubject extracts the agent ID from an agent.<id> subject.
func agentFromSubject(subject string) (string, error) {
	parts := strings.Split(subject, ".")
	if len(parts) < 2 || parts[0] != "agent" || parts[1] == "" {
		return "", fmt.Errorf("subject %q does not name an agent", subject)
	}
	return parts[1], nil
}
