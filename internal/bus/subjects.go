package bus

import "fmt"

// Subjects used by the monitor. Agent activity arrives on agent.<id>;
// control commands go out on agent.<id>.control, which sits outside the
// two-token agent.* wildcard so the monitor never consumes its own commands.
const (
	AgentEventsWildcard = "agent.*"
	AlertsSubject       = "ueba.alerts"
)

// ControlSubject returns the control subject for an agent.
func ControlSubject(agentID string) string {
	return fmt.Sprintf("agent.%s.control", agentID)
}

// Publisher is the outbound half of the bus. *nats.Conn satisfies it;
// tests substitute fakes. Publishing is fire-and-forget: the bus gives no
// delivery confirmation.
type Publisher interface {
	Publish(subject string, data []byte) error
}
