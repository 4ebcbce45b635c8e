package recorder

import (
	"sync"
	"time"
)

// Retention is how long recorded behavior survives. Entries older than
// Retention relative to the most recent record are trimmed on every access.
const Retention = time.Hour

// Recorder maintains per-(agent, event type) windows of event timestamps.
// Windows are an explicit two-level map; read-only queries never create
// entries for unknown keys.
type Recorder struct {
	mu     sync.RWMutex
	agents map[string]map[string][]time.Time
}

// TypeSummary describes recent activity for one event type of one agent.
type TypeSummary struct {
	CountLastHour int        `json:"count_last_hour"`
	LastActivity  *time.Time `json:"last_activity,omitempty"`
}

// New creates an empty recorder.
func New() *Recorder {
	return &Recorder{
		agents: make(map[string]map[string][]time.Time),
	}
}

// Record appends ts to the window for (agentID, eventType) and evicts all
// entries older than ts minus the retention. Windows are time-ordered, so
// eviction is a prefix trim. Record never fails.
func (r *Recorder) Record(agentID, eventType string, ts time.Time) {
	if agentID == "" || eventType == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	types, ok := r.agents[agentID]
	if !ok {
		types = make(map[string][]time.Time)
		r.agents[agentID] = types
	}

	window := append(types[eventType], ts)
	types[eventType] = trim(window, ts.Add(-Retention))
}

// CountSince returns the number of retained timestamps at or after since for
// (agentID, eventType). Unknown keys return 0 without creating entries.
func (r *Recorder) CountSince(agentID, eventType string, since time.Time) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types, ok := r.agents[agentID]
	if !ok {
		return 0
	}

	count := 0
	for _, ts := range types[eventType] {
		if !ts.Before(since) {
			count++
		}
	}
	return count
}

// Summary returns per-event-type activity for an agent as of now. Windows
// are not mutated; counts respect the retention cutoff.
func (r *Recorder) Summary(agentID string, now time.Time) map[string]TypeSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := make(map[string]TypeSummary)

	types, ok := r.agents[agentID]
	if !ok {
		return summary
	}

	cutoff := now.Add(-Retention)
	for eventType, window := range types {
		count := 0
		var last time.Time
		for _, ts := range window {
			if ts.Before(cutoff) {
				continue
			}
			count++
			if ts.After(last) {
				last = ts
			}
		}
		if count == 0 {
			continue
		}
		lastCopy := last
		summary[eventType] = TypeSummary{
			CountLastHour: count,
			LastActivity:  &lastCopy,
		}
	}

	return summary
}

// AgentCount returns the number of agents with retained behavior.
func (r *Recorder) AgentCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Sweep trims every window against now and drops empty entries. Record
// already trims on write, so this only matters for dashboard freshness on
// agents that went quiet; observable query semantics are unchanged.
func (r *Recorder) Sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-Retention)
	for agentID, types := range r.agents {
		for eventType, window := range types {
			kept := trim(window, cutoff)
			if len(kept) == 0 {
				delete(types, eventType)
				continue
			}
			types[eventType] = kept
		}
		if len(types) == 0 {
			delete(r.agents, agentID)
		}
	}
}

// trim drops the prefix of window strictly older than cutoff.
func trim(window []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(window) && window[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return window
	}
	return append([]time.Time(nil), window[i:]...)
}
