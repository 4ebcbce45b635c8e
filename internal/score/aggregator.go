package score

import (
	"math"
	"sync"
	"time"

	"github.com/Pratheekshhaa/AgenticAI-mech/internal/model"
)

// Aggregator maintains one decaying anomaly score per agent in [0,1].
// Decay is applied lazily whenever a score is read or updated; no background
// timer is required. Scores are never deleted, only decayed toward zero.
type Aggregator struct {
	mu           sync.RWMutex
	scores       map[string]*model.AgentScore
	decayPerHour float64
	disableDecay bool
}

// NewAggregator creates an aggregator. decayPerHour is the multiplicative
// factor applied per elapsed hour (0.9 means a score loses 10% per idle
// hour). disableDecay preserves the legacy behavior where elapsed time is
// ignored and scores only ever grow.
func NewAggregator(decayPerHour float64, disableDecay bool) *Aggregator {
	return &Aggregator{
		scores:       make(map[string]*model.AgentScore),
		decayPerHour: decayPerHour,
		disableDecay: disableDecay,
	}
}

// Update applies decay for the time elapsed since the last update, adds the
// severity-weighted increment of each finding, clamps to [0,1], and returns
// the resulting score.
func (a *Aggregator) Update(agentID string, findings []model.Finding, now time.Time) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.scores[agentID]
	if !ok {
		entry = &model.AgentScore{AgentID: agentID, LastUpdate: now}
		a.scores[agentID] = entry
	}

	current := a.decayed(entry, now)
	for _, f := range findings {
		current += model.SeverityWeight(f.Severity)
	}

	entry.Score = clamp(current)
	entry.LastUpdate = now
	return entry.Score
}

// Score returns the agent's current score with decay applied as of now.
// Unknown agents score 0. The stored entry is not mutated; decay is
// recomputed from last_update on each read.
func (a *Aggregator) Score(agentID string, now time.Time) float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entry, ok := a.scores[agentID]
	if !ok {
		return 0
	}
	return clamp(a.decayed(entry, now))
}

// Snapshot returns the decayed score of every tracked agent as of now.
func (a *Aggregator) Snapshot(now time.Time) map[string]float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	snapshot := make(map[string]float64, len(a.scores))
	for agentID, entry := range a.scores {
		snapshot[agentID] = clamp(a.decayed(entry, now))
	}
	return snapshot
}

// AgentCount returns the number of agents with a tracked score.
func (a *Aggregator) AgentCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.scores)
}

// decayed computes the entry's score with decay for elapsed time. Caller
// holds at least the read lock.
func (a *Aggregator) decayed(entry *model.AgentScore, now time.Time) float64 {
	if a.disableDecay {
		return entry.Score
	}

	elapsed := now.Sub(entry.LastUpdate)
	if elapsed <= 0 {
		return entry.Score
	}

	hours := elapsed.Hours()
	return entry.Score * math.Pow(a.decayPerHour, hours)
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(1, score))
}
