package store

import (
	"container/ring"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Pratheekshhaa/AgenticAI-mech/internal/model"
)

// FindingLog is a bounded, thread-safe log of findings kept for the status
// surface. It feeds dashboards only; the scoring path sees every finding and
// is never deduplicated. A ring buffer bounds retention and an LRU cache
// suppresses bursts of identical findings from flooding the log.
type FindingLog struct {
	mu          sync.RWMutex
	findings    *ring.Ring
	dedupe      *lru.Cache[string, bool]
	maxFindings int
}

// NewFindingLog creates a finding log holding at most maxFindings entries,
// with a dedupe cache of dedupeCap keys.
func NewFindingLog(maxFindings, dedupeCap int) *FindingLog {
	dedupeCache, _ := lru.New[string, bool](dedupeCap)

	return &FindingLog{
		findings:    ring.New(maxFindings),
		dedupe:      dedupeCache,
		maxFindings: maxFindings,
	}
}

// Add appends a finding to the log. Returns false when an identical finding
// (same agent, type, and minute) was already logged.
func (l *FindingLog) Add(finding model.Finding) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := finding.AgentID + ":" + finding.Type + ":" + finding.Timestamp.Format("200601021504")
	if _, seen := l.dedupe.Get(key); seen {
		return false
	}
	l.dedupe.Add(key, true)

	l.findings.Value = finding
	l.findings = l.findings.Next()
	return true
}

// All returns logged findings, oldest first.
func (l *FindingLog) All() []model.Finding {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var findings []model.Finding
	l.findings.Do(func(value interface{}) {
		if f, ok := value.(model.Finding); ok {
			findings = append(findings, f)
		}
	})
	return findings
}

// ByAgent returns logged findings for one agent, oldest first.
func (l *FindingLog) ByAgent(agentID string) []model.Finding {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var findings []model.Finding
	l.findings.Do(func(value interface{}) {
		if f, ok := value.(model.Finding); ok && f.AgentID == agentID {
			findings = append(findings, f)
		}
	})
	return findings
}

// BySeverity returns logged findings at or above minSeverity, oldest first.
func (l *FindingLog) BySeverity(minSeverity string) []model.Finding {
	l.mu.RLock()
	defer l.mu.RUnlock()

	minRank := model.SeverityRank(minSeverity)

	var findings []model.Finding
	l.findings.Do(func(value interface{}) {
		if f, ok := value.(model.Finding); ok && model.SeverityRank(f.Severity) >= minRank {
			findings = append(findings, f)
		}
	})
	return findings
}
