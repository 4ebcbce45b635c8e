package recorder

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecorder_CountSince(t *testing.T) {
	rec := New()
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	rec.Record("agent-001", "api_call", base)
	rec.Record("agent-001", "api_call", base.Add(30*time.Second))
	rec.Record("agent-001", "api_call", base.Add(90*time.Second))
	rec.Record("agent-001", "message_sent", base.Add(10*time.Second))

	// Last minute relative to the newest event.
	now := base.Add(90 * time.Second)
	assert.Equal(t, 2, rec.CountSince("agent-001", "api_call", now.Add(-time.Minute)))

	// Full window.
	assert.Equal(t, 3, rec.CountSince("agent-001", "api_call", now.Add(-time.Hour)))

	// Other event types are counted independently.
	assert.Equal(t, 1, rec.CountSince("agent-001", "message_sent", now.Add(-time.Hour)))
}

func TestRecorder_UnknownKeyReturnsZero(t *testing.T) {
	rec := New()

	assert.Equal(t, 0, rec.CountSince("agent-999", "api_call", time.Now().Add(-time.Hour)))

	// Read-only queries must not create entries.
	assert.Equal(t, 0, rec.AgentCount())
}

func TestRecorder_RetentionTrim(t *testing.T) {
	rec := New()
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	rec.Record("agent-001", "request_failed", base)
	rec.Record("agent-001", "request_failed", base.Add(30*time.Minute))

	// Recording past the retention horizon evicts the first entry.
	now := base.Add(61 * time.Minute)
	rec.Record("agent-001", "request_failed", now)

	assert.Equal(t, 2, rec.CountSince("agent-001", "request_failed", base.Add(-time.Hour)))
}

func TestRecorder_CountSinceNeverReturnsExpired(t *testing.T) {
	rec := New()
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		rec.Record("agent-001", "api_call", base.Add(time.Duration(i)*time.Minute))
	}
	// Two hours later: everything above is outside retention.
	now := base.Add(2 * time.Hour)
	rec.Record("agent-001", "api_call", now)

	assert.Equal(t, 1, rec.CountSince("agent-001", "api_call", now.Add(-time.Hour)))
	assert.Equal(t, 1, rec.CountSince("agent-001", "api_call", time.Time{}))
}

func TestRecorder_Summary(t *testing.T) {
	rec := New()
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	rec.Record("agent-001", "api_call", base)
	rec.Record("agent-001", "api_call", base.Add(5*time.Minute))
	rec.Record("agent-001", "message_sent", base.Add(time.Minute))

	summary := rec.Summary("agent-001", base.Add(10*time.Minute))
	assert.Len(t, summary, 2)
	assert.Equal(t, 2, summary["api_call"].CountLastHour)
	assert.Equal(t, base.Add(5*time.Minute), *summary["api_call"].LastActivity)
	assert.Equal(t, 1, summary["message_sent"].CountLastHour)

	// An unknown agent gets an empty summary.
	assert.Empty(t, rec.Summary("agent-999", base))
}

func TestRecorder_Sweep(t *testing.T) {
	rec := New()
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	rec.Record("agent-001", "api_call", base)
	rec.Record("agent-002", "api_call", base.Add(30*time.Minute))
	assert.Equal(t, 2, rec.AgentCount())

	rec.Sweep(base.Add(90 * time.Minute))

	// agent-001's only entry expired; agent-002's survives.
	assert.Equal(t, 1, rec.AgentCount())
	assert.Equal(t, 1, rec.CountSince("agent-002", "api_call", time.Time{}))
}

func TestRecorder_ConcurrentAccess(t *testing.T) {
	rec := New()
	base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

	done := make(chan bool, 5)
	for i := 0; i < 5; i++ {
		go func(agentID string) {
			for j := 0; j < 100; j++ {
				rec.Record(agentID, "api_call", base.Add(time.Duration(j)*time.Second))
				rec.CountSince(agentID, "api_call", base)
			}
			done <- true
		}(fmt.Sprintf("agent-%03d", i))
	}

	for i := 0; i < 5; i++ {
		<-done
	}

	assert.Equal(t, 5, rec.AgentCount())
	for i := 0; i < 5; i++ {
		agentID := fmt.Sprintf("agent-%03d", i)
		assert.Equal(t, 100, rec.CountSince(agentID, "api_call", time.Time{}))
	}
}
