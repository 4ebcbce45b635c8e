package policy

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefault(t *testing.T) {
	p := Default()

	assert.Equal(t, 100, p.AnomalyDetection.APICalls.MaxCallsPerMinute)
	assert.Equal(t, 50, p.AnomalyDetection.Agents.MaxMessagesPerMinute)
	assert.Equal(t, 10, p.AnomalyDetection.Agents.MaxFailedRequestsPerHour)
	assert.Equal(t, 7, p.BaselineLearning.LearningPeriodDays)
	assert.Equal(t, 0.8, p.Scoring.IsolationThreshold)
	assert.Equal(t, 0.9, p.Scoring.DecayPerHour)
	assert.False(t, p.Scoring.DisableDecay)
	assert.True(t, p.Response.Reisolate)
	assert.Contains(t, p.AlertSeverityLevels["critical"].Actions, "isolate_agent")
}

func TestLoad_MissingFileFallsBack(t *testing.T) {
	p, err := Load("does/not/exist.yaml", testLogger())

	// Load failure is reported but never fatal; defaults keep the monitor
	// operating.
	assert.Error(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 100, p.AnomalyDetection.APICalls.MaxCallsPerMinute)
}

func TestLoad_MalformedFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("anomaly_detection: [not, a, mapping"), 0o644))

	p, err := Load(path, testLogger())
	assert.Error(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 50, p.AnomalyDetection.Agents.MaxMessagesPerMinute)
}

func TestLoad_OverridesAndDefaults(t *testing.T) {
	content := `
anomaly_detection:
  api_calls:
    max_calls_per_minute: 20
scoring:
  disable_decay: true
response:
  reisolate: false
`
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := Load(path, testLogger())
	require.NoError(t, err)

	// Explicit values win.
	assert.Equal(t, 20, p.AnomalyDetection.APICalls.MaxCallsPerMinute)
	assert.True(t, p.Scoring.DisableDecay)
	assert.False(t, p.Response.Reisolate)

	// Everything the file omits keeps its default.
	assert.Equal(t, 50, p.AnomalyDetection.Agents.MaxMessagesPerMinute)
	assert.Equal(t, 0.8, p.Scoring.IsolationThreshold)
	assert.Equal(t, 10, p.Response.ThrottleRateLimit)
}

func TestLoad_InvalidThresholdNormalized(t *testing.T) {
	content := `
scoring:
  isolation_threshold: 3.5
`
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := Load(path, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 0.8, p.Scoring.IsolationThreshold)
}
