package policy

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy is the UEBA rules/policy document loaded at startup. Missing or
// malformed files fall back to built-in defaults; load failure is never fatal.
type Policy struct {
	AnomalyDetection    AnomalyDetection         `yaml:"anomaly_detection"`
	AlertSeverityLevels map[string]SeverityLevel `yaml:"alert_severity_levels"`
	BaselineLearning    BaselineLearning         `yaml:"baseline_learning"`
	Scoring             Scoring                  `yaml:"scoring"`
	Response            Response                 `yaml:"response"`
}

// AnomalyDetection holds the rate thresholds consumed by the rule engine.
type AnomalyDetection struct {
	APICalls APICallLimits `yaml:"api_calls"`
	Agents   AgentLimits   `yaml:"agents"`
}

// APICallLimits bounds per-agent API call rates.
type APICallLimits struct {
	MaxCallsPerMinute int  `yaml:"max_calls_per_minute"`
	MaxCallsPerHour   int  `yaml:"max_calls_per_hour"`
	AlertOnBurst      bool `yaml:"alert_on_burst"`
}

// AgentLimits bounds per-agent messaging and failure rates.
type AgentLimits struct {
	MaxMessagesPerMinute     int `yaml:"max_messages_per_minute"`
	MaxFailedRequestsPerHour int `yaml:"max_failed_requests_per_hour"`
}

// SeverityLevel describes the triggers and actions configured for one
// alert severity.
type SeverityLevel struct {
	Triggers []string `yaml:"triggers"`
	Actions  []string `yaml:"actions"`
}

// BaselineLearning configures the learning-progress reporting window.
type BaselineLearning struct {
	LearningPeriodDays int `yaml:"learning_period_days"`
}

// Scoring configures the score aggregator. DisableDecay preserves the
// legacy behavior where elapsed time is ignored and scores never decay.
type Scoring struct {
	IsolationThreshold float64 `yaml:"isolation_threshold"`
	DecayPerHour       float64 `yaml:"decay_per_hour"`
	DisableDecay       bool    `yaml:"disable_decay"`
}

// Response configures the dispatcher. Reisolate controls whether an agent
// that already has an isolation record is re-issued isolate commands on
// subsequent above-threshold score updates.
type Response struct {
	ThrottleRateLimit int  `yaml:"throttle_rate_limit"`
	Reisolate         bool `yaml:"reisolate"`
}

// Default returns the built-in policy used when no file is available.
func Default() *Policy {
	return &Policy{
		AnomalyDetection: AnomalyDetection{
			APICalls: APICallLimits{
				MaxCallsPerMinute: 100,
				MaxCallsPerHour:   1000,
				AlertOnBurst:      true,
			},
			Agents: AgentLimits{
				MaxMessagesPerMinute:     50,
				MaxFailedRequestsPerHour: 10,
			},
		},
		AlertSeverityLevels: map[string]SeverityLevel{
			"critical": {
				Triggers: []string{"unauthorized_access", "data_tampering"},
				Actions:  []string{"isolate_agent", "alert_security"},
			},
			"high": {
				Triggers: []string{"api_rate_exceeded", "unusual_pattern"},
				Actions:  []string{"throttle_agent", "notify_admin"},
			},
		},
		BaselineLearning: BaselineLearning{
			LearningPeriodDays: 7,
		},
		Scoring: Scoring{
			IsolationThreshold: 0.8,
			DecayPerHour:       0.9,
			DisableDecay:       false,
		},
		Response: Response{
			ThrottleRateLimit: 10,
			Reisolate:         true,
		},
	}
}

// Load reads the policy file at path. On any error the built-in defaults
// are returned alongside the error so the caller can log and continue.
func Load(path string, logger *slog.Logger) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Default(), fmt.Errorf("failed to read policy file: %w", err)
	}

	p := Default()
	if err := yaml.Unmarshal(data, p); err != nil {
		return Default(), fmt.Errorf("failed to parse policy file: %w", err)
	}

	p.normalize(logger)

	logger.Info("Policy loaded",
		"path", path,
		"max_calls_per_minute", p.AnomalyDetection.APICalls.MaxCallsPerMinute,
		"max_messages_per_minute", p.AnomalyDetection.Agents.MaxMessagesPerMinute,
		"max_failed_requests_per_hour", p.AnomalyDetection.Agents.MaxFailedRequestsPerHour,
		"isolation_threshold", p.Scoring.IsolationThreshold,
		"disable_decay", p.Scoring.DisableDecay,
		"reisolate", p.Response.Reisolate)

	return p, nil
}

// normalize replaces zero or out-of-range values from a partial policy file
// with their defaults so a sparse file cannot disable thresholds entirely.
func (p *Policy) normalize(logger *slog.Logger) {
	def := Default()

	if p.AnomalyDetection.APICalls.MaxCallsPerMinute <= 0 {
		p.AnomalyDetection.APICalls.MaxCallsPerMinute = def.AnomalyDetection.APICalls.MaxCallsPerMinute
	}
	if p.AnomalyDetection.APICalls.MaxCallsPerHour <= 0 {
		p.AnomalyDetection.APICalls.MaxCallsPerHour = def.AnomalyDetection.APICalls.MaxCallsPerHour
	}
	if p.AnomalyDetection.Agents.MaxMessagesPerMinute <= 0 {
		p.AnomalyDetection.Agents.MaxMessagesPerMinute = def.AnomalyDetection.Agents.MaxMessagesPerMinute
	}
	if p.AnomalyDetection.Agents.MaxFailedRequestsPerHour <= 0 {
		p.AnomalyDetection.Agents.MaxFailedRequestsPerHour = def.AnomalyDetection.Agents.MaxFailedRequestsPerHour
	}
	if p.BaselineLearning.LearningPeriodDays <= 0 {
		p.BaselineLearning.LearningPeriodDays = def.BaselineLearning.LearningPeriodDays
	}
	if p.Scoring.IsolationThreshold <= 0 || p.Scoring.IsolationThreshold > 1 {
		logger.Warn("Invalid isolation threshold in policy file, using default",
			"value", p.Scoring.IsolationThreshold,
			"default", def.Scoring.IsolationThreshold)
		p.Scoring.IsolationThreshold = def.Scoring.IsolationThreshold
	}
	if p.Scoring.DecayPerHour <= 0 || p.Scoring.DecayPerHour >= 1 {
		p.Scoring.DecayPerHour = def.Scoring.DecayPerHour
	}
	if p.Response.ThrottleRateLimit <= 0 {
		p.Response.ThrottleRateLimit = def.Response.ThrottleRateLimit
	}
	if p.AlertSeverityLevels == nil {
		p.AlertSeverityLevels = def.AlertSeverityLevels
	}
}
