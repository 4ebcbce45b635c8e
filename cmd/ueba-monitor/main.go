package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pratheekshhaa/AgenticAI-mech/internal/alerts"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/api"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/bus"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/dispatch"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/metrics"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/monitor"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/policy"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/recorder"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/rules"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/score"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/status"
	"github.com/Pratheekshhaa/AgenticAI-mech/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting UEBA Monitor")

	httpAddr := getEnv("UEBA_HTTP_ADDR", ":8086")
	natsURL := getEnv("UEBA_NATS_URL", "nats://localhost:4222")
	policyPath := getEnv("UEBA_POLICY_PATH", "config/ueba_rules.yaml")
	queueSize := getEnvInt("UEBA_EVENT_QUEUE_SIZE", 1024)
	maxFindings := getEnvInt("UEBA_MAX_FINDINGS", 10000)
	dedupeCap := getEnvInt("UEBA_DEDUPE_CAP", 100000)
	sweepInterval := getEnvInt("UEBA_SWEEP_INTERVAL_SEC", 60)

	logger.Info("Configuration loaded",
		"http_addr", httpAddr,
		"nats_url", natsURL,
		"policy_path", policyPath,
		"event_queue_size", queueSize,
		"max_findings", maxFindings,
		"dedupe_cap", dedupeCap)

	// Policy load failure falls back to built-in defaults and keeps going.
	pol, err := policy.Load(policyPath, logger)
	if err != nil {
		logger.Warn("Failed to load policy, using defaults", "path", policyPath, "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nc, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	logger.Info("Connected to NATS", "url", natsURL)

	js, err := nc.JetStream()
	if err != nil {
		logger.Error("Failed to create JetStream context", "error", err)
		os.Exit(1)
	}

	// A corrupted isolation store aborts startup rather than run degraded.
	isolations, err := store.NewKVIsolationStore(js)
	if err != nil {
		logger.Error("Failed to open isolation store", "error", err)
		os.Exit(1)
	}
	logger.Info("Isolation store ready", "bucket", store.IsolationBucket)

	prometheusMetrics := metrics.New()

	rec := recorder.New()
	engine := rules.NewEngine(pol)
	scores := score.NewAggregator(pol.Scoring.DecayPerHour, pol.Scoring.DisableDecay)
	alertMgr := alerts.NewManager(nc, logger)
	dispatcher := dispatch.NewDispatcher(nc, isolations, pol.Response.ThrottleRateLimit, pol.Response.Reisolate, prometheusMetrics, logger)
	findingLog := store.NewFindingLog(maxFindings, dedupeCap)

	mon := monitor.New(rec, engine, scores, alertMgr, dispatcher, findingLog,
		pol.Scoring.IsolationThreshold, prometheusMetrics, logger)

	reporter := status.NewReporter(rec, scores, alertMgr,
		pol.Scoring.IsolationThreshold, pol.BaselineLearning.LearningPeriodDays, time.Now())

	subscriber := bus.NewSubscriber(nc, mon.ProcessEvent, queueSize, prometheusMetrics, logger)

	subscriberDone := make(chan error, 1)
	go func() {
		subscriberDone <- subscriber.Run(ctx)
	}()

	// Periodic window sweep keeps dashboard summaries fresh for agents that
	// went quiet; query semantics do not depend on it.
	go func() {
		ticker := time.NewTicker(time.Duration(sweepInterval) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rec.Sweep(now)
			}
		}
	}()

	httpAPI := api.NewHTTPAPI(reporter, alertMgr, findingLog, isolations, nc)
	mux := http.NewServeMux()
	httpAPI.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		logger.Info("Starting HTTP server", "addr", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("UEBA Monitor started")

	subscriberExited := false
	select {
	case <-sigChan:
		logger.Info("Shutdown signal received")
	case err := <-subscriberDone:
		// The subscriber only returns early when it never got started.
		subscriberExited = true
		logger.Error("Subscriber terminated", "error", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	// Let the subscriber finish draining queued events.
	if !subscriberExited {
		select {
		case <-subscriberDone:
		case <-shutdownCtx.Done():
			logger.Warn("Timed out waiting for subscriber drain")
		}
	}

	logger.Info("UEBA Monitor stopped")
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer with a default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
