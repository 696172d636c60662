// Package worker provides async snapshot processing for the Pro tier.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/scoring"
)

// alertSuppressionWindow limits how often the worker re-publishes an alert
// for the same customer.
const alertSuppressionWindow = 6 * time.Hour

// Worker runs scoring passes asynchronously off the EventBus. A snapshot
// ingested event triggers a full analysis of the tenant's stored data;
// results are persisted and published.
type Worker struct {
	bus      domain.EventBus
	repo     domain.Repository
	cache    domain.Cache
	pipeline *scoring.Pipeline

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, cache domain.Cache, pipeline *scoring.Pipeline) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:      bus,
		repo:     repo,
		cache:    cache,
		pipeline: pipeline,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing snapshot events for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts a worker that processes all tenants (for testing/dev).
func (w *Worker) startGlobalWorker() error {
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicSnapshotIngested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicSnapshotIngested, func(ctx context.Context, msg *domain.Message) error {
		return w.processSnapshot(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicSnapshotIngested,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processSnapshot(ctx, msg.TenantID, msg)
}

// SnapshotMessage is the payload of a snapshot ingested event.
type SnapshotMessage struct {
	TenantID string `json:"tenantId"`
	TraceID  string `json:"traceId,omitempty"`
}

// RunCompletedMessage is published after a scoring pass finishes.
type RunCompletedMessage struct {
	RunID    string            `json:"runId"`
	TenantID string            `json:"tenantId"`
	Metrics  domain.RunMetrics `json:"metrics"`
}

// processSnapshot loads the tenant's stored snapshot, runs the full scoring
// pass, persists the results, and publishes the outcome.
func (w *Worker) processSnapshot(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var snapMsg SnapshotMessage
	if err := json.Unmarshal(msg.Payload, &snapMsg); err != nil {
		slog.Error("failed to parse snapshot message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if snapMsg.TenantID != "" {
		tenantID = snapMsg.TenantID
	}

	slog.Debug("processing snapshot",
		"tenant_id", tenantID,
		"trace_id", snapMsg.TraceID,
	)

	profiles, err := w.repo.ListProfiles(ctx, tenantID)
	if err != nil {
		slog.Error("failed to load profiles",
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}
	transactions, err := w.repo.ListTransactions(ctx, tenantID)
	if err != nil {
		slog.Error("failed to load transactions",
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	result, err := w.pipeline.Run(ctx, &scoring.Snapshot{
		TenantID:     tenantID,
		Profiles:     profiles,
		Transactions: transactions,
	})
	if err != nil {
		slog.Error("scoring run failed",
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	w.persist(ctx, tenantID, result)
	w.publish(ctx, tenantID, result)

	slog.Info("snapshot processed",
		"tenant_id", tenantID,
		"run_id", result.RunID,
		"analyzed", result.Metrics.CustomersAnalyzed,
		"alerts", len(result.Alerts),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// persist upserts every derived record. Failures are logged per record so a
// single bad row does not abandon the rest of the run.
func (w *Worker) persist(ctx context.Context, tenantID string, result *domain.RunResult) {
	for _, score := range result.RiskScores {
		if err := w.repo.UpsertRiskScore(ctx, tenantID, score); err != nil {
			slog.Error("failed to save risk score",
				"customer_id", score.CustomerID,
				"error", err,
			)
		}
		if w.cache != nil {
			_ = w.cache.SetRiskScore(ctx, tenantID, score.CustomerID, &domain.RiskCache{
				CustomerID:     score.CustomerID,
				CompositeScore: score.CompositeScore,
				RiskLevel:      score.RiskLevel,
				AnalyzedAt:     score.AnalyzedAt,
			}, time.Hour)
		}
	}

	for _, seg := range result.Segmentations {
		if err := w.repo.UpsertSegmentation(ctx, tenantID, seg); err != nil {
			slog.Error("failed to save segmentation",
				"customer_id", seg.CustomerID,
				"error", err,
			)
		}
	}

	for _, action := range result.Actions {
		if err := w.repo.UpsertAction(ctx, tenantID, action); err != nil {
			slog.Error("failed to save action",
				"customer_id", action.CustomerID,
				"error", err,
			)
		}
	}

	indicatorsByCustomer := make(map[string][]domain.FraudIndicator)
	for _, ind := range result.Indicators {
		indicatorsByCustomer[ind.CustomerID] = append(indicatorsByCustomer[ind.CustomerID], ind)
	}
	for _, score := range result.RiskScores {
		if err := w.repo.ReplaceIndicators(ctx, tenantID, score.CustomerID, indicatorsByCustomer[score.CustomerID]); err != nil {
			slog.Error("failed to save indicators",
				"customer_id", score.CustomerID,
				"error", err,
			)
		}
	}

	for _, alert := range result.Alerts {
		if err := w.repo.SaveAlert(ctx, tenantID, alert); err != nil {
			slog.Error("failed to save alert",
				"alert_id", alert.AlertID,
				"error", err,
			)
		}
	}
}

// publish emits the run completed event and, for each alert, an alert event.
// Alerts for the same customer within the suppression window are persisted
// but not re-published.
func (w *Worker) publish(ctx context.Context, tenantID string, result *domain.RunResult) {
	completed, _ := json.Marshal(RunCompletedMessage{
		RunID:    result.RunID,
		TenantID: tenantID,
		Metrics:  result.Metrics,
	})
	if err := w.bus.Publish(ctx, tenantID, domain.TopicRunCompleted, completed); err != nil {
		slog.Error("failed to publish run completed",
			"run_id", result.RunID,
			"error", err,
		)
	}

	for _, alert := range result.Alerts {
		if w.cache != nil {
			count, err := w.cache.IncrementCounter(ctx, tenantID, "alert:"+alert.CustomerID, alertSuppressionWindow)
			if err == nil && count > 1 {
				slog.Debug("alert suppressed",
					"customer_id", alert.CustomerID,
					"count", count,
				)
				continue
			}
		}

		payload, _ := json.Marshal(alert)
		if err := w.bus.Publish(ctx, tenantID, domain.TopicAlert, payload); err != nil {
			slog.Error("failed to publish alert",
				"alert_id", alert.AlertID,
				"error", err,
			)
		}
	}
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
