// Package scoring orchestrates a full analysis pass: aggregation, risk
// scoring, segmentation, action recommendation, and alerting.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-finance/kestrel/internal/aggregate"
	"github.com/opensource-finance/kestrel/internal/decision"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/quality"
	"github.com/opensource-finance/kestrel/internal/risk"
	"github.com/opensource-finance/kestrel/internal/rules"
	"github.com/opensource-finance/kestrel/internal/segment"
)

// EngineVersion is stamped into every run's metadata.
const EngineVersion = "1.0.0"

// Snapshot is the input population for one scoring pass.
type Snapshot struct {
	TenantID     string
	Profiles     []*domain.CustomerProfile
	Transactions []*domain.Transaction
}

// Pipeline runs the full scoring sequence over a snapshot. It is stateless
// between runs and safe for concurrent use. The pipeline itself does not
// persist anything; callers own storage and eventing.
type Pipeline struct {
	cfg         domain.ScoringConfig
	risk        *risk.Engine
	segments    *segment.Engine
	recommender *decision.Recommender
	rules       *rules.Engine
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// New builds a pipeline. ruleEngine may be nil to run with the built-in
// calculators only.
func New(cfg domain.ScoringConfig, ruleEngine *rules.Engine, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	riskEngine, err := risk.NewEngine(cfg, logger)
	if err != nil {
		return nil, err
	}
	segmentEngine, err := segment.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	recommender, err := decision.NewRecommender(cfg)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:         cfg,
		risk:        riskEngine,
		segments:    segmentEngine,
		recommender: recommender,
		rules:       ruleEngine,
		logger:      logger,
		tracer:      otel.Tracer("kestrel-scoring"),
		now:         time.Now,
	}, nil
}

// Run scores a full snapshot. The snapshot is validated first; critical
// data-quality findings abort the run with ErrDataIntegrity. All records in
// the result share a single analysis timestamp, so re-running the same
// snapshot at a fixed clock is idempotent.
func (p *Pipeline) Run(ctx context.Context, snap *Snapshot) (*domain.RunResult, error) {
	startedAt := p.now()
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("tenant.id", snap.TenantID),
		attribute.Int("snapshot.profiles", len(snap.Profiles)),
		attribute.Int("snapshot.transactions", len(snap.Transactions)),
	))
	defer span.End()

	report := quality.Validate(snap.Profiles, snap.Transactions)
	if !report.Passed() {
		span.SetAttributes(attribute.Bool("quality.passed", false))
		return nil, fmt.Errorf("%w: %d quality findings", domain.ErrDataIntegrity, len(report.Findings))
	}
	for _, f := range report.Findings {
		p.logger.Warn("data quality finding",
			"tenant_id", snap.TenantID, "check", f.Check, "count", f.Count, "detail", f.Detail)
	}

	// Aggregate stage. A profile with no usable identity cannot be scored;
	// it is skipped along with its transactions rather than aborting the run.
	aggregateStart := time.Now()
	byCustomer := aggregate.GroupByCustomer(snap.Transactions)

	var skipped []domain.SkippedCustomer
	profiles := make(map[string]*domain.CustomerProfile, len(snap.Profiles))
	scorable := make([]*domain.CustomerProfile, 0, len(snap.Profiles))
	for _, profile := range snap.Profiles {
		if aggregate.Completeness(profile) == 0 {
			skipped = append(skipped, domain.SkippedCustomer{
				CustomerID: profile.CustomerID,
				Reason:     "profile has no usable identity",
				TxCount:    len(byCustomer[profile.CustomerID]),
			})
			delete(byCustomer, profile.CustomerID)
			continue
		}
		profiles[profile.CustomerID] = profile
		scorable = append(scorable, profile)
	}

	for customerID, history := range byCustomer {
		if _, ok := profiles[customerID]; !ok {
			skipped = append(skipped, domain.SkippedCustomer{
				CustomerID: customerID,
				Reason:     "no profile for transactions",
				TxCount:    len(history),
			})
			delete(byCustomer, customerID)
		}
	}
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].CustomerID < skipped[j].CustomerID })

	aggregates := aggregate.BuildAll(scorable, byCustomer)
	aggregateMs := time.Since(aggregateStart).Milliseconds()

	// Scoring stage, bounded fan-out per customer.
	scoringStart := time.Now()
	scores, indicators, err := p.scoreAll(ctx, aggregates, profiles, byCustomer, startedAt)
	if err != nil {
		return nil, err
	}
	scoringMs := time.Since(scoringStart).Milliseconds()

	// Segmentation and decisions need the whole population.
	segmentStart := time.Now()
	risks := make(map[string]*domain.RiskScore, len(scores))
	for _, score := range scores {
		risks[score.CustomerID] = score
	}
	segmentations := p.segments.SegmentAll(aggregates, risks, startedAt)

	spentByCustomer := make(map[string]float64, len(aggregates))
	for _, agg := range aggregates {
		spentByCustomer[agg.CustomerID] = agg.TotalSpent
	}

	indicatorsByCustomer := make(map[string][]domain.FraudIndicator)
	for _, ind := range indicators {
		indicatorsByCustomer[ind.CustomerID] = append(indicatorsByCustomer[ind.CustomerID], ind)
	}

	actions := make([]*domain.Action, 0, len(scores))
	var alerts []*domain.FraudAlert
	for _, score := range scores {
		action := p.recommender.Recommend(score, spentByCustomer[score.CustomerID], startedAt)
		actions = append(actions, action)

		if score.RiskLevel.IsElevated() {
			alert := decision.BuildAlert(score, action, profiles[score.CustomerID],
				indicatorsByCustomer[score.CustomerID], startedAt)
			alerts = append(alerts, alert)
		}
	}
	segmentMs := time.Since(segmentStart).Milliseconds()

	result := &domain.RunResult{
		RunID:         uuid.NewString(),
		TenantID:      snap.TenantID,
		Aggregates:    aggregates,
		RiskScores:    scores,
		Segmentations: segmentations,
		Actions:       actions,
		Indicators:    indicators,
		Alerts:        alerts,
		Skipped:       skipped,
		Metrics:       buildMetrics(scores, skipped),
		Metadata: domain.RunMetadata{
			TraceID:       span.SpanContext().TraceID().String(),
			AggregateMs:   aggregateMs,
			ScoringMs:     scoringMs,
			SegmentMs:     segmentMs,
			TotalMs:       time.Since(start).Milliseconds(),
			EngineVersion: EngineVersion,
		},
		StartedAt: startedAt,
	}

	span.SetAttributes(
		attribute.Int("run.analyzed", result.Metrics.CustomersAnalyzed),
		attribute.Int("run.alerts", len(alerts)),
	)
	p.logger.Info("scoring run completed",
		"tenant_id", snap.TenantID,
		"run_id", result.RunID,
		"analyzed", result.Metrics.CustomersAnalyzed,
		"skipped", result.Metrics.CustomersSkipped,
		"high_risk", result.Metrics.HighRiskCustomers,
		"alerts", len(alerts),
		"total_ms", result.Metadata.TotalMs,
	)

	return result, nil
}

// scoreAll evaluates every aggregate in parallel. Output order follows the
// aggregates slice, so results are deterministic.
func (p *Pipeline) scoreAll(ctx context.Context, aggregates []*domain.CustomerAggregate, profiles map[string]*domain.CustomerProfile, byCustomer map[string][]*domain.Transaction, at time.Time) ([]*domain.RiskScore, []domain.FraudIndicator, error) {
	type scored struct {
		score      *domain.RiskScore
		indicators []domain.FraudIndicator
	}

	results := make([]scored, len(aggregates))
	var wg sync.WaitGroup

	sem := make(chan struct{}, p.cfg.MaxWorkers)

	for i, agg := range aggregates {
		wg.Add(1)
		go func(idx int, agg *domain.CustomerAggregate) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			profile := profiles[agg.CustomerID]
			history := byCustomer[agg.CustomerID]

			score, indicators := p.risk.Score(agg, profile, history, at)
			if p.rules != nil {
				indicators = append(indicators, p.rules.Evaluate(agg, profile)...)
			}
			results[idx] = scored{score: score, indicators: indicators}
		}(i, agg)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("scoring canceled: %w", err)
	}

	scores := make([]*domain.RiskScore, len(results))
	var indicators []domain.FraudIndicator
	for i, r := range results {
		scores[i] = r.score
		indicators = append(indicators, r.indicators...)
	}
	return scores, indicators, nil
}

func buildMetrics(scores []*domain.RiskScore, skipped []domain.SkippedCustomer) domain.RunMetrics {
	metrics := domain.RunMetrics{
		CustomersAnalyzed: len(scores),
		CustomersSkipped:  len(skipped),
		RiskDistribution:  make(map[domain.RiskLevel]int, 4),
	}

	if len(scores) == 0 {
		return metrics
	}

	var sum float64
	for _, score := range scores {
		sum += score.CompositeScore
		metrics.RiskDistribution[score.RiskLevel]++
		if score.RiskLevel.IsElevated() {
			metrics.HighRiskCustomers++
		}
	}
	metrics.AverageRiskScore = sum / float64(len(scores))
	metrics.DetectionRate = float64(metrics.HighRiskCustomers) / float64(len(scores)) * 100

	return metrics
}
