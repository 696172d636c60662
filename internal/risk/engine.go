package risk

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Engine produces multi-dimensional risk scores for customers. Scoring is
// pure and deterministic: the same aggregate, profile, and history always
// yield the same score, and inputs are never mutated. An Engine is safe for
// concurrent use.
type Engine struct {
	cfg     domain.ScoringConfig
	lowRisk map[string]bool
	logger  *slog.Logger
}

// NewEngine validates the scoring configuration and returns a ready engine.
func NewEngine(cfg domain.ScoringConfig, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("risk engine: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	lowRisk := make(map[string]bool, len(cfg.LowRiskCountries))
	for _, c := range cfg.LowRiskCountries {
		lowRisk[c] = true
	}

	return &Engine{cfg: cfg, lowRisk: lowRisk, logger: logger}, nil
}

// Score evaluates all six risk dimensions for one customer and composes them
// into a weighted score. The returned indicators explain every dimension
// that contributed risk.
func (e *Engine) Score(agg *domain.CustomerAggregate, profile *domain.CustomerProfile, history []*domain.Transaction, at time.Time) (*domain.RiskScore, []domain.FraudIndicator) {
	var indicators []domain.FraudIndicator
	collect := func(score float64, ind []domain.FraudIndicator) float64 {
		indicators = append(indicators, ind...)
		return score
	}

	factors := domain.FactorScores{
		Velocity:   e.clamp(domain.FactorVelocity, collect(e.velocityRisk(agg, history))),
		Geographic: e.clamp(domain.FactorGeographic, collect(e.geographicRisk(agg, profile))),
		Behavioral: e.clamp(domain.FactorBehavioral, collect(e.behavioralRisk(agg))),
		Profile:    e.clamp(domain.FactorProfile, collect(e.profileRisk(agg, profile))),
		Amount:     e.clamp(domain.FactorAmount, collect(e.amountRisk(agg, history))),
		Temporal:   e.clamp(domain.FactorTemporal, collect(e.temporalRisk(agg, history))),
	}

	composite := e.clamp("composite", e.Composite(factors))

	score := &domain.RiskScore{
		CustomerID:     agg.CustomerID,
		Factors:        factors,
		CompositeScore: composite,
		RiskLevel:      e.Level(composite),
		Confidence:     Confidence(composite),
		AnalyzedAt:     at,
	}
	return score, indicators
}

// Composite computes the weighted sum of the six factor scores.
func (e *Engine) Composite(f domain.FactorScores) float64 {
	w := e.cfg.Weights
	return f.Velocity*w.Velocity +
		f.Geographic*w.Geographic +
		f.Behavioral*w.Behavioral +
		f.Profile*w.Profile +
		f.Amount*w.Amount +
		f.Temporal*w.Temporal
}

// Level maps a composite score onto a risk level. Thresholds are inclusive
// lower bounds, so every score in [0,1] maps to exactly one level.
func (e *Engine) Level(composite float64) domain.RiskLevel {
	t := e.cfg.Thresholds
	switch {
	case composite >= t.Critical:
		return domain.RiskCritical
	case composite >= t.High:
		return domain.RiskHigh
	case composite >= t.Medium:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// Confidence estimates how much to trust a score. Higher scores carry more
// corroborating signals, capped at 0.95.
func Confidence(composite float64) float64 {
	return math.Min(0.95, 0.5+composite*0.45)
}

// clamp bounds a factor score to [0,1]. Scores outside the range indicate a
// calculator bug, so the clamp is logged rather than silent.
func (e *Engine) clamp(factor string, v float64) float64 {
	switch {
	case math.IsNaN(v):
		e.logger.Warn("risk factor out of domain", "factor", factor, "value", "NaN")
		return 0
	case v < 0:
		e.logger.Warn("risk factor below range", "factor", factor, "value", v)
		return 0
	case v > 1:
		if factor != "composite" {
			// Individual heuristics may legitimately stack past 1.0
			// before normalization, so only log the composite.
			return 1
		}
		e.logger.Warn("composite score above range", "value", v)
		return 1
	default:
		return v
	}
}
