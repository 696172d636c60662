// Package decision turns risk scores into recommended enforcement actions
// and fraud alerts.
package decision

import (
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Recommender maps risk outcomes to actions. It is stateless and safe for
// concurrent use.
type Recommender struct {
	cfg domain.ScoringConfig
}

// NewRecommender validates the configuration and returns a ready recommender.
func NewRecommender(cfg domain.ScoringConfig) (*Recommender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("decision recommender: %w", err)
	}
	return &Recommender{cfg: cfg}, nil
}

// Recommend derives the enforcement action for one scored customer.
// totalSpent is the customer's lifetime spend; it raises the investigation
// priority of critical and high outcomes for large accounts.
func (r *Recommender) Recommend(score *domain.RiskScore, totalSpent float64, at time.Time) *domain.Action {
	return &domain.Action{
		CustomerID:            score.CustomerID,
		ActionRequired:        actionFor(score.RiskLevel),
		InvestigationPriority: priorityFor(score.RiskLevel, totalSpent),
		PrimaryRiskFactor:     r.PrimaryFactor(score.Factors),
		AnalyzedAt:            at,
	}
}

func actionFor(level domain.RiskLevel) string {
	switch level {
	case domain.RiskCritical:
		return domain.ActionBlockImmediately
	case domain.RiskHigh:
		return domain.ActionManualReview
	case domain.RiskMedium:
		return domain.ActionEnhancedMonitoring
	default:
		return domain.ActionStandard
	}
}

// Spend cutoffs that escalate an investigation within a risk level.
const (
	criticalSpendCutoff = 5000.0
	highSpendCutoff     = 2000.0
)

// priorityFor ranks urgency 1..5, 1 being most urgent. A big account at
// critical risk outranks a small one; the same split applies at high risk.
// Everything below high is routine.
func priorityFor(level domain.RiskLevel, totalSpent float64) int {
	switch {
	case level == domain.RiskCritical && totalSpent > criticalSpendCutoff:
		return 1
	case level == domain.RiskCritical:
		return 2
	case level == domain.RiskHigh && totalSpent > highSpendCutoff:
		return 3
	case level == domain.RiskHigh:
		return 4
	default:
		return 5
	}
}

// PrimaryFactor names the dominant risk dimension: the first of velocity,
// geographic, behavioral, amount whose sub-score exceeds the configured
// threshold. Profile and temporal never dominate on their own.
func (r *Recommender) PrimaryFactor(f domain.FactorScores) string {
	threshold := r.cfg.PrimaryFactorThreshold
	ordered := []struct {
		name  string
		score float64
	}{
		{domain.FactorVelocity, f.Velocity},
		{domain.FactorGeographic, f.Geographic},
		{domain.FactorBehavioral, f.Behavioral},
		{domain.FactorAmount, f.Amount},
	}
	for _, c := range ordered {
		if c.score > threshold {
			return c.name
		}
	}
	return domain.PrimaryFactorMultiple
}

// BuildAlert assembles the fraud alert for one elevated-risk customer. The
// caller is responsible for only alerting on elevated risk.
func BuildAlert(score *domain.RiskScore, action *domain.Action, profile *domain.CustomerProfile, indicators []domain.FraudIndicator, at time.Time) *domain.FraudAlert {
	types := make([]string, 0, len(indicators))
	for _, ind := range indicators {
		types = append(types, ind.IndicatorType)
	}

	name := ""
	if profile != nil {
		name = profile.FullName()
	}

	return &domain.FraudAlert{
		AlertID:               fmt.Sprintf("FRAUD_%s_%d", score.CustomerID, at.Unix()),
		CustomerID:            score.CustomerID,
		CustomerName:          name,
		RiskLevel:             score.RiskLevel,
		RiskScore:             score.CompositeScore,
		PrimaryIndicators:     types,
		RecommendedAction:     action.ActionRequired,
		InvestigationPriority: action.InvestigationPriority,
		Timestamp:             at,
	}
}
