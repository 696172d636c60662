package rules

import "github.com/opensource-finance/kestrel/internal/domain"

func limit(v float64) *float64 { return &v }

// BuiltinRules returns the starter indicator rules loaded when a tenant has
// none of its own. Boolean expressions score 1 on match, so their bands
// open at 1.
func BuiltinRules() []*domain.IndicatorRule {
	return []*domain.IndicatorRule{
		{
			ID:          "builtin-whale-velocity",
			Name:        "RAPID_HIGH_SPEND",
			Description: "large lifetime spend accumulated at high daily velocity",
			Version:     "1.0",
			Expression:  `total_spent > 10000.0 && max_daily_txns >= 4`,
			Bands: []domain.SeverityBand{
				{LowerLimit: limit(1), Severity: domain.SeverityHigh, Confidence: 0.75,
					Reason: "high spend accumulated unusually fast"},
			},
			ContributingFactors: []string{"unusual_transaction_frequency", "amount_anomaly"},
			Enabled:             true,
		},
		{
			ID:          "builtin-ghost-profile",
			Name:        "GHOST_PROFILE_SPEND",
			Description: "meaningful spend from a near-empty profile",
			Version:     "1.0",
			Expression:  `profile_completeness * 1000.0 < total_spent ? total_spent / 1000.0 : 0.0`,
			Bands: []domain.SeverityBand{
				{LowerLimit: limit(1), UpperLimit: limit(5), Severity: domain.SeverityMedium, Confidence: 0.6,
					Reason: "spend outpaces profile completeness"},
				{LowerLimit: limit(5), Severity: domain.SeverityHigh, Confidence: 0.8,
					Reason: "large spend from an anonymous profile"},
			},
			ContributingFactors: []string{"missing_information", "behavioral_anomaly"},
			Enabled:             true,
		},
	}
}
