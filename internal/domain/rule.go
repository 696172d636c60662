package domain

// IndicatorRule defines an operator-supplied CEL rule evaluated against each
// customer's aggregate. The expression yields a numeric score which the
// severity bands map to a fraud indicator.
type IndicatorRule struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// CEL expression over aggregate variables (total_spent, total_orders,
	// avg_order_value, diversity_score, profile_completeness,
	// activity_score, max_daily_txns, country, region, age).
	Expression string `json:"expression"`

	// Bands map the expression's score to an indicator severity. A score
	// matching no band raises no indicator.
	Bands []SeverityBand `json:"bands"`

	// ContributingFactors are attached verbatim to raised indicators.
	ContributingFactors []string `json:"contributingFactors,omitempty"`

	// Whether rule is active
	Enabled bool `json:"enabled"`
}

// SeverityBand maps a score range to an indicator severity.
// Lower bound inclusive, upper exclusive; a nil upper bound means +inf.
type SeverityBand struct {
	LowerLimit *float64 `json:"lowerLimit,omitempty"`
	UpperLimit *float64 `json:"upperLimit,omitempty"`
	Severity   string   `json:"severity"` // low, medium, high
	Confidence float64  `json:"confidence"`
	Reason     string   `json:"reason"`
}
