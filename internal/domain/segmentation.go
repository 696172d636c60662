package domain

import (
	"time"
)

// CustomerSegment is the behavioral segment derived from spend and orders.
type CustomerSegment string

const (
	SegmentNew     CustomerSegment = "new"
	SegmentRegular CustomerSegment = "regular"
	SegmentPremium CustomerSegment = "premium"
)

// Value tiers, spend-based.
const (
	TierStandard    = "Standard"
	TierMediumValue = "Medium Value"
	TierHighValue   = "High Value"
	TierVIP         = "VIP"
)

// Segmentation is the per-customer value/behavior classification for one run.
// FrequencyScore and MonetaryScore are population quintile ranks (1 = top).
type Segmentation struct {
	CustomerID      string          `json:"customerId"`
	CustomerSegment CustomerSegment `json:"customerSegment"`
	ValueTier       string          `json:"valueTier"`

	FrequencyScore int `json:"frequencyScore"`
	MonetaryScore  int `json:"monetaryScore"`

	ActivityScore       float64 `json:"activityScore"`
	DiversityScore      float64 `json:"diversityScore"`
	ProfileCompleteness float64 `json:"profileCompleteness"`

	IsHighValue     bool `json:"isHighValue"`
	IsFrequentBuyer bool `json:"isFrequentBuyer"`
	IsHighRisk      bool `json:"isHighRisk"`

	AnalyzedAt time.Time `json:"analyzedAt"`
}

// Recommended actions, a pure function of risk level.
const (
	ActionBlockImmediately   = "BLOCK_IMMEDIATELY"
	ActionManualReview       = "MANUAL_REVIEW"
	ActionEnhancedMonitoring = "ENHANCED_MONITORING"
	ActionStandard           = "STANDARD"
)

// PrimaryFactorMultiple is the label used when no single dominant factor
// exceeds the trigger threshold.
const PrimaryFactorMultiple = "Multiple Factors"

// Action is the recommended enforcement outcome for one customer.
// InvestigationPriority is an integer urgency rank, 1 = most urgent.
type Action struct {
	CustomerID            string    `json:"customerId"`
	ActionRequired        string    `json:"actionRequired"`
	InvestigationPriority int       `json:"investigationPriority"`
	PrimaryRiskFactor     string    `json:"primaryRiskFactor"`
	AnalyzedAt            time.Time `json:"analyzedAt"`
}
