package domain

import (
	"time"
)

// RiskLevel is the discrete classification of a composite risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// IsElevated reports whether the level should trigger alerting.
func (l RiskLevel) IsElevated() bool {
	return l == RiskHigh || l == RiskCritical
}

// Risk factor names, used as indicator keys and primary-factor labels.
const (
	FactorVelocity   = "velocity"
	FactorGeographic = "geographic"
	FactorBehavioral = "behavioral"
	FactorProfile    = "profile"
	FactorAmount     = "amount"
	FactorTemporal   = "temporal"
)

// FactorScores holds the six independent sub-scores, each in [0,1].
type FactorScores struct {
	Velocity   float64 `json:"velocityRisk"`
	Geographic float64 `json:"geographicRisk"`
	Behavioral float64 `json:"behavioralRisk"`
	Profile    float64 `json:"profileRisk"`
	Amount     float64 `json:"amountRisk"`
	Temporal   float64 `json:"temporalRisk"`
}

// RiskScore is the per-customer risk assessment produced by one run.
// Exactly one record per customer is retained; reruns upsert by customer id.
type RiskScore struct {
	CustomerID string       `json:"customerId"`
	Factors    FactorScores `json:"factors"`

	// CompositeScore is the weighted combination of the six factors, in [0,1].
	CompositeScore float64   `json:"compositeScore"`
	RiskLevel      RiskLevel `json:"riskLevel"`

	// Confidence in the classification, in [0,1].
	Confidence float64 `json:"confidence"`

	AnalyzedAt time.Time `json:"analyzedAt"`
}

// Indicator severities.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// FraudIndicator is a typed signal raised by a risk calculator or an
// operator-defined indicator rule.
type FraudIndicator struct {
	CustomerID          string   `json:"customerId"`
	IndicatorType       string   `json:"indicatorType"`
	Severity            string   `json:"severity"`
	Confidence          float64  `json:"confidence"`
	Description         string   `json:"description"`
	ContributingFactors []string `json:"contributingFactors,omitempty"`
}

// FraudAlert is raised for customers classified high or critical.
type FraudAlert struct {
	AlertID               string    `json:"alertId"`
	CustomerID            string    `json:"customerId"`
	CustomerName          string    `json:"customerName"`
	RiskLevel             RiskLevel `json:"riskLevel"`
	RiskScore             float64   `json:"riskScore"`
	PrimaryIndicators     []string  `json:"primaryIndicators,omitempty"`
	RecommendedAction     string    `json:"recommendedAction"`
	InvestigationPriority int       `json:"investigationPriority"`
	Timestamp             time.Time `json:"timestamp"`
}
