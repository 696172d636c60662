package domain

import (
	"time"
)

// SkippedCustomer records one customer the pipeline excluded from scoring.
type SkippedCustomer struct {
	CustomerID string `json:"customerId"`
	Reason     string `json:"reason"`
	TxCount    int    `json:"txCount,omitempty"`
}

// RunMetrics summarizes one scoring pass over the population.
type RunMetrics struct {
	CustomersAnalyzed int     `json:"customersAnalyzed"`
	CustomersSkipped  int     `json:"customersSkipped"`
	AverageRiskScore  float64 `json:"averageRiskScore"`

	// RiskDistribution counts customers per level.
	RiskDistribution map[RiskLevel]int `json:"riskDistribution"`

	HighRiskCustomers int `json:"highRiskCustomers"`

	// DetectionRate is the high+critical share of the population, in percent.
	DetectionRate float64 `json:"detectionRate"`
}

// RunMetadata carries processing information for one scoring pass.
type RunMetadata struct {
	TraceID       string `json:"traceId"`
	AggregateMs   int64  `json:"aggregateMs"`
	ScoringMs     int64  `json:"scoringMs"`
	SegmentMs     int64  `json:"segmentMs"`
	TotalMs       int64  `json:"totalMs"`
	EngineVersion string `json:"engineVersion"`
}

// RunResult is the complete output of one scoring pass. The caller decides
// persistence; the pipeline itself has no side effects beyond these records.
type RunResult struct {
	RunID    string `json:"runId"`
	TenantID string `json:"tenantId"`

	Aggregates    []*CustomerAggregate `json:"aggregates"`
	RiskScores    []*RiskScore         `json:"riskScores"`
	Segmentations []*Segmentation      `json:"segmentations"`
	Actions       []*Action            `json:"actions"`
	Indicators    []FraudIndicator     `json:"indicators,omitempty"`
	Alerts        []*FraudAlert        `json:"alerts,omitempty"`

	Skipped []SkippedCustomer `json:"skipped,omitempty"`

	Metrics  RunMetrics  `json:"metrics"`
	Metadata RunMetadata `json:"metadata"`

	StartedAt time.Time `json:"startedAt"`
}
