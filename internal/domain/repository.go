package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
// Derived records (risk scores, segmentations, actions) are upserted keyed
// by customer id; only the latest run is retained.
type Repository interface {
	// Snapshot inputs
	SaveProfile(ctx context.Context, tenantID string, p *CustomerProfile) error
	GetProfile(ctx context.Context, tenantID string, customerID string) (*CustomerProfile, error)
	ListProfiles(ctx context.Context, tenantID string) ([]*CustomerProfile, error)

	SaveTransaction(ctx context.Context, tenantID string, tx *Transaction) error
	ListTransactions(ctx context.Context, tenantID string) ([]*Transaction, error)
	ListTransactionsByCustomer(ctx context.Context, tenantID string, customerID string, since time.Time) ([]*Transaction, error)

	// Derived outputs (upsert by customer id)
	UpsertRiskScore(ctx context.Context, tenantID string, score *RiskScore) error
	GetRiskScore(ctx context.Context, tenantID string, customerID string) (*RiskScore, error)

	UpsertSegmentation(ctx context.Context, tenantID string, seg *Segmentation) error
	GetSegmentation(ctx context.Context, tenantID string, customerID string) (*Segmentation, error)

	UpsertAction(ctx context.Context, tenantID string, action *Action) error
	GetAction(ctx context.Context, tenantID string, customerID string) (*Action, error)

	// Indicators and alerts
	ReplaceIndicators(ctx context.Context, tenantID string, customerID string, indicators []FraudIndicator) error
	ListIndicators(ctx context.Context, tenantID string, customerID string) ([]FraudIndicator, error)

	SaveAlert(ctx context.Context, tenantID string, alert *FraudAlert) error
	ListAlerts(ctx context.Context, tenantID string, since time.Time) ([]*FraudAlert, error)

	// Indicator rule configuration
	SaveIndicatorRule(ctx context.Context, tenantID string, rule *IndicatorRule) error
	GetIndicatorRule(ctx context.Context, tenantID string, ruleID string) (*IndicatorRule, error)
	ListIndicatorRules(ctx context.Context, tenantID string) ([]*IndicatorRule, error)
	DeleteIndicatorRule(ctx context.Context, tenantID string, ruleID string) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
