package domain

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
// Supports two-phase caching: local LRU (Community) + Redis (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type Cache interface {
	// Get retrieves a value from cache.
	// Returns nil, nil if key not found.
	Get(ctx context.Context, tenantID string, key string) ([]byte, error)

	// Set stores a value in cache with expiration.
	Set(ctx context.Context, tenantID string, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, tenantID string, key string) error

	// GetRiskScore retrieves a cached risk assessment for API reads.
	GetRiskScore(ctx context.Context, tenantID string, customerID string) (*RiskCache, error)

	// SetRiskScore caches the latest risk assessment for a customer.
	SetRiskScore(ctx context.Context, tenantID string, customerID string, data *RiskCache, ttl time.Duration) error

	// IncrementCounter atomically increments a windowed counter and returns
	// the new value. Used to suppress duplicate alerts for a customer.
	IncrementCounter(ctx context.Context, tenantID string, key string, window time.Duration) (int64, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RiskCache holds the cached view of a customer's latest risk assessment.
type RiskCache struct {
	CustomerID     string    `json:"customerId"`
	CompositeScore float64   `json:"compositeScore"`
	RiskLevel      RiskLevel `json:"riskLevel"`
	AnalyzedAt     time.Time `json:"analyzedAt"`
}

// CacheConfig holds configuration for cache initialization.
type CacheConfig struct {
	// Type is the cache type: "memory" or "redis"
	Type string

	// Local LRU cache settings (Community tier)
	LocalMaxSize int
	LocalTTL     time.Duration

	// Redis settings (Pro tier)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Two-phase settings
	EnableTwoPhase bool // If true, check local first, then Redis
}
