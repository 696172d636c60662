package domain

import (
	"fmt"
	"math"
	"time"
)

// Config holds the complete Kestrel configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines feature availability
	Tier Tier `json:"tier"`

	// Scoring holds the risk and segmentation parameters
	Scoring ScoringConfig `json:"scoring"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the product tier.
type Tier string

const (
	// TierCommunity is the free tier with SQLite + channels
	TierCommunity Tier = "community"

	// TierPro is the paid tier with PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// FactorWeights holds the composite weighting of the six risk factors.
// Weights must be non-negative and sum to 1.0.
type FactorWeights struct {
	Velocity   float64 `json:"velocity"`
	Geographic float64 `json:"geographic"`
	Behavioral float64 `json:"behavioral"`
	Profile    float64 `json:"profile"`
	Amount     float64 `json:"amount"`
	Temporal   float64 `json:"temporal"`
}

// Sum returns the total weight.
func (w FactorWeights) Sum() float64 {
	return w.Velocity + w.Geographic + w.Behavioral + w.Profile + w.Amount + w.Temporal
}

// RiskThresholds are the ascending lower cut points of the medium, high and
// critical levels. Scores below Medium classify as low. Each bound is closed
// on the lower end, so the four levels partition [0,1] without overlap.
type RiskThresholds struct {
	Medium   float64 `json:"medium"`
	High     float64 `json:"high"`
	Critical float64 `json:"critical"`
}

// SegmentThresholds are the spend/order cut points for behavioral segments
// and value tiers.
type SegmentThresholds struct {
	PremiumSpend  float64 `json:"premiumSpend"`
	PremiumOrders int     `json:"premiumOrders"`
	RegularSpend  float64 `json:"regularSpend"`
	RegularOrders int     `json:"regularOrders"`

	VIPSpend         float64 `json:"vipSpend"`
	HighValueSpend   float64 `json:"highValueSpend"`
	MediumValueSpend float64 `json:"mediumValueSpend"`
}

// ScoringConfig is the full configuration surface of the scoring engine.
type ScoringConfig struct {
	Weights    FactorWeights     `json:"weights"`
	Thresholds RiskThresholds    `json:"thresholds"`
	Segments   SegmentThresholds `json:"segments"`

	// PrimaryFactorThreshold is the sub-score a single factor must exceed
	// to be named the primary risk factor.
	PrimaryFactorThreshold float64 `json:"primaryFactorThreshold"`

	// AmountZScoreBound flags line totals whose z-score against the
	// customer's own history exceeds this bound.
	AmountZScoreBound float64 `json:"amountZScoreBound"`

	// LowRiskCountries is the set of profile countries that carry no
	// geographic baseline risk.
	LowRiskCountries []string `json:"lowRiskCountries"`

	// MaxWorkers bounds per-customer scoring concurrency.
	MaxWorkers int `json:"maxWorkers"`
}

const weightTolerance = 1e-9

// Validate checks weights and threshold ordering. It is called before any
// scoring begins; a failure here is fatal for the run.
func (c *ScoringConfig) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		FactorVelocity:   w.Velocity,
		FactorGeographic: w.Geographic,
		FactorBehavioral: w.Behavioral,
		FactorProfile:    w.Profile,
		FactorAmount:     w.Amount,
		FactorTemporal:   w.Temporal,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s weight is negative (%.4f)", ErrInvalidConfig, name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: factor weights sum to %.6f, want 1.0", ErrInvalidConfig, sum)
	}

	t := c.Thresholds
	if !(t.Medium > 0 && t.Medium < t.High && t.High < t.Critical && t.Critical <= 1.0) {
		return fmt.Errorf("%w: risk thresholds must satisfy 0 < medium < high < critical <= 1, got %.2f/%.2f/%.2f",
			ErrInvalidConfig, t.Medium, t.High, t.Critical)
	}

	if c.PrimaryFactorThreshold <= 0 || c.PrimaryFactorThreshold >= 1 {
		return fmt.Errorf("%w: primary factor threshold %.2f outside (0,1)", ErrInvalidConfig, c.PrimaryFactorThreshold)
	}
	return nil
}

// DefaultScoringConfig returns the starting configuration: equal factor
// weights and the standard risk-level cut points. Weights are a starting
// point pending calibration against labeled outcomes.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		Weights: FactorWeights{
			Velocity:   1.0 / 6.0,
			Geographic: 1.0 / 6.0,
			Behavioral: 1.0 / 6.0,
			Profile:    1.0 / 6.0,
			Amount:     1.0 / 6.0,
			Temporal:   1.0 / 6.0,
		},
		Thresholds: RiskThresholds{
			Medium:   0.30,
			High:     0.60,
			Critical: 0.80,
		},
		Segments: SegmentThresholds{
			PremiumSpend:     2000,
			PremiumOrders:    5,
			RegularSpend:     500,
			RegularOrders:    2,
			VIPSpend:         10000,
			HighValueSpend:   5000,
			MediumValueSpend: 1000,
		},
		PrimaryFactorThreshold: 0.70,
		AmountZScoreBound:      3.0,
		LowRiskCountries:       []string{"United States", "Canada", "United Kingdom"},
		MaxWorkers:             16,
	}
}

// CalibratedScoringConfig returns the weight profile observed in the
// production platform this engine replaced. Thresholds stay at the standard
// cut points.
func CalibratedScoringConfig() ScoringConfig {
	cfg := DefaultScoringConfig()
	cfg.Weights = FactorWeights{
		Velocity:   0.25,
		Geographic: 0.20,
		Behavioral: 0.20,
		Profile:    0.15,
		Amount:     0.10,
		Temporal:   0.10,
	}
	return cfg
}

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier:    TierCommunity,
		Scoring: DefaultScoringConfig(),
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./kestrel.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "kestrel",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Scoring = CalibratedScoringConfig()
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "kestrel",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}
