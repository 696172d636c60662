// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveProfile upserts a customer profile with tenant isolation.
func (r *SQLRepository) SaveProfile(ctx context.Context, tenantID string, p *domain.CustomerProfile) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if p.CustomerID == "" {
		return fmt.Errorf("%w: customerID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO customers (
			customer_id, tenant_id, first_name, last_name, email, phone, age,
			city, state, country, postal_code, address,
			company_name, job_title, department,
			card_type, card_last4, iban_country
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, customer_id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			email = excluded.email,
			phone = excluded.phone,
			age = excluded.age,
			city = excluded.city,
			state = excluded.state,
			country = excluded.country,
			postal_code = excluded.postal_code,
			address = excluded.address,
			company_name = excluded.company_name,
			job_title = excluded.job_title,
			department = excluded.department,
			card_type = excluded.card_type,
			card_last4 = excluded.card_last4,
			iban_country = excluded.iban_country
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		p.CustomerID, tenantID, p.FirstName, p.LastName, p.Email, p.Phone, p.Age,
		p.City, p.State, p.Country, p.PostalCode, p.Address,
		p.CompanyName, p.JobTitle, p.Department,
		p.CardType, p.CardLast4, p.IBANCountry,
	)
	return err
}

const profileColumns = `customer_id, first_name, last_name, email, phone, age,
	   city, state, country, postal_code, address,
	   company_name, job_title, department,
	   card_type, card_last4, iban_country`

func scanProfile(row interface{ Scan(...any) error }) (*domain.CustomerProfile, error) {
	var p domain.CustomerProfile
	err := row.Scan(
		&p.CustomerID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.Age,
		&p.City, &p.State, &p.Country, &p.PostalCode, &p.Address,
		&p.CompanyName, &p.JobTitle, &p.Department,
		&p.CardType, &p.CardLast4, &p.IBANCountry,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfile retrieves a customer profile with tenant isolation.
func (r *SQLRepository) GetProfile(ctx context.Context, tenantID string, customerID string) (*domain.CustomerProfile, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + profileColumns + ` FROM customers WHERE tenant_id = ? AND customer_id = ?`

	p, err := scanProfile(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, customerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ListProfiles retrieves all customer profiles for a tenant.
func (r *SQLRepository) ListProfiles(ctx context.Context, tenantID string) ([]*domain.CustomerProfile, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + profileColumns + ` FROM customers WHERE tenant_id = ? ORDER BY customer_id`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*domain.CustomerProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// SaveTransaction upserts one order line with tenant isolation. Lines are
// keyed by (order, product), so re-ingesting a snapshot is idempotent.
func (r *SQLRepository) SaveTransaction(ctx context.Context, tenantID string, tx *domain.Transaction) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if tx.OrderID == "" || tx.ProductID == "" {
		return fmt.Errorf("%w: orderID and productID are required", ErrInvalidInput)
	}

	query := `
		INSERT INTO transactions (
			tenant_id, order_id, customer_id, product_id, category,
			quantity, price, discount, line_total, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, order_id, product_id) DO UPDATE SET
			customer_id = excluded.customer_id,
			category = excluded.category,
			quantity = excluded.quantity,
			price = excluded.price,
			discount = excluded.discount,
			line_total = excluded.line_total,
			timestamp = excluded.timestamp
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tenantID, tx.OrderID, tx.CustomerID, tx.ProductID, tx.Category,
		tx.Quantity, tx.Price, tx.Discount, tx.LineTotal, tx.Timestamp,
	)
	return err
}

const transactionColumns = `order_id, customer_id, product_id, category,
	   quantity, price, discount, line_total, timestamp`

func scanTransaction(row interface{ Scan(...any) error }) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := row.Scan(
		&tx.OrderID, &tx.CustomerID, &tx.ProductID, &tx.Category,
		&tx.Quantity, &tx.Price, &tx.Discount, &tx.LineTotal, &tx.Timestamp,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// ListTransactions retrieves every order line for a tenant.
func (r *SQLRepository) ListTransactions(ctx context.Context, tenantID string) ([]*domain.Transaction, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + transactionColumns + `
		FROM transactions WHERE tenant_id = ? ORDER BY timestamp`

	return r.queryTransactions(ctx, query, tenantID)
}

// ListTransactionsByCustomer retrieves order lines for one customer since a
// point in time, newest first.
func (r *SQLRepository) ListTransactionsByCustomer(ctx context.Context, tenantID string, customerID string, since time.Time) ([]*domain.Transaction, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE tenant_id = ? AND customer_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC`

	return r.queryTransactions(ctx, query, tenantID, customerID, since)
}

func (r *SQLRepository) queryTransactions(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

// UpsertRiskScore stores the latest risk score for a customer.
func (r *SQLRepository) UpsertRiskScore(ctx context.Context, tenantID string, score *domain.RiskScore) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO risk_scores (
			customer_id, tenant_id,
			velocity_risk, geographic_risk, behavioral_risk,
			profile_risk, amount_risk, temporal_risk,
			composite_score, risk_level, confidence, analyzed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, customer_id) DO UPDATE SET
			velocity_risk = excluded.velocity_risk,
			geographic_risk = excluded.geographic_risk,
			behavioral_risk = excluded.behavioral_risk,
			profile_risk = excluded.profile_risk,
			amount_risk = excluded.amount_risk,
			temporal_risk = excluded.temporal_risk,
			composite_score = excluded.composite_score,
			risk_level = excluded.risk_level,
			confidence = excluded.confidence,
			analyzed_at = excluded.analyzed_at
	`

	f := score.Factors
	_, err := r.db.ExecContext(ctx, r.rebind(query),
		score.CustomerID, tenantID,
		f.Velocity, f.Geographic, f.Behavioral,
		f.Profile, f.Amount, f.Temporal,
		score.CompositeScore, string(score.RiskLevel), score.Confidence, score.AnalyzedAt,
	)
	return err
}

// GetRiskScore retrieves the latest risk score for a customer.
func (r *SQLRepository) GetRiskScore(ctx context.Context, tenantID string, customerID string) (*domain.RiskScore, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT customer_id,
			   velocity_risk, geographic_risk, behavioral_risk,
			   profile_risk, amount_risk, temporal_risk,
			   composite_score, risk_level, confidence, analyzed_at
		FROM risk_scores
		WHERE tenant_id = ? AND customer_id = ?
	`

	var score domain.RiskScore
	var level string

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, customerID).Scan(
		&score.CustomerID,
		&score.Factors.Velocity, &score.Factors.Geographic, &score.Factors.Behavioral,
		&score.Factors.Profile, &score.Factors.Amount, &score.Factors.Temporal,
		&score.CompositeScore, &level, &score.Confidence, &score.AnalyzedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	score.RiskLevel = domain.RiskLevel(level)
	return &score, nil
}

// UpsertSegmentation stores the latest segmentation for a customer.
func (r *SQLRepository) UpsertSegmentation(ctx context.Context, tenantID string, seg *domain.Segmentation) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO segmentations (
			customer_id, tenant_id, customer_segment, value_tier,
			frequency_score, monetary_score,
			activity_score, diversity_score, profile_completeness,
			is_high_value, is_frequent_buyer, is_high_risk, analyzed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, customer_id) DO UPDATE SET
			customer_segment = excluded.customer_segment,
			value_tier = excluded.value_tier,
			frequency_score = excluded.frequency_score,
			monetary_score = excluded.monetary_score,
			activity_score = excluded.activity_score,
			diversity_score = excluded.diversity_score,
			profile_completeness = excluded.profile_completeness,
			is_high_value = excluded.is_high_value,
			is_frequent_buyer = excluded.is_frequent_buyer,
			is_high_risk = excluded.is_high_risk,
			analyzed_at = excluded.analyzed_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		seg.CustomerID, tenantID, string(seg.CustomerSegment), seg.ValueTier,
		seg.FrequencyScore, seg.MonetaryScore,
		seg.ActivityScore, seg.DiversityScore, seg.ProfileCompleteness,
		boolToInt(seg.IsHighValue), boolToInt(seg.IsFrequentBuyer), boolToInt(seg.IsHighRisk),
		seg.AnalyzedAt,
	)
	return err
}

// GetSegmentation retrieves the latest segmentation for a customer.
func (r *SQLRepository) GetSegmentation(ctx context.Context, tenantID string, customerID string) (*domain.Segmentation, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT customer_id, customer_segment, value_tier,
			   frequency_score, monetary_score,
			   activity_score, diversity_score, profile_completeness,
			   is_high_value, is_frequent_buyer, is_high_risk, analyzed_at
		FROM segmentations
		WHERE tenant_id = ? AND customer_id = ?
	`

	var seg domain.Segmentation
	var segment string
	var highValue, frequent, highRisk int

	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, customerID).Scan(
		&seg.CustomerID, &segment, &seg.ValueTier,
		&seg.FrequencyScore, &seg.MonetaryScore,
		&seg.ActivityScore, &seg.DiversityScore, &seg.ProfileCompleteness,
		&highValue, &frequent, &highRisk, &seg.AnalyzedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	seg.CustomerSegment = domain.CustomerSegment(segment)
	seg.IsHighValue = highValue == 1
	seg.IsFrequentBuyer = frequent == 1
	seg.IsHighRisk = highRisk == 1
	return &seg, nil
}

// UpsertAction stores the latest recommended action for a customer.
func (r *SQLRepository) UpsertAction(ctx context.Context, tenantID string, action *domain.Action) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO actions (
			customer_id, tenant_id, action_required,
			investigation_priority, primary_risk_factor, analyzed_at
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, customer_id) DO UPDATE SET
			action_required = excluded.action_required,
			investigation_priority = excluded.investigation_priority,
			primary_risk_factor = excluded.primary_risk_factor,
			analyzed_at = excluded.analyzed_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		action.CustomerID, tenantID, action.ActionRequired,
		action.InvestigationPriority, action.PrimaryRiskFactor, action.AnalyzedAt,
	)
	return err
}

// GetAction retrieves the latest recommended action for a customer.
func (r *SQLRepository) GetAction(ctx context.Context, tenantID string, customerID string) (*domain.Action, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT customer_id, action_required, investigation_priority, primary_risk_factor, analyzed_at
		FROM actions
		WHERE tenant_id = ? AND customer_id = ?
	`

	var action domain.Action
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, customerID).Scan(
		&action.CustomerID, &action.ActionRequired,
		&action.InvestigationPriority, &action.PrimaryRiskFactor, &action.AnalyzedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &action, nil
}

// ReplaceIndicators swaps a customer's indicator set atomically.
func (r *SQLRepository) ReplaceIndicators(ctx context.Context, tenantID string, customerID string, indicators []domain.FraudIndicator) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	del := `DELETE FROM fraud_indicators WHERE tenant_id = ? AND customer_id = ?`
	if _, err := dbTx.ExecContext(ctx, r.rebind(del), tenantID, customerID); err != nil {
		return err
	}

	ins := `
		INSERT INTO fraud_indicators (
			tenant_id, customer_id, indicator_type, severity,
			confidence, description, contributing_factors
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for _, ind := range indicators {
		factors, _ := json.Marshal(ind.ContributingFactors)
		if _, err := dbTx.ExecContext(ctx, r.rebind(ins),
			tenantID, customerID, ind.IndicatorType, ind.Severity,
			ind.Confidence, ind.Description, string(factors),
		); err != nil {
			return err
		}
	}

	return dbTx.Commit()
}

// ListIndicators retrieves the current indicators for a customer.
func (r *SQLRepository) ListIndicators(ctx context.Context, tenantID string, customerID string) ([]domain.FraudIndicator, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT customer_id, indicator_type, severity, confidence, description, contributing_factors
		FROM fraud_indicators
		WHERE tenant_id = ? AND customer_id = ?
		ORDER BY indicator_type
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indicators []domain.FraudIndicator
	for rows.Next() {
		var ind domain.FraudIndicator
		var factors string

		if err := rows.Scan(
			&ind.CustomerID, &ind.IndicatorType, &ind.Severity,
			&ind.Confidence, &ind.Description, &factors,
		); err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(factors), &ind.ContributingFactors)
		indicators = append(indicators, ind)
	}

	return indicators, rows.Err()
}

// SaveAlert stores a fraud alert with tenant isolation.
func (r *SQLRepository) SaveAlert(ctx context.Context, tenantID string, alert *domain.FraudAlert) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	indicators, _ := json.Marshal(alert.PrimaryIndicators)

	query := `
		INSERT INTO fraud_alerts (
			alert_id, tenant_id, customer_id, customer_name,
			risk_level, risk_score, primary_indicators,
			recommended_action, investigation_priority, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, alert_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		alert.AlertID, tenantID, alert.CustomerID, alert.CustomerName,
		string(alert.RiskLevel), alert.RiskScore, string(indicators),
		alert.RecommendedAction, alert.InvestigationPriority, alert.Timestamp,
	)
	return err
}

// ListAlerts retrieves alerts raised since a point in time, newest first.
func (r *SQLRepository) ListAlerts(ctx context.Context, tenantID string, since time.Time) ([]*domain.FraudAlert, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT alert_id, customer_id, customer_name,
			   risk_level, risk_score, primary_indicators,
			   recommended_action, investigation_priority, timestamp
		FROM fraud_alerts
		WHERE tenant_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*domain.FraudAlert
	for rows.Next() {
		var alert domain.FraudAlert
		var level, indicators string

		if err := rows.Scan(
			&alert.AlertID, &alert.CustomerID, &alert.CustomerName,
			&level, &alert.RiskScore, &indicators,
			&alert.RecommendedAction, &alert.InvestigationPriority, &alert.Timestamp,
		); err != nil {
			return nil, err
		}

		alert.RiskLevel = domain.RiskLevel(level)
		json.Unmarshal([]byte(indicators), &alert.PrimaryIndicators)
		alerts = append(alerts, &alert)
	}

	return alerts, rows.Err()
}

// SaveIndicatorRule stores an indicator rule with tenant isolation.
func (r *SQLRepository) SaveIndicatorRule(ctx context.Context, tenantID string, rule *domain.IndicatorRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	bands, _ := json.Marshal(rule.Bands)
	factors, _ := json.Marshal(rule.ContributingFactors)

	now := time.Now().UTC()

	query := `
		INSERT INTO indicator_rules (
			id, tenant_id, name, description, version, expression,
			bands, contributing_factors, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id, version) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			bands = excluded.bands,
			contributing_factors = excluded.contributing_factors,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Version, rule.Expression, string(bands), string(factors),
		boolToInt(rule.Enabled), now, now,
	)
	return err
}

// GetIndicatorRule retrieves the latest enabled version of a rule.
func (r *SQLRepository) GetIndicatorRule(ctx context.Context, tenantID string, ruleID string) (*domain.IndicatorRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, bands, contributing_factors, enabled
		FROM indicator_rules
		WHERE tenant_id = ? AND id = ? AND enabled = 1
		ORDER BY version DESC
		LIMIT 1
	`

	rule, err := scanIndicatorRule(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// ListIndicatorRules retrieves all active rules for a tenant.
func (r *SQLRepository) ListIndicatorRules(ctx context.Context, tenantID string) ([]*domain.IndicatorRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, version, expression, bands, contributing_factors, enabled
		FROM indicator_rules
		WHERE tenant_id = ? AND enabled = 1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.IndicatorRule
	for rows.Next() {
		rule, err := scanIndicatorRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

func scanIndicatorRule(row interface{ Scan(...any) error }) (*domain.IndicatorRule, error) {
	var rule domain.IndicatorRule
	var bands, factors string
	var enabled int

	err := row.Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &rule.Description,
		&rule.Version, &rule.Expression, &bands, &factors, &enabled,
	)
	if err != nil {
		return nil, err
	}

	rule.Enabled = enabled == 1
	if err := json.Unmarshal([]byte(bands), &rule.Bands); err != nil {
		return nil, fmt.Errorf("failed to parse rule bands: %w", err)
	}
	json.Unmarshal([]byte(factors), &rule.ContributingFactors)

	return &rule, nil
}

// DeleteIndicatorRule soft-deletes a rule by setting enabled = 0.
func (r *SQLRepository) DeleteIndicatorRule(ctx context.Context, tenantID string, ruleID string) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		UPDATE indicator_rules
		SET enabled = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), time.Now().UTC(), tenantID, ruleID)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
