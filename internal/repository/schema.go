package repository

// Schema definitions for the Kestrel database.
// Compatible with both SQLite and PostgreSQL.

const schemaCustomers = `
CREATE TABLE IF NOT EXISTS customers (
    customer_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    age INTEGER NOT NULL DEFAULT 0,
    city TEXT NOT NULL DEFAULT '',
    state TEXT NOT NULL DEFAULT '',
    country TEXT NOT NULL DEFAULT '',
    postal_code TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL DEFAULT '',
    company_name TEXT NOT NULL DEFAULT '',
    job_title TEXT NOT NULL DEFAULT '',
    department TEXT NOT NULL DEFAULT '',
    card_type TEXT NOT NULL DEFAULT '',
    card_last4 TEXT NOT NULL DEFAULT '',
    iban_country TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (tenant_id, customer_id)
);

CREATE INDEX IF NOT EXISTS idx_customers_tenant ON customers(tenant_id);
CREATE INDEX IF NOT EXISTS idx_customers_country ON customers(tenant_id, country);
`

// Snapshot ingestion is idempotent: order lines are keyed by
// (tenant, order, product) and re-ingestion overwrites in place.
const schemaTransactions = `
CREATE TABLE IF NOT EXISTS transactions (
    tenant_id TEXT NOT NULL,
    order_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    product_id TEXT NOT NULL,
    category TEXT NOT NULL DEFAULT '',
    quantity INTEGER NOT NULL,
    price REAL NOT NULL,
    discount REAL NOT NULL DEFAULT 0,
    line_total REAL NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, order_id, product_id)
);

CREATE INDEX IF NOT EXISTS idx_transactions_customer ON transactions(tenant_id, customer_id);
CREATE INDEX IF NOT EXISTS idx_transactions_timestamp ON transactions(tenant_id, timestamp);
`

const schemaRiskScores = `
CREATE TABLE IF NOT EXISTS risk_scores (
    customer_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    velocity_risk REAL NOT NULL,
    geographic_risk REAL NOT NULL,
    behavioral_risk REAL NOT NULL,
    profile_risk REAL NOT NULL,
    amount_risk REAL NOT NULL,
    temporal_risk REAL NOT NULL,
    composite_score REAL NOT NULL,
    risk_level TEXT NOT NULL,
    confidence REAL NOT NULL,
    analyzed_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, customer_id)
);

CREATE INDEX IF NOT EXISTS idx_risk_scores_level ON risk_scores(tenant_id, risk_level);
`

const schemaSegmentations = `
CREATE TABLE IF NOT EXISTS segmentations (
    customer_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    customer_segment TEXT NOT NULL,
    value_tier TEXT NOT NULL,
    frequency_score INTEGER NOT NULL,
    monetary_score INTEGER NOT NULL,
    activity_score REAL NOT NULL,
    diversity_score REAL NOT NULL,
    profile_completeness REAL NOT NULL,
    is_high_value INTEGER NOT NULL DEFAULT 0,
    is_frequent_buyer INTEGER NOT NULL DEFAULT 0,
    is_high_risk INTEGER NOT NULL DEFAULT 0,
    analyzed_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, customer_id)
);

CREATE INDEX IF NOT EXISTS idx_segmentations_segment ON segmentations(tenant_id, customer_segment);
`

const schemaActions = `
CREATE TABLE IF NOT EXISTS actions (
    customer_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    action_required TEXT NOT NULL,
    investigation_priority INTEGER NOT NULL,
    primary_risk_factor TEXT NOT NULL,
    analyzed_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, customer_id)
);

CREATE INDEX IF NOT EXISTS idx_actions_priority ON actions(tenant_id, investigation_priority);
`

const schemaFraudIndicators = `
CREATE TABLE IF NOT EXISTS fraud_indicators (
    tenant_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    indicator_type TEXT NOT NULL,
    severity TEXT NOT NULL,
    confidence REAL NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    contributing_factors TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_indicators_customer ON fraud_indicators(tenant_id, customer_id);
CREATE INDEX IF NOT EXISTS idx_indicators_type ON fraud_indicators(tenant_id, indicator_type);
`

const schemaFraudAlerts = `
CREATE TABLE IF NOT EXISTS fraud_alerts (
    alert_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    customer_id TEXT NOT NULL,
    customer_name TEXT NOT NULL DEFAULT '',
    risk_level TEXT NOT NULL,
    risk_score REAL NOT NULL,
    primary_indicators TEXT NOT NULL DEFAULT '[]',
    recommended_action TEXT NOT NULL,
    investigation_priority INTEGER NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, alert_id)
);

CREATE INDEX IF NOT EXISTS idx_alerts_customer ON fraud_alerts(tenant_id, customer_id);
CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON fraud_alerts(tenant_id, timestamp);
`

const schemaIndicatorRules = `
CREATE TABLE IF NOT EXISTS indicator_rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    version TEXT NOT NULL,
    expression TEXT NOT NULL,
    bands TEXT NOT NULL,
    contributing_factors TEXT NOT NULL DEFAULT '[]',
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id, version)
);

CREATE INDEX IF NOT EXISTS idx_indicator_rules_tenant ON indicator_rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_indicator_rules_enabled ON indicator_rules(tenant_id, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaCustomers,
		schemaTransactions,
		schemaRiskScores,
		schemaSegmentations,
		schemaActions,
		schemaFraudIndicators,
		schemaFraudAlerts,
		schemaIndicatorRules,
	}
}
