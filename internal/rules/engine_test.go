package rules

import (
	"testing"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(4)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func boolRule(id, name, expr string) *domain.IndicatorRule {
	return &domain.IndicatorRule{
		ID:         id,
		Name:       name,
		Expression: expr,
		Bands: []domain.SeverityBand{
			{LowerLimit: limit(1), Severity: domain.SeverityMedium, Confidence: 0.7, Reason: name + " matched"},
		},
		Enabled: true,
	}
}

func TestLoadRule(t *testing.T) {
	e := newTestEngine(t)

	t.Run("valid rule loads", func(t *testing.T) {
		if err := e.LoadRule(boolRule("r1", "BIG_SPENDER", `total_spent > 1000.0`)); err != nil {
			t.Fatalf("LoadRule: %v", err)
		}
		if e.RulesCount() != 1 {
			t.Errorf("RulesCount = %d, want 1", e.RulesCount())
		}
	})

	t.Run("syntax error rejected", func(t *testing.T) {
		err := e.LoadRule(boolRule("r2", "BAD", `total_spent >`))
		if err == nil {
			t.Error("LoadRule accepted invalid expression")
		}
	})

	t.Run("unknown variable rejected", func(t *testing.T) {
		err := e.LoadRule(boolRule("r3", "BAD", `nonexistent_field > 1.0`))
		if err == nil {
			t.Error("LoadRule accepted unknown variable")
		}
	})

	t.Run("string result rejected", func(t *testing.T) {
		err := e.LoadRule(boolRule("r4", "BAD", `country`))
		if err == nil {
			t.Error("LoadRule accepted string-typed expression")
		}
	})

	t.Run("missing bands rejected", func(t *testing.T) {
		rule := boolRule("r5", "NO_BANDS", `true`)
		rule.Bands = nil
		if err := e.LoadRule(rule); err == nil {
			t.Error("LoadRule accepted rule without bands")
		}
	})

	t.Run("disabled rules skipped by LoadRules", func(t *testing.T) {
		e := newTestEngine(t)
		disabled := boolRule("r6", "OFF", `true`)
		disabled.Enabled = false
		if err := e.LoadRules([]*domain.IndicatorRule{disabled}); err != nil {
			t.Fatalf("LoadRules: %v", err)
		}
		if e.RulesCount() != 0 {
			t.Errorf("RulesCount = %d, want 0", e.RulesCount())
		}
	})
}

func TestValidateRule(t *testing.T) {
	e := newTestEngine(t)

	if err := e.ValidateRule(boolRule("v1", "OK", `max_daily_txns >= 5`)); err != nil {
		t.Errorf("ValidateRule: %v", err)
	}
	if err := e.ValidateRule(nil); err == nil {
		t.Error("ValidateRule accepted nil")
	}
	if e.RulesCount() != 0 {
		t.Errorf("ValidateRule mutated the engine: count = %d", e.RulesCount())
	}
}

func TestEvaluate(t *testing.T) {
	agg := &domain.CustomerAggregate{
		CustomerID:          "CUST-1",
		TotalOrders:         12,
		TotalSpent:          15000,
		AvgOrderValue:       1250,
		TotalQuantity:       30,
		DiversityScore:      0.5,
		ProfileCompleteness: 0.8,
		ActivityScore:       98,
		MaxDailyTxns:        6,
		Region:              "EUROPE",
	}
	profile := &domain.CustomerProfile{CustomerID: "CUST-1", Country: "Germany", Age: 41}

	t.Run("matching rule raises indicator", func(t *testing.T) {
		e := newTestEngine(t)
		if err := e.LoadRule(boolRule("r1", "WHALE", `total_spent > 10000.0 && total_orders >= 10`)); err != nil {
			t.Fatalf("LoadRule: %v", err)
		}

		indicators := e.Evaluate(agg, profile)
		if len(indicators) != 1 {
			t.Fatalf("got %d indicators, want 1", len(indicators))
		}
		ind := indicators[0]
		if ind.IndicatorType != "WHALE" || ind.CustomerID != "CUST-1" {
			t.Errorf("indicator = %+v", ind)
		}
		if ind.Severity != domain.SeverityMedium || ind.Confidence != 0.7 {
			t.Errorf("severity/confidence = %s/%v", ind.Severity, ind.Confidence)
		}
	})

	t.Run("non-matching rule stays silent", func(t *testing.T) {
		e := newTestEngine(t)
		if err := e.LoadRule(boolRule("r1", "YOUNGSTER", `age < 21`)); err != nil {
			t.Fatalf("LoadRule: %v", err)
		}
		if indicators := e.Evaluate(agg, profile); len(indicators) != 0 {
			t.Errorf("got %d indicators, want 0", len(indicators))
		}
	})

	t.Run("numeric rule picks band by score", func(t *testing.T) {
		e := newTestEngine(t)
		rule := &domain.IndicatorRule{
			ID:         "r1",
			Name:       "SPEND_TIER",
			Expression: `total_spent / 1000.0`,
			Bands: []domain.SeverityBand{
				{LowerLimit: limit(1), UpperLimit: limit(10), Severity: domain.SeverityLow, Confidence: 0.5, Reason: "moderate"},
				{LowerLimit: limit(10), Severity: domain.SeverityHigh, Confidence: 0.9, Reason: "heavy"},
			},
			Enabled: true,
		}
		if err := e.LoadRule(rule); err != nil {
			t.Fatalf("LoadRule: %v", err)
		}

		indicators := e.Evaluate(agg, profile) // 15000/1000 = 15
		if len(indicators) != 1 {
			t.Fatalf("got %d indicators, want 1", len(indicators))
		}
		if indicators[0].Severity != domain.SeverityHigh || indicators[0].Description != "heavy" {
			t.Errorf("indicator = %+v, want high/heavy", indicators[0])
		}
	})

	t.Run("nil profile evaluates with zero values", func(t *testing.T) {
		e := newTestEngine(t)
		if err := e.LoadRule(boolRule("r1", "NO_COUNTRY", `country == ""`)); err != nil {
			t.Fatalf("LoadRule: %v", err)
		}
		if indicators := e.Evaluate(agg, nil); len(indicators) != 1 {
			t.Errorf("got %d indicators, want 1", len(indicators))
		}
	})

	t.Run("no rules yields nil", func(t *testing.T) {
		e := newTestEngine(t)
		if indicators := e.Evaluate(agg, profile); indicators != nil {
			t.Errorf("Evaluate = %v, want nil", indicators)
		}
	})
}

func TestMatchBand(t *testing.T) {
	bands := []domain.SeverityBand{
		{LowerLimit: limit(0.3), UpperLimit: limit(0.6), Severity: domain.SeverityLow},
		{LowerLimit: limit(0.6), UpperLimit: limit(0.8), Severity: domain.SeverityMedium},
		{LowerLimit: limit(0.8), Severity: domain.SeverityHigh},
	}

	tests := []struct {
		score float64
		want  string // "" means no match
	}{
		{0.0, ""},
		{0.29, ""},
		{0.3, domain.SeverityLow},
		{0.6, domain.SeverityMedium}, // upper exclusive, lower inclusive
		{0.79, domain.SeverityMedium},
		{0.8, domain.SeverityHigh},
		{5.0, domain.SeverityHigh}, // nil upper bound is +inf
	}

	for _, tt := range tests {
		got := matchBand(tt.score, bands)
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("matchBand(%v) = %s, want no match", tt.score, got.Severity)
		case tt.want != "" && (got == nil || got.Severity != tt.want):
			t.Errorf("matchBand(%v) = %v, want %s", tt.score, got, tt.want)
		}
	}
}

func TestReloadRules(t *testing.T) {
	e := newTestEngine(t)
	if err := e.LoadRule(boolRule("old", "OLD", `true`)); err != nil {
		t.Fatalf("LoadRule: %v", err)
	}

	t.Run("swap replaces the set", func(t *testing.T) {
		err := e.ReloadRules([]*domain.IndicatorRule{
			boolRule("new-1", "NEW1", `total_orders > 0`),
			boolRule("new-2", "NEW2", `total_spent > 0.0`),
		})
		if err != nil {
			t.Fatalf("ReloadRules: %v", err)
		}
		if e.RulesCount() != 2 {
			t.Errorf("RulesCount = %d, want 2", e.RulesCount())
		}
	})

	t.Run("compile failure keeps previous set", func(t *testing.T) {
		err := e.ReloadRules([]*domain.IndicatorRule{boolRule("bad", "BAD", `>>>`)})
		if err == nil {
			t.Fatal("ReloadRules accepted invalid rule")
		}
		if e.RulesCount() != 2 {
			t.Errorf("RulesCount = %d after failed reload, want 2", e.RulesCount())
		}
	})
}

func TestBuiltinRules(t *testing.T) {
	e := newTestEngine(t)
	if err := e.LoadRules(BuiltinRules()); err != nil {
		t.Fatalf("builtin rules failed to compile: %v", err)
	}
	if e.RulesCount() != len(BuiltinRules()) {
		t.Errorf("RulesCount = %d, want %d", e.RulesCount(), len(BuiltinRules()))
	}

	t.Run("ghost profile fires on anonymous spend", func(t *testing.T) {
		agg := &domain.CustomerAggregate{
			CustomerID:          "CUST-9",
			TotalSpent:          8000,
			ProfileCompleteness: 0.2,
		}
		indicators := e.Evaluate(agg, nil)
		found := false
		for _, ind := range indicators {
			if ind.IndicatorType == "GHOST_PROFILE_SPEND" && ind.Severity == domain.SeverityHigh {
				found = true
			}
		}
		if !found {
			t.Errorf("indicators = %+v, want GHOST_PROFILE_SPEND high", indicators)
		}
	})
}
