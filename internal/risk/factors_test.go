package risk

import (
	"log/slog"
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(domain.DefaultScoringConfig(), slog.Default())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func txAt(ts time.Time, total float64) *domain.Transaction {
	return &domain.Transaction{
		OrderID:    "ORD-1",
		CustomerID: "CUST-1",
		LineTotal:  total,
		Timestamp:  ts,
	}
}

func TestVelocityRisk(t *testing.T) {
	e := testEngine(t)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("quiet customer is neutral", func(t *testing.T) {
		agg := &domain.CustomerAggregate{CustomerID: "CUST-1", MaxDailyTxns: 1}
		history := []*domain.Transaction{txAt(base, 50)}
		score, indicators := e.velocityRisk(agg, history)
		if score != 0 {
			t.Errorf("score = %v, want 0", score)
		}
		if len(indicators) != 0 {
			t.Errorf("got %d indicators, want 0", len(indicators))
		}
	})

	t.Run("high daily count flags", func(t *testing.T) {
		agg := &domain.CustomerAggregate{CustomerID: "CUST-1", MaxDailyTxns: 5}
		score, indicators := e.velocityRisk(agg, nil)
		if score != 0.6 {
			t.Errorf("score = %v, want 0.6", score)
		}
		if len(indicators) != 1 || indicators[0].IndicatorType != IndicatorHighVelocity {
			t.Errorf("indicators = %+v, want one HIGH_VELOCITY", indicators)
		}
	})

	t.Run("burst within one hour flags active customer", func(t *testing.T) {
		agg := &domain.CustomerAggregate{CustomerID: "CUST-1", MaxDailyTxns: 3, TotalOrders: 12}
		history := []*domain.Transaction{
			txAt(base, 50),
			txAt(base.Add(20*time.Minute), 60),
			txAt(base.Add(55*time.Minute), 70),
		}
		score, indicators := e.velocityRisk(agg, history)
		if score != 0.4 {
			t.Errorf("score = %v, want 0.4", score)
		}
		if len(indicators) != 1 || indicators[0].IndicatorType != IndicatorBurstPattern {
			t.Errorf("indicators = %+v, want one BURST_PATTERN", indicators)
		}
	})

	t.Run("single multi-line cart is no burst", func(t *testing.T) {
		agg := &domain.CustomerAggregate{CustomerID: "CUST-1", MaxDailyTxns: 3, TotalOrders: 1}
		history := []*domain.Transaction{
			txAt(base, 50),
			txAt(base, 60),
			txAt(base, 70),
		}
		score, indicators := e.velocityRisk(agg, history)
		if score != 0 {
			t.Errorf("score = %v, want 0", score)
		}
		if len(indicators) != 0 {
			t.Errorf("got %d indicators, want 0", len(indicators))
		}
	})

	t.Run("spread out transactions are no burst", func(t *testing.T) {
		agg := &domain.CustomerAggregate{CustomerID: "CUST-1", TotalOrders: 12}
		history := []*domain.Transaction{
			txAt(base, 50),
			txAt(base.Add(2*time.Hour), 60),
			txAt(base.Add(4*time.Hour), 70),
		}
		score, _ := e.velocityRisk(agg, history)
		if score != 0 {
			t.Errorf("score = %v, want 0", score)
		}
	})

	t.Run("unordered history still detects burst", func(t *testing.T) {
		history := []*domain.Transaction{
			txAt(base.Add(55*time.Minute), 70),
			txAt(base, 50),
			txAt(base.Add(20*time.Minute), 60),
		}
		if !hasBurst(history) {
			t.Error("hasBurst = false, want true")
		}
	})
}

func TestGeographicRisk(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		name    string
		country string
		iban    string
		want    float64
	}{
		{"domestic aligned", "United States", "US", 0},
		{"international", "Nigeria", "NG", 0.3},
		{"payment mismatch domestic", "United States", "DE", 0.5},
		{"mismatch and international", "Nigeria", "RU", 0.8},
		{"unknown country is international only", "Atlantis", "", 0.3},
		{"empty country neutral", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := &domain.CustomerAggregate{CustomerID: "CUST-1"}
			profile := &domain.CustomerProfile{CustomerID: "CUST-1", Country: tt.country, IBANCountry: tt.iban}
			score, _ := e.geographicRisk(agg, profile)
			if score != tt.want {
				t.Errorf("score = %v, want %v", score, tt.want)
			}
		})
	}
}

func TestBehavioralRisk(t *testing.T) {
	e := testEngine(t)

	t.Run("new customer high spend flags", func(t *testing.T) {
		agg := &domain.CustomerAggregate{CustomerID: "CUST-1", TotalOrders: 1, TotalSpent: 2500}
		score, indicators := e.behavioralRisk(agg)
		if score != 0.5 {
			t.Errorf("score = %v, want 0.5", score)
		}
		if len(indicators) != 1 || indicators[0].IndicatorType != IndicatorNewCustomerHighSpend {
			t.Errorf("indicators = %+v, want one NEW_CUSTOMER_HIGH_SPENDING", indicators)
		}
	})

	t.Run("established high spender is neutral", func(t *testing.T) {
		agg := &domain.CustomerAggregate{CustomerID: "CUST-1", TotalOrders: 8, TotalSpent: 2500}
		score, _ := e.behavioralRisk(agg)
		if score != 0 {
			t.Errorf("score = %v, want 0", score)
		}
	})

	t.Run("extreme diversity flags", func(t *testing.T) {
		agg := &domain.CustomerAggregate{
			CustomerID: "CUST-1", TotalOrders: 6, TotalSpent: 800, DiversityScore: 0.95,
		}
		score, indicators := e.behavioralRisk(agg)
		if score != 0.3 {
			t.Errorf("score = %v, want 0.3", score)
		}
		if len(indicators) != 1 || indicators[0].IndicatorType != IndicatorUnusualDiversity {
			t.Errorf("indicators = %+v, want one UNUSUAL_PRODUCT_DIVERSITY", indicators)
		}
	})

	t.Run("diverse but few orders is neutral", func(t *testing.T) {
		agg := &domain.CustomerAggregate{
			CustomerID: "CUST-1", TotalOrders: 3, TotalSpent: 800, DiversityScore: 1.0,
		}
		score, _ := e.behavioralRisk(agg)
		if score != 0 {
			t.Errorf("score = %v, want 0", score)
		}
	})
}

func TestProfileRisk(t *testing.T) {
	e := testEngine(t)

	t.Run("complete profile is neutral", func(t *testing.T) {
		agg := &domain.CustomerAggregate{CustomerID: "CUST-1", ProfileCompleteness: 1.0}
		profile := &domain.CustomerProfile{Email: "alice@example.com"}
		score, indicators := e.profileRisk(agg, profile)
		if score != 0 {
			t.Errorf("score = %v, want 0", score)
		}
		if len(indicators) != 0 {
			t.Errorf("got %d indicators, want 0", len(indicators))
		}
	})

	t.Run("sparse profile flags", func(t *testing.T) {
		agg := &domain.CustomerAggregate{CustomerID: "CUST-1", ProfileCompleteness: 0.2}
		profile := &domain.CustomerProfile{Email: "bob@example.com"}
		score, indicators := e.profileRisk(agg, profile)
		want := (1 - 0.2) * 0.8
		if diff := score - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("score = %v, want %v", score, want)
		}
		if len(indicators) != 1 || indicators[0].IndicatorType != IndicatorIncompleteProfile {
			t.Errorf("indicators = %+v, want one INCOMPLETE_PROFILE", indicators)
		}
	})

	t.Run("disposable email flags", func(t *testing.T) {
		agg := &domain.CustomerAggregate{CustomerID: "CUST-1", ProfileCompleteness: 1.0}
		profile := &domain.CustomerProfile{Email: "eve@tempmail.io"}
		score, indicators := e.profileRisk(agg, profile)
		if score != 0.6 {
			t.Errorf("score = %v, want 0.6", score)
		}
		if len(indicators) != 1 || indicators[0].IndicatorType != IndicatorSuspiciousEmail {
			t.Errorf("indicators = %+v, want one SUSPICIOUS_EMAIL", indicators)
		}
	})
}

func TestAmountRisk(t *testing.T) {
	e := testEngine(t)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("high average order flags", func(t *testing.T) {
		agg := &domain.CustomerAggregate{CustomerID: "CUST-1", AvgOrderValue: 1500, TotalSpent: 4501}
		score, _ := e.amountRisk(agg, nil)
		if score != 0.4 {
			t.Errorf("score = %v, want 0.4", score)
		}
	})

	t.Run("round total flags", func(t *testing.T) {
		agg := &domain.CustomerAggregate{CustomerID: "CUST-1", AvgOrderValue: 100, TotalSpent: 500}
		score, indicators := e.amountRisk(agg, nil)
		if score != 0.2 {
			t.Errorf("score = %v, want 0.2", score)
		}
		if len(indicators) != 1 || indicators[0].IndicatorType != IndicatorRoundNumberBias {
			t.Errorf("indicators = %+v, want one ROUND_NUMBER_BIAS", indicators)
		}
	})

	t.Run("statistical outlier flags", func(t *testing.T) {
		agg := &domain.CustomerAggregate{CustomerID: "CUST-1", AvgOrderValue: 50, TotalSpent: 5151}
		history := []*domain.Transaction{
			txAt(base, 50), txAt(base, 51), txAt(base, 49), txAt(base, 50),
			txAt(base, 52), txAt(base, 48), txAt(base, 51), txAt(base, 49),
			txAt(base, 50), txAt(base, 51), txAt(base, 5000),
		}
		_, indicators := e.amountRisk(agg, history)
		found := false
		for _, ind := range indicators {
			if ind.IndicatorType == IndicatorAmountOutlier {
				found = true
			}
		}
		if !found {
			t.Errorf("indicators = %+v, want AMOUNT_OUTLIER", indicators)
		}
	})

	t.Run("short history has no outlier", func(t *testing.T) {
		history := []*domain.Transaction{txAt(base, 50), txAt(base, 5000)}
		if _, outlier := maxLineZScore(history, e.cfg.AmountZScoreBound); outlier {
			t.Error("outlier = true for two-line history, want false")
		}
	})

	t.Run("identical amounts have no outlier", func(t *testing.T) {
		history := []*domain.Transaction{txAt(base, 50), txAt(base, 50), txAt(base, 50)}
		if _, outlier := maxLineZScore(history, e.cfg.AmountZScoreBound); outlier {
			t.Error("outlier = true for zero variance, want false")
		}
	})
}

func TestTemporalRisk(t *testing.T) {
	e := testEngine(t)
	night := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	day := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	agg := &domain.CustomerAggregate{CustomerID: "CUST-1"}

	t.Run("daytime shopper is neutral", func(t *testing.T) {
		history := []*domain.Transaction{txAt(day, 50), txAt(day, 60)}
		score, _ := e.temporalRisk(agg, history)
		if score != 0 {
			t.Errorf("score = %v, want 0", score)
		}
	})

	t.Run("mostly off-hours scores high", func(t *testing.T) {
		history := []*domain.Transaction{txAt(night, 50), txAt(night, 60), txAt(day, 70)}
		score, indicators := e.temporalRisk(agg, history)
		if score != 0.3 {
			t.Errorf("score = %v, want 0.3", score)
		}
		if len(indicators) != 1 || indicators[0].IndicatorType != IndicatorOffHoursActivity {
			t.Errorf("indicators = %+v, want one OFF_HOURS_ACTIVITY", indicators)
		}
	})

	t.Run("quarter off-hours scores low", func(t *testing.T) {
		history := []*domain.Transaction{txAt(night, 50), txAt(day, 60), txAt(day, 70), txAt(day, 80)}
		score, _ := e.temporalRisk(agg, history)
		if score != 0.15 {
			t.Errorf("score = %v, want 0.15", score)
		}
	})

	t.Run("empty history is neutral", func(t *testing.T) {
		score, indicators := e.temporalRisk(agg, nil)
		if score != 0 || indicators != nil {
			t.Errorf("score = %v indicators = %v, want 0 and nil", score, indicators)
		}
	})
}
