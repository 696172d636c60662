package aggregate

import (
	"testing"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

func tx(order, product, category string, qty int, total float64, ts time.Time) *domain.Transaction {
	return &domain.Transaction{
		OrderID:    order,
		CustomerID: "CUST-1",
		ProductID:  product,
		Category:   category,
		Quantity:   qty,
		LineTotal:  total,
		Timestamp:  ts,
	}
}

func TestBuild(t *testing.T) {
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	t.Run("full history", func(t *testing.T) {
		profile := &domain.CustomerProfile{
			CustomerID: "CUST-1",
			FirstName:  "Ada",
			LastName:   "Okafor",
			Email:      "ada@example.com",
			Phone:      "+1-555-0100",
			Country:    "United States",
			Address:    "12 Elm St",
		}
		history := []*domain.Transaction{
			tx("ORD-1", "P-1", "Books", 1, 40, base),
			tx("ORD-1", "P-2", "Music", 2, 30, base),
			tx("ORD-2", "P-1", "Books", 1, 40, base.AddDate(0, 0, 3)),
			tx("ORD-3", "P-3", "Home", 1, 90, base.AddDate(0, 0, -7)),
		}

		agg := Build(profile, history)

		if agg.TotalOrders != 3 {
			t.Errorf("TotalOrders = %d, want 3", agg.TotalOrders)
		}
		if agg.TotalProducts != 3 {
			t.Errorf("TotalProducts = %d, want 3", agg.TotalProducts)
		}
		if agg.UniqueCategories != 3 {
			t.Errorf("UniqueCategories = %d, want 3", agg.UniqueCategories)
		}
		if agg.TotalSpent != 200 {
			t.Errorf("TotalSpent = %v, want 200", agg.TotalSpent)
		}
		if agg.TotalQuantity != 5 {
			t.Errorf("TotalQuantity = %d, want 5", agg.TotalQuantity)
		}
		if want := 200.0 / 3.0; agg.AvgOrderValue != want {
			t.Errorf("AvgOrderValue = %v, want %v", agg.AvgOrderValue, want)
		}
		if agg.DiversityScore != 1.0 {
			t.Errorf("DiversityScore = %v, want 1.0", agg.DiversityScore)
		}
		if agg.ProfileCompleteness != 1.0 {
			t.Errorf("ProfileCompleteness = %v, want 1.0", agg.ProfileCompleteness)
		}
		if !agg.FirstTransaction.Equal(base.AddDate(0, 0, -7)) {
			t.Errorf("FirstTransaction = %v", agg.FirstTransaction)
		}
		if !agg.LastTransaction.Equal(base.AddDate(0, 0, 3)) {
			t.Errorf("LastTransaction = %v", agg.LastTransaction)
		}
		// Two lines on the base day, one each on the others.
		if agg.MaxDailyTxns != 2 {
			t.Errorf("MaxDailyTxns = %d, want 2", agg.MaxDailyTxns)
		}
		if want := 4.0 / 3.0; agg.AvgDailyTxns != want {
			t.Errorf("AvgDailyTxns = %v, want %v", agg.AvgDailyTxns, want)
		}
		if agg.Region != RegionNorthAmerica {
			t.Errorf("Region = %s, want %s", agg.Region, RegionNorthAmerica)
		}
	})

	t.Run("empty history keeps profile signals", func(t *testing.T) {
		profile := &domain.CustomerProfile{CustomerID: "CUST-2", Email: "x@example.com"}
		agg := Build(profile, nil)

		if agg.CustomerID != "CUST-2" {
			t.Errorf("CustomerID = %s", agg.CustomerID)
		}
		if agg.TotalOrders != 0 || agg.TotalSpent != 0 || agg.AvgOrderValue != 0 {
			t.Error("expected zero transaction-derived fields")
		}
		if want := 1.0 / 5.0; agg.ProfileCompleteness != want {
			t.Errorf("ProfileCompleteness = %v, want %v", agg.ProfileCompleteness, want)
		}
	})

	t.Run("activity score caps at 100", func(t *testing.T) {
		profile := &domain.CustomerProfile{CustomerID: "CUST-3"}
		history := make([]*domain.Transaction, 0, 30)
		for i := 0; i < 30; i++ {
			history = append(history, tx("ORD-"+string(rune('A'+i)), "P-1", "Books", 1, 500, base.AddDate(0, 0, -i)))
		}
		agg := Build(profile, history)
		if agg.ActivityScore != 100 {
			t.Errorf("ActivityScore = %v, want 100", agg.ActivityScore)
		}
	})
}

func TestBuildAll(t *testing.T) {
	profiles := []*domain.CustomerProfile{
		{CustomerID: "CUST-B"},
		{CustomerID: "CUST-A"},
	}
	byCustomer := map[string][]*domain.Transaction{
		"CUST-B": {tx("ORD-1", "P-1", "Books", 1, 50, time.Now().UTC())},
	}

	aggs := BuildAll(profiles, byCustomer)
	if len(aggs) != 2 {
		t.Fatalf("got %d aggregates, want 2", len(aggs))
	}
	if aggs[0].CustomerID != "CUST-A" || aggs[1].CustomerID != "CUST-B" {
		t.Errorf("aggregates not sorted by customer id: %s, %s", aggs[0].CustomerID, aggs[1].CustomerID)
	}
	if aggs[1].TotalSpent != 50 {
		t.Errorf("CUST-B TotalSpent = %v, want 50", aggs[1].TotalSpent)
	}
}

func TestGroupByCustomer(t *testing.T) {
	txs := []*domain.Transaction{
		{OrderID: "O1", CustomerID: "A"},
		{OrderID: "O2", CustomerID: "B"},
		{OrderID: "O3", CustomerID: "A"},
	}
	grouped := GroupByCustomer(txs)
	if len(grouped["A"]) != 2 || len(grouped["B"]) != 1 {
		t.Errorf("grouping wrong: A=%d B=%d", len(grouped["A"]), len(grouped["B"]))
	}
}

func TestCompleteness(t *testing.T) {
	tests := []struct {
		name    string
		profile domain.CustomerProfile
		want    float64
	}{
		{"empty", domain.CustomerProfile{}, 0},
		{"first name counts as name", domain.CustomerProfile{FirstName: "Ada"}, 0.2},
		{"email and country", domain.CustomerProfile{Email: "a@b.c", Country: "Canada"}, 0.4},
		{"all fields", domain.CustomerProfile{
			FirstName: "Ada", LastName: "Okafor", Email: "a@b.c",
			Phone: "1", Country: "Canada", Address: "x",
		}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Completeness(&tt.profile); got != tt.want {
				t.Errorf("Completeness = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegion(t *testing.T) {
	tests := []struct {
		country string
		want    string
	}{
		{"United States", RegionNorthAmerica},
		{"Germany", RegionEurope},
		{"Nigeria", RegionAfrica},
		{"Japan", RegionAsia},
		{"Australia", RegionOceania},
		{"Narnia", RegionOther},
		{"", RegionOther},
	}
	for _, tt := range tests {
		if got := Region(tt.country); got != tt.want {
			t.Errorf("Region(%q) = %s, want %s", tt.country, got, tt.want)
		}
	}
}
