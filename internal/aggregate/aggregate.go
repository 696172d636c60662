// Package aggregate derives per-customer features from transaction history.
package aggregate

import (
	"sort"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// identityFieldCount is the number of designated identity fields that make
// up profile completeness: name, email, phone, country, address.
const identityFieldCount = 5

// maxActivityScore caps the activity score.
const maxActivityScore = 100.0

// Build computes the aggregate for one customer from its full history.
// History may be empty; all derived ratios degrade to zero rather than
// dividing by zero. Inputs are never mutated.
func Build(profile *domain.CustomerProfile, history []*domain.Transaction) *domain.CustomerAggregate {
	agg := &domain.CustomerAggregate{
		CustomerID:          profile.CustomerID,
		ProfileCompleteness: Completeness(profile),
		Region:              Region(profile.Country),
	}

	if len(history) == 0 {
		return agg
	}

	orders := make(map[string]struct{})
	products := make(map[string]struct{})
	categories := make(map[string]struct{})

	first, last := history[0].Timestamp, history[0].Timestamp
	for _, tx := range history {
		orders[tx.OrderID] = struct{}{}
		products[tx.ProductID] = struct{}{}
		if tx.Category != "" {
			categories[tx.Category] = struct{}{}
		}
		agg.TotalSpent += tx.LineTotal
		agg.TotalQuantity += tx.Quantity

		if tx.Timestamp.Before(first) {
			first = tx.Timestamp
		}
		if tx.Timestamp.After(last) {
			last = tx.Timestamp
		}
	}

	agg.TotalOrders = len(orders)
	agg.TotalProducts = len(products)
	agg.UniqueCategories = len(categories)
	agg.FirstTransaction = first
	agg.LastTransaction = last

	if agg.TotalOrders > 0 {
		agg.AvgOrderValue = agg.TotalSpent / float64(agg.TotalOrders)
	}
	if agg.TotalProducts > 0 {
		agg.DiversityScore = float64(agg.UniqueCategories) / float64(agg.TotalProducts)
	}

	agg.ActivityScore = activityScore(agg.TotalOrders, agg.TotalSpent)
	agg.MaxDailyTxns, agg.AvgDailyTxns = dailyVelocity(history)

	return agg
}

// BuildAll computes aggregates for every profile, sorted by customer id for
// deterministic output. Customers with no transactions still get an
// aggregate so profile-only risk signals apply.
func BuildAll(profiles []*domain.CustomerProfile, byCustomer map[string][]*domain.Transaction) []*domain.CustomerAggregate {
	aggs := make([]*domain.CustomerAggregate, 0, len(profiles))
	for _, p := range profiles {
		aggs = append(aggs, Build(p, byCustomer[p.CustomerID]))
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].CustomerID < aggs[j].CustomerID })
	return aggs
}

// GroupByCustomer indexes transactions by customer id.
func GroupByCustomer(txs []*domain.Transaction) map[string][]*domain.Transaction {
	byCustomer := make(map[string][]*domain.Transaction)
	for _, tx := range txs {
		byCustomer[tx.CustomerID] = append(byCustomer[tx.CustomerID], tx)
	}
	return byCustomer
}

// Completeness returns the present-fraction of the five identity fields.
func Completeness(p *domain.CustomerProfile) float64 {
	present := 0
	if p.FullName() != "" {
		present++
	}
	if p.Email != "" {
		present++
	}
	if p.Phone != "" {
		present++
	}
	if p.Country != "" {
		present++
	}
	if p.Address != "" {
		present++
	}
	return float64(present) / identityFieldCount
}

func activityScore(orders int, spent float64) float64 {
	score := float64(orders)*4 + spent/100
	if score > maxActivityScore {
		return maxActivityScore
	}
	return score
}

// dailyVelocity buckets transactions by UTC calendar day and returns the
// maximum and mean per-day counts.
func dailyVelocity(history []*domain.Transaction) (maxDaily int, avgDaily float64) {
	if len(history) == 0 {
		return 0, 0
	}

	days := make(map[string]int)
	for _, tx := range history {
		days[tx.Timestamp.UTC().Format(time.DateOnly)]++
	}

	total := 0
	for _, n := range days {
		total += n
		if n > maxDaily {
			maxDaily = n
		}
	}
	return maxDaily, float64(total) / float64(len(days))
}
