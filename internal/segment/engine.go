// Package segment classifies customers into behavioral segments, value
// tiers, and population-relative quintile ranks.
package segment

import (
	"fmt"
	"sort"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Flag cutoffs, independent of the configurable tier thresholds.
const (
	highValueSpend     = 5000.0
	frequentBuyerCount = 10
)

// Engine derives segmentations for a customer population. Segments and
// tiers depend only on the individual customer; quintile scores depend on
// the whole population passed to SegmentAll.
type Engine struct {
	cfg domain.ScoringConfig
}

// NewEngine validates the configuration and returns a ready engine.
func NewEngine(cfg domain.ScoringConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("segment engine: %w", err)
	}
	return &Engine{cfg: cfg}, nil
}

// Segment classifies a customer by lifetime spend and order count. Premium
// takes precedence over regular; everyone else is new.
func (e *Engine) Segment(agg *domain.CustomerAggregate) domain.CustomerSegment {
	s := e.cfg.Segments
	switch {
	case agg.TotalSpent >= s.PremiumSpend && agg.TotalOrders >= s.PremiumOrders:
		return domain.SegmentPremium
	case agg.TotalSpent >= s.RegularSpend && agg.TotalOrders >= s.RegularOrders:
		return domain.SegmentRegular
	default:
		return domain.SegmentNew
	}
}

// ValueTier classifies a customer by lifetime spend alone.
func (e *Engine) ValueTier(agg *domain.CustomerAggregate) string {
	s := e.cfg.Segments
	switch {
	case agg.TotalSpent >= s.VIPSpend:
		return domain.TierVIP
	case agg.TotalSpent >= s.HighValueSpend:
		return domain.TierHighValue
	case agg.TotalSpent >= s.MediumValueSpend:
		return domain.TierMediumValue
	default:
		return domain.TierStandard
	}
}

// SegmentAll classifies every aggregate against the full population.
// Customers missing from risks default to a low-risk baseline. Output is
// ordered by customer id.
func (e *Engine) SegmentAll(aggregates []*domain.CustomerAggregate, risks map[string]*domain.RiskScore, at time.Time) []*domain.Segmentation {
	if len(aggregates) == 0 {
		return nil
	}

	frequency := quintiles(aggregates, func(a *domain.CustomerAggregate) float64 {
		return float64(a.TotalOrders)
	})
	monetary := quintiles(aggregates, func(a *domain.CustomerAggregate) float64 {
		return a.TotalSpent
	})

	out := make([]*domain.Segmentation, 0, len(aggregates))
	for _, agg := range aggregates {
		highRisk := false
		if rs, ok := risks[agg.CustomerID]; ok {
			highRisk = rs.RiskLevel.IsElevated()
		}

		out = append(out, &domain.Segmentation{
			CustomerID:          agg.CustomerID,
			CustomerSegment:     e.Segment(agg),
			ValueTier:           e.ValueTier(agg),
			FrequencyScore:      frequency[agg.CustomerID],
			MonetaryScore:       monetary[agg.CustomerID],
			ActivityScore:       agg.ActivityScore,
			DiversityScore:      agg.DiversityScore,
			ProfileCompleteness: agg.ProfileCompleteness,
			IsHighValue:         agg.TotalSpent > highValueSpend,
			IsFrequentBuyer:     agg.TotalOrders >= frequentBuyerCount,
			IsHighRisk:          highRisk,
			AnalyzedAt:          at,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CustomerID < out[j].CustomerID })
	return out
}

// quintiles ranks the population into buckets 1..5, 1 being the highest key
// value. Ordering is stable: ties break on customer id, and customers with
// equal keys always share the bucket of the first of them.
func quintiles(aggregates []*domain.CustomerAggregate, key func(*domain.CustomerAggregate) float64) map[string]int {
	type ranked struct {
		id  string
		key float64
	}
	pop := make([]ranked, 0, len(aggregates))
	for _, agg := range aggregates {
		pop = append(pop, ranked{id: agg.CustomerID, key: key(agg)})
	}
	sort.Slice(pop, func(i, j int) bool {
		if pop[i].key != pop[j].key {
			return pop[i].key > pop[j].key
		}
		return pop[i].id < pop[j].id
	})

	n := len(pop)
	buckets := make(map[string]int, n)
	for i, r := range pop {
		bucket := i*5/n + 1
		if i > 0 && r.key == pop[i-1].key {
			bucket = buckets[pop[i-1].id]
		}
		buckets[r.id] = bucket
	}
	return buckets
}
