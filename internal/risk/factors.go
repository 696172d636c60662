// Package risk implements the multi-dimensional fraud risk calculators and
// the composite scoring engine.
package risk

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Indicator types raised by the built-in calculators.
const (
	IndicatorHighVelocity           = "HIGH_VELOCITY"
	IndicatorBurstPattern           = "BURST_PATTERN"
	IndicatorInternationalProfile   = "INTERNATIONAL_PROFILE"
	IndicatorPaymentCountryMismatch = "PAYMENT_COUNTRY_MISMATCH"
	IndicatorNewCustomerHighSpend   = "NEW_CUSTOMER_HIGH_SPENDING"
	IndicatorUnusualDiversity       = "UNUSUAL_PRODUCT_DIVERSITY"
	IndicatorIncompleteProfile      = "INCOMPLETE_PROFILE"
	IndicatorSuspiciousEmail        = "SUSPICIOUS_EMAIL"
	IndicatorHighAverageOrder       = "HIGH_AVERAGE_ORDER"
	IndicatorRoundNumberBias        = "ROUND_NUMBER_BIAS"
	IndicatorAmountOutlier          = "AMOUNT_OUTLIER"
	IndicatorOffHoursActivity       = "OFF_HOURS_ACTIVITY"
)

// Velocity calculator tuning. A burst is burstMinTxns line items inside one
// burstWindow, and only counts for active customers: a single multi-line cart
// shares one timestamp and would trip the window otherwise.
const (
	highVelocityDaily = 5
	burstMinTxns      = 3
	burstWindow       = time.Hour
	burstMinOrders    = 10
)

// velocityRisk rises with transaction density in short time windows.
func (e *Engine) velocityRisk(agg *domain.CustomerAggregate, history []*domain.Transaction) (float64, []domain.FraudIndicator) {
	var score float64
	var indicators []domain.FraudIndicator

	if agg.MaxDailyTxns >= highVelocityDaily {
		score += 0.6
		indicators = append(indicators, domain.FraudIndicator{
			CustomerID:          agg.CustomerID,
			IndicatorType:       IndicatorHighVelocity,
			Severity:            domain.SeverityHigh,
			Confidence:          0.8,
			Description:         fmt.Sprintf("customer made %d transactions in a single day", agg.MaxDailyTxns),
			ContributingFactors: []string{"unusual_transaction_frequency"},
		})
	}

	if agg.TotalOrders >= burstMinOrders && hasBurst(history) {
		score += 0.4
		indicators = append(indicators, domain.FraudIndicator{
			CustomerID:          agg.CustomerID,
			IndicatorType:       IndicatorBurstPattern,
			Severity:            domain.SeverityMedium,
			Confidence:          0.7,
			Description:         fmt.Sprintf("%d or more transactions within %s", burstMinTxns, burstWindow),
			ContributingFactors: []string{"transaction_clustering"},
		})
	}

	return score, indicators
}

// hasBurst reports whether any burstWindow contains burstMinTxns or more
// transactions. The input slice is not modified.
func hasBurst(history []*domain.Transaction) bool {
	if len(history) < burstMinTxns {
		return false
	}

	times := make([]time.Time, len(history))
	for i, tx := range history {
		times[i] = tx.Timestamp
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	for i := 0; i+burstMinTxns-1 < len(times); i++ {
		if times[i+burstMinTxns-1].Sub(times[i]) <= burstWindow {
			return true
		}
	}
	return false
}

// geographicRisk rises when payment-instrument and profile country signals
// disagree, or when the profile sits outside the low-risk country set.
func (e *Engine) geographicRisk(agg *domain.CustomerAggregate, profile *domain.CustomerProfile) (float64, []domain.FraudIndicator) {
	var score float64
	var indicators []domain.FraudIndicator

	if code := ISOCode(profile.Country); code != "" && profile.IBANCountry != "" &&
		!strings.EqualFold(profile.IBANCountry, code) {
		score += 0.5
		indicators = append(indicators, domain.FraudIndicator{
			CustomerID:          agg.CustomerID,
			IndicatorType:       IndicatorPaymentCountryMismatch,
			Severity:            domain.SeverityHigh,
			Confidence:          0.9,
			Description:         fmt.Sprintf("payment instrument country %s disagrees with profile country %s", profile.IBANCountry, profile.Country),
			ContributingFactors: []string{"geographic_anomaly"},
		})
	}

	if profile.Country != "" && !e.lowRisk[profile.Country] {
		score += 0.3
		indicators = append(indicators, domain.FraudIndicator{
			CustomerID:          agg.CustomerID,
			IndicatorType:       IndicatorInternationalProfile,
			Severity:            domain.SeverityLow,
			Confidence:          0.6,
			Description:         fmt.Sprintf("customer located in %s", profile.Country),
			ContributingFactors: []string{"geographic_location"},
		})
	}

	return score, indicators
}

// behavioralRisk rises on deviation from established purchase patterns.
func (e *Engine) behavioralRisk(agg *domain.CustomerAggregate) (float64, []domain.FraudIndicator) {
	var score float64
	var indicators []domain.FraudIndicator

	seg := e.cfg.Segments
	isNew := agg.TotalSpent < seg.RegularSpend || agg.TotalOrders < seg.RegularOrders

	if isNew && agg.TotalSpent > seg.PremiumSpend {
		score += 0.5
		indicators = append(indicators, domain.FraudIndicator{
			CustomerID:          agg.CustomerID,
			IndicatorType:       IndicatorNewCustomerHighSpend,
			Severity:            domain.SeverityMedium,
			Confidence:          0.7,
			Description:         fmt.Sprintf("new customer with high spending: $%.2f", agg.TotalSpent),
			ContributingFactors: []string{"unusual_behavior_pattern"},
		})
	}

	if agg.DiversityScore > 0.9 && agg.TotalOrders >= 5 {
		score += 0.3
		indicators = append(indicators, domain.FraudIndicator{
			CustomerID:          agg.CustomerID,
			IndicatorType:       IndicatorUnusualDiversity,
			Severity:            domain.SeverityLow,
			Confidence:          0.6,
			Description:         "unusually diverse product purchase pattern",
			ContributingFactors: []string{"behavioral_anomaly"},
		})
	}

	return score, indicators
}

var disposableEmailMarkers = []string{"temp", "disposable", "mailinator", "throwaway"}

// profileRisk is the inverse of profile completeness, plus an email signal.
func (e *Engine) profileRisk(agg *domain.CustomerAggregate, profile *domain.CustomerProfile) (float64, []domain.FraudIndicator) {
	score := (1 - agg.ProfileCompleteness) * 0.8
	var indicators []domain.FraudIndicator

	if agg.ProfileCompleteness < 0.5 {
		indicators = append(indicators, domain.FraudIndicator{
			CustomerID:          agg.CustomerID,
			IndicatorType:       IndicatorIncompleteProfile,
			Severity:            domain.SeverityMedium,
			Confidence:          0.8,
			Description:         fmt.Sprintf("profile only %.1f%% complete", agg.ProfileCompleteness*100),
			ContributingFactors: []string{"missing_information"},
		})
	}

	email := strings.ToLower(profile.Email)
	for _, marker := range disposableEmailMarkers {
		if email != "" && strings.Contains(email, marker) {
			score += 0.6
			indicators = append(indicators, domain.FraudIndicator{
				CustomerID:          agg.CustomerID,
				IndicatorType:       IndicatorSuspiciousEmail,
				Severity:            domain.SeverityHigh,
				Confidence:          0.9,
				Description:         "potentially disposable email address",
				ContributingFactors: []string{"email_risk"},
			})
			break
		}
	}

	return score, indicators
}

// amountRisk rises for statistically unusual transaction amounts.
func (e *Engine) amountRisk(agg *domain.CustomerAggregate, history []*domain.Transaction) (float64, []domain.FraudIndicator) {
	var score float64
	var indicators []domain.FraudIndicator

	if agg.AvgOrderValue > 1000 {
		score += 0.4
		indicators = append(indicators, domain.FraudIndicator{
			CustomerID:          agg.CustomerID,
			IndicatorType:       IndicatorHighAverageOrder,
			Severity:            domain.SeverityMedium,
			Confidence:          0.7,
			Description:         fmt.Sprintf("high average order value: $%.2f", agg.AvgOrderValue),
			ContributingFactors: []string{"amount_anomaly"},
		})
	}

	if agg.TotalSpent > 0 && math.Mod(agg.TotalSpent, 100) == 0 {
		score += 0.2
		indicators = append(indicators, domain.FraudIndicator{
			CustomerID:          agg.CustomerID,
			IndicatorType:       IndicatorRoundNumberBias,
			Severity:            domain.SeverityLow,
			Confidence:          0.5,
			Description:         "transaction amounts show round number pattern",
			ContributingFactors: []string{"amount_pattern"},
		})
	}

	if z, outlier := maxLineZScore(history, e.cfg.AmountZScoreBound); outlier {
		score += 0.4
		indicators = append(indicators, domain.FraudIndicator{
			CustomerID:          agg.CustomerID,
			IndicatorType:       IndicatorAmountOutlier,
			Severity:            domain.SeverityHigh,
			Confidence:          0.8,
			Description:         fmt.Sprintf("line total deviates %.1f standard deviations from customer baseline", z),
			ContributingFactors: []string{"amount_anomaly", "statistical_outlier"},
		})
	}

	return score, indicators
}

// maxLineZScore computes the largest absolute z-score of any line total
// against the customer's own history. Fewer than three lines or zero
// variance yields no outlier (neutral).
func maxLineZScore(history []*domain.Transaction, bound float64) (float64, bool) {
	if len(history) < 3 {
		return 0, false
	}

	var sum float64
	for _, tx := range history {
		sum += tx.LineTotal
	}
	mean := sum / float64(len(history))

	var variance float64
	for _, tx := range history {
		d := tx.LineTotal - mean
		variance += d * d
	}
	variance /= float64(len(history))
	if variance == 0 {
		return 0, false
	}
	std := math.Sqrt(variance)

	var maxZ float64
	for _, tx := range history {
		if z := math.Abs(tx.LineTotal-mean) / std; z > maxZ {
			maxZ = z
		}
	}
	return maxZ, maxZ > bound
}

// Off-hours is the 00:00-06:00 UTC window.
const offHoursEnd = 6

// temporalRisk rises for orders at atypical hours.
func (e *Engine) temporalRisk(agg *domain.CustomerAggregate, history []*domain.Transaction) (float64, []domain.FraudIndicator) {
	if len(history) == 0 {
		return 0, nil
	}

	offHours := 0
	for _, tx := range history {
		if tx.Timestamp.UTC().Hour() < offHoursEnd {
			offHours++
		}
	}
	share := float64(offHours) / float64(len(history))

	var score float64
	switch {
	case share >= 0.5:
		score = 0.3
	case share >= 0.25:
		score = 0.15
	default:
		return 0, nil
	}

	return score, []domain.FraudIndicator{{
		CustomerID:          agg.CustomerID,
		IndicatorType:       IndicatorOffHoursActivity,
		Severity:            domain.SeverityLow,
		Confidence:          0.6,
		Description:         fmt.Sprintf("%.0f%% of transactions occur between 00:00 and 06:00", share*100),
		ContributingFactors: []string{"temporal_anomaly"},
	}}
}
