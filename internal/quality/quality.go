// Package quality validates snapshot data before scoring. Checks fall into
// two severities: critical findings make the snapshot unfit to score,
// warnings are reported but do not block a run.
package quality

import (
	"fmt"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Check severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Check names.
const (
	CheckMissingCustomerID = "missing_customer_id"
	CheckInvalidLineValues = "invalid_line_values"
	CheckEmailCompleteness = "email_completeness"
	CheckHighAmountShare   = "high_amount_share"
	CheckOrphanLines       = "orphan_transactions"
)

// Tuning for the warning checks.
const (
	missingEmailWarnShare = 0.20
	highAmountThreshold   = 10000.0
	highAmountWarnShare   = 0.05
)

// Finding is one failed check.
type Finding struct {
	Check    string `json:"check"`
	Severity string `json:"severity"`
	Count    int    `json:"count"`
	Detail   string `json:"detail"`
}

// Report is the outcome of validating one snapshot.
type Report struct {
	Profiles     int       `json:"profiles"`
	Transactions int       `json:"transactions"`
	Findings     []Finding `json:"findings,omitempty"`
}

// Passed reports whether the snapshot is fit to score.
func (r *Report) Passed() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityCritical {
			return false
		}
	}
	return true
}

// Validate runs all checks over a snapshot. Inputs are not modified.
func Validate(profiles []*domain.CustomerProfile, transactions []*domain.Transaction) *Report {
	report := &Report{
		Profiles:     len(profiles),
		Transactions: len(transactions),
	}

	known := make(map[string]bool, len(profiles))
	missingID := 0
	missingEmail := 0
	for _, p := range profiles {
		if p.CustomerID == "" {
			missingID++
			continue
		}
		known[p.CustomerID] = true
		if p.Email == "" {
			missingEmail++
		}
	}

	if missingID > 0 {
		report.Findings = append(report.Findings, Finding{
			Check:    CheckMissingCustomerID,
			Severity: SeverityCritical,
			Count:    missingID,
			Detail:   fmt.Sprintf("%d profiles have no customer id", missingID),
		})
	}

	if len(profiles) > 0 {
		if share := float64(missingEmail) / float64(len(profiles)); share >= missingEmailWarnShare {
			report.Findings = append(report.Findings, Finding{
				Check:    CheckEmailCompleteness,
				Severity: SeverityWarning,
				Count:    missingEmail,
				Detail:   fmt.Sprintf("%.0f%% of profiles lack an email address", share*100),
			})
		}
	}

	invalid := 0
	orphans := 0
	highAmount := 0
	for _, tx := range transactions {
		if tx.Quantity <= 0 || tx.Price <= 0 {
			invalid++
		}
		if tx.CustomerID == "" || !known[tx.CustomerID] {
			orphans++
		}
		if tx.LineTotal > highAmountThreshold {
			highAmount++
		}
	}

	if invalid > 0 {
		report.Findings = append(report.Findings, Finding{
			Check:    CheckInvalidLineValues,
			Severity: SeverityCritical,
			Count:    invalid,
			Detail:   fmt.Sprintf("%d lines have non-positive price or quantity", invalid),
		})
	}

	if orphans > 0 {
		report.Findings = append(report.Findings, Finding{
			Check:    CheckOrphanLines,
			Severity: SeverityWarning,
			Count:    orphans,
			Detail:   fmt.Sprintf("%d lines reference unknown customers and will be skipped", orphans),
		})
	}

	if len(transactions) > 0 {
		if share := float64(highAmount) / float64(len(transactions)); share > highAmountWarnShare {
			report.Findings = append(report.Findings, Finding{
				Check:    CheckHighAmountShare,
				Severity: SeverityWarning,
				Count:    highAmount,
				Detail:   fmt.Sprintf("%.1f%% of lines exceed %.0f", share*100, highAmountThreshold),
			})
		}
	}

	return report
}
