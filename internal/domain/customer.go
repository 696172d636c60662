// Package domain defines the core interfaces and types for Kestrel.
package domain

import (
	"time"
)

// CustomerProfile is a cleaned customer record delivered by the upstream
// profile feed. The feed guarantees a unique non-empty CustomerID and a
// well-formed email; text fields arrive trimmed and normalized.
type CustomerProfile struct {
	CustomerID string `json:"customerId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Age        int    `json:"age"`

	// Address
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode"`
	Address    string `json:"address"`

	// Professional
	CompanyName string `json:"companyName,omitempty"`
	JobTitle    string `json:"jobTitle,omitempty"`
	Department  string `json:"department,omitempty"`

	// Payment instrument
	CardType    string `json:"cardType,omitempty"`
	CardLast4   string `json:"cardLast4,omitempty"`
	IBANCountry string `json:"ibanCountry,omitempty"`
}

// FullName returns the customer's display name.
func (p *CustomerProfile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// Transaction is a single cleaned order line from the transaction feed.
// The feed guarantees CustomerID references an existing profile,
// Quantity > 0 and Price > 0.
type Transaction struct {
	OrderID    string `json:"orderId"` // cart-level identifier
	CustomerID string `json:"customerId"`
	ProductID  string `json:"productId"`
	Category   string `json:"category"`

	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`    // unit price
	Discount float64 `json:"discount"` // fraction in [0,1)

	// LineTotal is price * quantity * (1 - discount), precomputed upstream.
	LineTotal float64 `json:"lineTotal"`

	Timestamp time.Time `json:"timestamp"`
}

// CustomerAggregate holds per-customer features derived from the full
// transaction history of one run. Aggregates are recomputed from scratch
// every run; there is no incremental path.
type CustomerAggregate struct {
	CustomerID string `json:"customerId"`

	TotalOrders      int     `json:"totalOrders"` // distinct order (cart) ids
	TotalSpent       float64 `json:"totalSpent"`
	AvgOrderValue    float64 `json:"avgOrderValue"`
	TotalProducts    int     `json:"totalProducts"` // distinct product ids
	TotalQuantity    int     `json:"totalQuantity"`
	UniqueCategories int     `json:"uniqueCategories"`

	// DiversityScore is UniqueCategories / TotalProducts, 0 when the
	// customer has no products.
	DiversityScore float64 `json:"diversityScore"`

	// ProfileCompleteness is the present-fraction of the five identity
	// fields (name, email, phone, country, address).
	ProfileCompleteness float64 `json:"profileCompleteness"`

	// ActivityScore is min(100, orders*4 + spent/100).
	ActivityScore float64 `json:"activityScore"`

	Region string `json:"region"`

	FirstTransaction time.Time `json:"firstTransaction,omitzero"`
	LastTransaction  time.Time `json:"lastTransaction,omitzero"`

	// Velocity features derived from transaction timestamps.
	MaxDailyTxns int     `json:"maxDailyTxns"`
	AvgDailyTxns float64 `json:"avgDailyTxns"`
}
