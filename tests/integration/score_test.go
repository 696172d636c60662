//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Kestrel risk scoring engine.
//
// These tests verify the COMPLETE scoring pipeline against a running server:
//
//	Snapshot → Quality Gate → Aggregation → Risk Factors → Segments → Decisions
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
// 1. SNAPSHOT: A set of customer profiles plus their transaction line items.
//
// 2. RISK SCORE: Six weighted factor sub-scores (velocity, geographic,
//    behavioral, profile, amount, temporal) combined into a composite in
//    [0,1], mapped to low/medium/high/critical.
//
// 3. SEGMENTATION: Behavioral segment (premium/regular/occasional), value
//    tier, and frequency/monetary quintiles per customer.
//
// 4. ACTION: The recommended treatment for a risk level, from
//    BLOCK_IMMEDIATELY down to STANDARD, with an investigation priority.
//
// 5. ALERT: Raised for high/critical customers, retrievable via GET /alerts.
//
// The server must be reachable at KESTREL_TEST_URL (default
// http://localhost:8080). Each run uses a fresh tenant so reruns don't
// collide.
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

// TestConfig holds test environment configuration
type TestConfig struct {
	BaseURL  string
	TenantID string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("KESTREL_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{
		BaseURL:  baseURL,
		TenantID: fmt.Sprintf("it-tenant-%d", time.Now().UnixNano()),
	}
}

// ============================================================================
// API Request/Response Types (matching Kestrel's API contract)
// ============================================================================

type Customer struct {
	CustomerID  string `json:"customerId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
	Country     string `json:"country"`
	Address     string `json:"address,omitempty"`
	IBANCountry string `json:"ibanCountry,omitempty"`
}

type Transaction struct {
	OrderID    string    `json:"orderId"`
	CustomerID string    `json:"customerId"`
	ProductID  string    `json:"productId"`
	Category   string    `json:"category"`
	Quantity   int       `json:"quantity"`
	Price      float64   `json:"price"`
	LineTotal  float64   `json:"lineTotal"`
	Timestamp  time.Time `json:"timestamp"`
}

// ScoreRequest is the snapshot sent to POST /score
type ScoreRequest struct {
	Profiles     []Customer    `json:"profiles"`
	Transactions []Transaction `json:"transactions"`
}

type RiskScore struct {
	CustomerID     string  `json:"customerId"`
	CompositeScore float64 `json:"compositeScore"`
	RiskLevel      string  `json:"riskLevel"`
	Confidence     float64 `json:"confidence"`
}

type Segmentation struct {
	CustomerID      string `json:"customerId"`
	CustomerSegment string `json:"customerSegment"`
	ValueTier       string `json:"valueTier"`
}

type Action struct {
	CustomerID            string `json:"customerId"`
	ActionRequired        string `json:"actionRequired"`
	InvestigationPriority int    `json:"investigationPriority"`
}

// RunResult is what POST /score returns
type RunResult struct {
	RunID         string          `json:"runId"`
	RiskScores    []RiskScore     `json:"riskScores"`
	Segmentations []Segmentation  `json:"segmentations"`
	Actions       []Action        `json:"actions"`
	Alerts        json.RawMessage `json:"alerts"`
}

// ============================================================================
// Test Helper Functions
// ============================================================================

func doJSON(t *testing.T, config TestConfig, method, path string, payload any, out any) int {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Failed to marshal request: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequest(method, config.BaseURL+path, body)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", config.TenantID)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(respBody))
		}
	}
	return resp.StatusCode
}

// testSnapshot returns one clean, one mid-tier, and one pathological customer.
func testSnapshot() ScoreRequest {
	night := time.Now().UTC().Truncate(24 * time.Hour).Add(2 * time.Hour)
	day := night.Add(12 * time.Hour)

	req := ScoreRequest{
		Profiles: []Customer{
			{
				CustomerID: "IT-CLEAN", FirstName: "Ada", LastName: "Okafor",
				Email: "ada@example.com", Phone: "+1-555-0100",
				Country: "United States", Address: "12 Elm St", IBANCountry: "US",
			},
			{
				CustomerID: "IT-MID", FirstName: "Bram", LastName: "Visser",
				Email: "bram@example.com", Phone: "+31-555-0101",
				Country: "Netherlands", Address: "Gracht 7", IBANCountry: "NL",
			},
			{
				CustomerID: "IT-HOT", FirstName: "Nova", LastName: "Krat",
				Email: "nova@tempmail.io", Country: "Nigeria", IBANCountry: "RU",
			},
		},
		Transactions: []Transaction{
			{OrderID: "IT-OK-1", CustomerID: "IT-CLEAN", ProductID: "P-1", Category: "Books", Quantity: 1, Price: 40, LineTotal: 40, Timestamp: day},
			{OrderID: "IT-OK-2", CustomerID: "IT-CLEAN", ProductID: "P-2", Category: "Books", Quantity: 1, Price: 45, LineTotal: 45, Timestamp: day.AddDate(0, 0, -5)},
			{OrderID: "IT-MID-1", CustomerID: "IT-MID", ProductID: "P-3", Category: "Home", Quantity: 2, Price: 90, LineTotal: 180, Timestamp: day.AddDate(0, 0, -2)},
			{OrderID: "IT-MID-2", CustomerID: "IT-MID", ProductID: "P-4", Category: "Sports", Quantity: 1, Price: 250, LineTotal: 250, Timestamp: day.AddDate(0, 0, -9)},
			{OrderID: "IT-MID-3", CustomerID: "IT-MID", ProductID: "P-5", Category: "Home", Quantity: 1, Price: 120, LineTotal: 120, Timestamp: day.AddDate(0, 0, -20)},
		},
	}

	categories := []string{"Electronics", "Jewelry", "Watches", "Travel", "Apparel", "Luxury", "Gaming", "Audio", "Cameras", "Furniture"}
	for i, cat := range categories {
		req.Transactions = append(req.Transactions, Transaction{
			OrderID:    "IT-HOT-" + cat,
			CustomerID: "IT-HOT",
			ProductID:  "P-HOT-" + cat,
			Category:   cat,
			Quantity:   1,
			Price:      1200,
			LineTotal:  1200,
			Timestamp:  night.Add(time.Duration(i) * 8 * time.Minute),
		})
	}
	return req
}

// ============================================================================
// Tests
// ============================================================================

func TestHealthCheck(t *testing.T) {
	config := getTestConfig()

	resp, err := http.Get(config.BaseURL + "/health")
	if err != nil {
		t.Fatalf("Server not reachable at %s: %v", config.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
}

func TestScorePipeline(t *testing.T) {
	config := getTestConfig()

	var result RunResult
	status := doJSON(t, config, http.MethodPost, "/score", testSnapshot(), &result)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}

	if result.RunID == "" {
		t.Error("Expected runId in result")
	}
	if len(result.RiskScores) != 3 {
		t.Fatalf("Expected 3 risk scores, got %d", len(result.RiskScores))
	}

	byID := make(map[string]RiskScore)
	for _, s := range result.RiskScores {
		byID[s.CustomerID] = s
	}

	t.Run("CleanCustomerScoresLow", func(t *testing.T) {
		clean := byID["IT-CLEAN"]
		if clean.RiskLevel != "low" {
			t.Errorf("Expected low risk, got %s (%.3f)", clean.RiskLevel, clean.CompositeScore)
		}
	})

	t.Run("RiskyCustomerScoresElevated", func(t *testing.T) {
		hot := byID["IT-HOT"]
		if hot.RiskLevel != "high" && hot.RiskLevel != "critical" {
			t.Errorf("Expected elevated risk, got %s (%.3f)", hot.RiskLevel, hot.CompositeScore)
		}
		if hot.Confidence <= 0.5 || hot.Confidence > 0.95 {
			t.Errorf("Confidence %.3f outside (0.5, 0.95]", hot.Confidence)
		}
	})

	t.Run("ScoresAreOrdered", func(t *testing.T) {
		if byID["IT-HOT"].CompositeScore <= byID["IT-CLEAN"].CompositeScore {
			t.Error("Risky customer should outscore clean customer")
		}
	})

	t.Run("ResultsReadableAfterRun", func(t *testing.T) {
		var score RiskScore
		if status := doJSON(t, config, http.MethodGet, "/customers/IT-HOT/risk", nil, &score); status != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", status)
		}
		if score.CustomerID != "IT-HOT" {
			t.Errorf("Expected customerId IT-HOT, got %s", score.CustomerID)
		}

		var seg Segmentation
		if status := doJSON(t, config, http.MethodGet, "/customers/IT-HOT/segmentation", nil, &seg); status != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", status)
		}
		if seg.CustomerSegment == "" || seg.ValueTier == "" {
			t.Error("Expected segment and value tier")
		}

		var action Action
		if status := doJSON(t, config, http.MethodGet, "/customers/IT-HOT/action", nil, &action); status != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", status)
		}
		if action.InvestigationPriority < 1 || action.InvestigationPriority > 5 {
			t.Errorf("Priority %d outside [1,5]", action.InvestigationPriority)
		}
	})

	t.Run("AlertRaisedForRiskyCustomer", func(t *testing.T) {
		var resp struct {
			Count  int `json:"count"`
			Alerts []struct {
				CustomerID string `json:"customerId"`
			} `json:"alerts"`
		}
		if status := doJSON(t, config, http.MethodGet, "/alerts", nil, &resp); status != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", status)
		}
		if resp.Count == 0 {
			t.Fatal("Expected at least one alert")
		}
		found := false
		for _, a := range resp.Alerts {
			if a.CustomerID == "IT-HOT" {
				found = true
			}
		}
		if !found {
			t.Error("Expected an alert for IT-HOT")
		}
	})
}

func TestCustomRuleAffectsScoring(t *testing.T) {
	config := getTestConfig()

	one := 1.0
	rule := map[string]any{
		"id":         fmt.Sprintf("it-rule-%d", time.Now().UnixNano()),
		"name":       "IT_MID_SPEND",
		"expression": "total_spent > 500.0 && total_spent < 1000.0",
		"bands": []map[string]any{
			{"lowerLimit": one, "severity": "medium", "confidence": 0.7, "reason": "Mid-band spend pattern"},
		},
		"enabled": true,
	}

	if status := doJSON(t, config, http.MethodPost, "/rules", rule, nil); status != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", status)
	}

	var result RunResult
	if status := doJSON(t, config, http.MethodPost, "/score", testSnapshot(), &result); status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}

	// IT-MID spent 550 total, so the custom rule fires for it.
	var resp struct {
		Count      int `json:"count"`
		Indicators []struct {
			IndicatorType string `json:"indicatorType"`
		} `json:"indicators"`
	}
	if status := doJSON(t, config, http.MethodGet, "/customers/IT-MID/indicators", nil, &resp); status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}

	found := false
	for _, ind := range resp.Indicators {
		if ind.IndicatorType == "IT_MID_SPEND" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected IT_MID_SPEND indicator for IT-MID, got %d indicators", resp.Count)
	}

	// Cleanup so reruns against the same server stay deterministic.
	doJSON(t, config, http.MethodDelete, "/rules/"+rule["id"].(string), nil, nil)
}

func TestAsyncRun(t *testing.T) {
	config := getTestConfig()

	// Seed via a sync run first so the tenant has stored data.
	var result RunResult
	if status := doJSON(t, config, http.MethodPost, "/score", testSnapshot(), &result); status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}

	status := doJSON(t, config, http.MethodPost, "/runs", nil, nil)
	if status != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d", status)
	}
}

func TestQualityGateRejectsBadSnapshot(t *testing.T) {
	config := getTestConfig()

	bad := ScoreRequest{
		Profiles: []Customer{{CustomerID: "", FirstName: "Ghost"}},
	}
	status := doJSON(t, config, http.MethodPost, "/score", bad, nil)
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("Expected status 422, got %d", status)
	}
}
