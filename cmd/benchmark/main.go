// Benchmark tool for testing Kestrel against synthetic commerce snapshots.
//
// Usage:
//   go run cmd/benchmark/main.go -customers 10000 -url http://localhost:8080
//
// This tool:
//   1. Generates a synthetic customer snapshot with planted risky profiles
//   2. Scores it through Kestrel in batches via POST /score
//   3. Compares Kestrel's risk levels with the planted labels
//   4. Calculates precision, recall, F1-score, and throughput
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Customer is the snapshot profile format accepted by POST /score.
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

// Transaction is the snapshot line-item format accepted by POST /score.
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

// ScoreRequest is the POST /score request body.
type ScoreRequest struct {
	Profiles     []Customer    `json:"profiles"`
	Transactions []Transaction `json:"transactions"`
}

// ScoreResponse is the subset of the run result the benchmark reads.
type ScoreResponse struct {
	RunID      string `json:"runId"`
	RiskScores []struct {
		CustomerID     string  `json:"customerId"`
		CompositeScore float64 `json:"compositeScore"`
		RiskLevel      string  `json:"riskLevel"`
	} `json:"riskScores"`
}

// Batch pairs a snapshot slice with its planted labels.
type Batch struct {
	Request ScoreRequest
	Risky   map[string]bool
}

// Metrics tracks benchmark results.
type Metrics struct {
	TruePositives  int64 // Planted risky flagged as elevated
	FalsePositives int64 // Clean customer flagged as elevated
	TrueNegatives  int64 // Clean customer scored low/medium
	FalseNegatives int64 // Planted risky scored low/medium (missed!)

	TotalScored int64
	TotalRisky  int64
	TotalClean  int64
	TotalErrors int64

	ProcessingTimeMs int64
}

var categories = []string{"Electronics", "Books", "Apparel", "Jewelry", "Home", "Sports", "Beauty", "Toys", "Watches", "Travel"}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	tenantID := flag.String("tenant", "benchmark-test", "Tenant ID for requests")
	customers := flag.Int("customers", 10000, "Number of customers to generate")
	batchSize := flag.Int("batch", 500, "Customers per /score request")
	workers := flag.Int("workers", 4, "Number of concurrent workers")
	riskyRate := flag.Float64("risky", 0.05, "Fraction of customers planted as risky")
	seed := flag.Int64("seed", 42, "Random seed for snapshot generation")
	verbose := flag.Bool("verbose", false, "Print each batch result")
	flag.Parse()

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║        KESTREL BENCHMARK - Synthetic Snapshot Scoring         ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nKestrel URL: %s\n", *baseURL)
	fmt.Printf("Tenant ID:   %s\n", *tenantID)
	fmt.Printf("Customers:   %d\n", *customers)
	fmt.Printf("Batch Size:  %d\n", *batchSize)
	fmt.Printf("Workers:     %d\n", *workers)
	fmt.Printf("Risky Rate:  %.2f\n", *riskyRate)
	fmt.Printf("Seed:        %d\n", *seed)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kestrel is running:")
		fmt.Println("  go run cmd/kestrel/main.go")
		os.Exit(1)
	}
	fmt.Println("✓ Kestrel is healthy")

	fmt.Printf("\nGenerating %d synthetic customers...\n", *customers)
	batches := generateBatches(*customers, *batchSize, *riskyRate, *seed)
	fmt.Printf("✓ Generated %d batches\n", len(batches))

	fmt.Printf("\nRunning benchmark with %d workers...\n", *workers)
	startTime := time.Now()
	metrics := runBenchmark(batches, *baseURL, *tenantID, *workers, *verbose)
	duration := time.Since(startTime)

	printResults(metrics, duration)
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// generateBatches builds the synthetic snapshot. Clean customers shop in
// daylight hours from low-risk countries; planted risky customers get the
// full pathology: disposable email, payment country mismatch, thin profile,
// an off-hours burst of round high-value orders.
func generateBatches(total, batchSize int, riskyRate float64, seed int64) []Batch {
	rng := rand.New(rand.NewSource(seed))
	base := time.Now().UTC().Truncate(24 * time.Hour)

	var batches []Batch
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}

		batch := Batch{Risky: make(map[string]bool)}
		for i := start; i < end; i++ {
			id := fmt.Sprintf("BENCH-%06d", i)
			risky := rng.Float64() < riskyRate
			batch.Risky[id] = risky

			if risky {
				batch.Request.Profiles = append(batch.Request.Profiles, Customer{
					CustomerID:  id,
					FirstName:   "Risk",
					LastName:    fmt.Sprintf("Case%d", i),
					Email:       fmt.Sprintf("r%d@tempmail.io", i),
					Country:     "Nigeria",
					IBANCountry: "RU",
				})
				night := base.Add(2 * time.Hour)
				for j := 0; j < 10; j++ {
					price := 1000 + float64(rng.Intn(5))*100 // round totals
					batch.Request.Transactions = append(batch.Request.Transactions, Transaction{
						OrderID:    fmt.Sprintf("%s-ORD-%d", id, j),
						CustomerID: id,
						ProductID:  fmt.Sprintf("%s-P-%d", id, j),
						Category:   categories[j%len(categories)],
						Quantity:   1,
						Price:      price,
						LineTotal:  price,
						Timestamp:  night.Add(time.Duration(j) * 7 * time.Minute),
					})
				}
				continue
			}

			batch.Request.Profiles = append(batch.Request.Profiles, Customer{
				CustomerID:  id,
				FirstName:   "Cust",
				LastName:    fmt.Sprintf("Omer%d", i),
				Email:       fmt.Sprintf("c%d@example.com", i),
				Phone:       fmt.Sprintf("+1-555-%04d", i%10000),
				Country:     "United States",
				Address:     fmt.Sprintf("%d Main St", 1+i%900),
				IBANCountry: "US",
			})
			orders := 1 + rng.Intn(4)
			for j := 0; j < orders; j++ {
				price := 20 + rng.Float64()*180
				ts := base.AddDate(0, 0, -rng.Intn(30)).Add(time.Duration(9+rng.Intn(10)) * time.Hour)
				batch.Request.Transactions = append(batch.Request.Transactions, Transaction{
					OrderID:    fmt.Sprintf("%s-ORD-%d", id, j),
					CustomerID: id,
					ProductID:  fmt.Sprintf("%s-P-%d", id, j),
					Category:   categories[rng.Intn(len(categories))],
					Quantity:   1 + rng.Intn(3),
					Price:      price,
					LineTotal:  price,
					Timestamp:  ts,
				})
			}
		}
		batches = append(batches, batch)
	}
	return batches
}

func runBenchmark(batches []Batch, baseURL, tenantID string, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan Batch, numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 120 * time.Second}

			for batch := range work {
				start := time.Now()
				result, err := scoreBatch(client, baseURL, tenantID, batch.Request)
				elapsed := time.Since(start).Milliseconds()

				atomic.AddInt64(&metrics.ProcessingTimeMs, elapsed)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, 1)
					if verbose {
						fmt.Printf("ERROR: batch of %d -> %v\n", len(batch.Request.Profiles), err)
					}
					continue
				}

				for _, score := range result.RiskScores {
					atomic.AddInt64(&metrics.TotalScored, 1)

					actual := batch.Risky[score.CustomerID]
					if actual {
						atomic.AddInt64(&metrics.TotalRisky, 1)
					} else {
						atomic.AddInt64(&metrics.TotalClean, 1)
					}

					predicted := score.RiskLevel == "high" || score.RiskLevel == "critical"
					if predicted && actual {
						atomic.AddInt64(&metrics.TruePositives, 1)
					} else if predicted && !actual {
						atomic.AddInt64(&metrics.FalsePositives, 1)
					} else if !predicted && !actual {
						atomic.AddInt64(&metrics.TrueNegatives, 1)
					} else {
						atomic.AddInt64(&metrics.FalseNegatives, 1)
					}
				}

				if verbose {
					fmt.Printf("✓ batch of %4d scored in %5d ms (run %s)\n",
						len(batch.Request.Profiles), elapsed, result.RunID)
				}
			}
		}()
	}

	for _, batch := range batches {
		work <- batch
	}
	close(work)

	wg.Wait()

	return metrics
}

func scoreBatch(client *http.Client, baseURL, tenantID string, req ScoreRequest) (*ScoreResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequest(http.MethodPost, baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Tenant-ID", tenantID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var result ScoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Scored:   %d\n", m.TotalScored)
	fmt.Printf("   Planted Risky:  %d\n", m.TotalRisky)
	fmt.Printf("   Clean:          %d\n", m.TotalClean)
	fmt.Printf("   Batch Errors:   %d\n", m.TotalErrors)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                 Elevated     Normal")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  R  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("           C  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of elevated scores, how many were planted risky)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of planted risky, how many scored elevated)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct classifications)\n", accuracy)

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalScored > 0 {
		tps := float64(m.TotalScored) / duration.Seconds()
		fmt.Printf("   Throughput:       %.2f customers/sec\n", tps)
	}

	fmt.Printf("\n💡 INTERPRETATION\n")
	if recall >= 0.9 {
		fmt.Println("   ✅ Excellent recall - catching most planted risk")
	} else if recall >= 0.7 {
		fmt.Println("   ⚠️  Good recall - but missing some planted risk")
	} else {
		fmt.Println("   ❌ Poor recall - most planted risk is being missed!")
	}

	if precision >= 0.5 {
		fmt.Println("   ✅ Good precision - elevated scores are meaningful")
	} else {
		fmt.Println("   ⚠️  Low precision - many clean customers flagged")
	}

	fmt.Println()
}
