package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	workload    string
)

// Metrics
var (
	totalRequests uint64
	successOK     uint64 // Completed charges
	failDeclined  uint64 // Card / validation rejections
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
}

// chargeTarget pairs a user with a stored card token, the two identifiers a
// charge request requires.
type chargeTarget struct {
	UserID      string
	MethodToken string
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Duration: %s", workload, concurrency, duration)

	targets, err := fetchChargeTargets(targetURL)
	if err != nil {
		log.Fatalf("Unable to list charge targets: %v", err)
	}
	if len(targets) == 0 {
		log.Fatal("No users with payment methods found. Run the seeder first.")
	}
	log.Printf("Charging across %d users", len(targets))

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start, targets)
	}

	wg.Wait()
	printResults(time.Since(start))
}

// fetchChargeTargets lists every stored payment method and keeps the first
// card per user, matching what the service itself would charge.
func fetchChargeTargets(baseURL string) ([]chargeTarget, error) {
	resp, err := http.Get(baseURL + "/api/v1/resources/payment-methods")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var methods []struct {
		UserID       string `json:"user_id"`
		GatewayToken string `json:"gateway_payment_method_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&methods); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(methods))
	targets := make([]chargeTarget, 0, len(methods))
	for _, m := range methods {
		if m.GatewayToken == "" || seen[m.UserID] {
			continue
		}
		seen[m.UserID] = true
		targets = append(targets, chargeTarget{UserID: m.UserID, MethodToken: m.GatewayToken})
	}
	return targets, nil
}

func sendCharge(client *http.Client, baseURL string, target chargeTarget) (int, error) {
	payload := map[string]interface{}{
		"amount":            "10.00",
		"user_id":           target.UserID,
		"payment_method_id": target.MethodToken,
		"description":       "benchmark charge",
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequest("POST", baseURL+"/api/v1/create-payment-intent", bytes.NewBuffer(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", fmt.Sprintf("bench-%s-%d", target.UserID, time.Now().UnixNano()))

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

func worker(wg *sync.WaitGroup, start time.Time, targets []chargeTarget) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		code, err := sendCharge(client, targetURL, pickTarget(targets))
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch code {
		case 200:
			atomic.AddUint64(&successOK, 1)
		case 400:
			atomic.AddUint64(&failDeclined, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
	}
}

func pickTarget(targets []chargeTarget) chargeTarget {
	if workload == "hotspot" {
		// Hotspot: 90% of traffic charges the first user, hammering its
		// balance row.
		if rand.Float32() < 0.90 {
			return targets[0]
		}
	}
	return targets[rand.Intn(len(targets))]
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	ok := atomic.LoadUint64(&successOK)
	declined := atomic.LoadUint64(&failDeclined)
	fErr := atomic.LoadUint64(&failOther)

	tps := float64(total) / d.Seconds()
	declineRate := float64(declined) / float64(total) * 100

	results := map[string]interface{}{
		"workload":         workload,
		"duration_sec":     d.Seconds(),
		"total_requests":   total,
		"throughput_tps":   tps,
		"success_charges":  ok,
		"declined":         declined,
		"decline_rate_pct": declineRate,
		"errors":           fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	// Also save to file
	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
