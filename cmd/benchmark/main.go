// Command benchmark soaks the webhook intake path with concurrent,
// intentionally duplicated gateway deliveries. Against a correct
// deployment the processed count equals the number of distinct payments
// regardless of workers or duration; everything else must come back as a
// duplicate acknowledgment.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	payments    int
)

// Metrics
var (
	totalRequests uint64
	processed     uint64 // First deliveries
	duplicates    uint64 // Deduplicated replays
	rejected      uint64 // 4xx (unknown order etc.)
	failOther     uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.IntVar(&payments, "payments", 500, "Number of seeded payments to replay against")
}

func main() {
	flag.Parse()
	log.Printf("Starting Webhook Soak | Workers: %d | Duration: %s | Payments: %d", concurrency, duration, payments)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 5 * time.Second}

	for time.Since(start) < duration {
		// Every worker replays the same small id space, so most requests
		// are duplicates of a delivery some worker already made.
		n := rand.Intn(payments)
		gatewayOrderID := fmt.Sprintf("order_seed%06d", n)
		gatewayPaymentID := fmt.Sprintf("pay_seed%06d", n)

		payload := map[string]interface{}{
			"event": "payment.captured",
			"payload": map[string]interface{}{
				"payment": map[string]interface{}{
					"entity": map[string]interface{}{
						"id":       gatewayPaymentID,
						"order_id": gatewayOrderID,
						"amount":   100000,
						"currency": "INR",
						"method":   "upi",
					},
				},
			},
		}
		body, _ := json.Marshal(payload)

		req, _ := http.NewRequest("POST", targetURL+"/api/v1/webhooks/gateway", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalRequests, 1)
		switch {
		case resp.StatusCode == 200:
			var ack struct {
				Duplicate bool `json:"duplicate"`
			}
			json.NewDecoder(resp.Body).Decode(&ack)
			if ack.Duplicate {
				atomic.AddUint64(&duplicates, 1)
			} else {
				atomic.AddUint64(&processed, 1)
			}
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			atomic.AddUint64(&rejected, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func printResults(elapsed time.Duration) {
	total := atomic.LoadUint64(&totalRequests)
	fmt.Println("\n--- Results ---")
	fmt.Printf("Elapsed:     %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("Requests:    %d (%.0f req/s)\n", total, float64(total)/elapsed.Seconds())
	fmt.Printf("Processed:   %d\n", atomic.LoadUint64(&processed))
	fmt.Printf("Duplicates:  %d\n", atomic.LoadUint64(&duplicates))
	fmt.Printf("Rejected:    %d\n", atomic.LoadUint64(&rejected))
	fmt.Printf("Errors:      %d\n", atomic.LoadUint64(&failOther))

	if p := atomic.LoadUint64(&processed); p > uint64(payments) {
		fmt.Printf("\nFAIL: %d first-time deliveries exceed the %d distinct payments, dedupe is broken\n", p, payments)
	}
}
