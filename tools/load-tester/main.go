package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var categories = []string{"debug", "info", "warning", "error", "critical"}

func main() {
	targetURL := flag.String("url", "http://localhost:8080/api/events", "Target URL for event delivery")
	apiKey := flag.String("api-key", "", "Bearer token for authentication")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 1000, "Requests per second limit")
	app := flag.String("app", "load-tester", "Application tag stamped on generated events")
	flag.Parse()

	log.Printf("Starting load test on %s", *targetURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d", *concurrency, *duration, *rps)

	var wg sync.WaitGroup
	var successCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 100) // Allow bursts up to 100

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
					limiter.Wait(ctx)

					category := categories[workerID%len(categories)]
					payload := fmt.Sprintf(
						`{"category":"%s","app":"%s","timestamp":"%s","message":"load test event from worker %d","data":{"request_id":"%s"}}`,
						category, *app, time.Now().UTC().Format(time.RFC3339Nano), workerID, uuid.NewString())

					req, err := http.NewRequestWithContext(ctx, http.MethodPost, *targetURL, bytes.NewBufferString(payload))
					if err != nil {
						continue // Should not happen
					}
					req.Header.Set("Content-Type", "application/json")
					if *apiKey != "" {
						req.Header.Set("Authorization", "Bearer "+*apiKey)
					}

					resp, err := client.Do(req)
					if err != nil {
						errorCount.Add(1)
						continue
					}

					if resp.StatusCode >= 200 && resp.StatusCode < 300 {
						successCount.Add(1)
					} else {
						errorCount.Add(1)
					}
					resp.Body.Close()
				}
			}
		}(i)
	}

	wg.Wait()

	totalRequests := successCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful (2xx): %d", successCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}
