// Loadtest sends concurrent requests to one edge proxy route and reports
// status codes, latency percentiles and the upstream attempts the proxy made.
//
// Usage:
//
//	go run ./scripts/loadtest -url http://localhost:8080/api/mvgrid/predict -concurrency 10 -requests 200
//	go run ./scripts/loadtest -url http://localhost:8080/api/mvgrid/health -method GET -body ""
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type stats struct {
	mu        sync.Mutex
	codes     map[int]int
	latencies []time.Duration
}

func (s *stats) record(code int, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.codes[code]++
	s.latencies = append(s.latencies, d)
}

func percentile(sorted []time.Duration, pct float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*pct)]
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080/api/mvgrid/predict", "Target URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		method      = flag.String("method", http.MethodPost, "HTTP method")
		body        = flag.String("body", `{"features":[0.1,0.2,0.3]}`, "Request body")
		timeout     = flag.Duration("timeout", 60*time.Second, "Per-request timeout")
		metricsURL  = flag.String("metrics", "http://localhost:8080/metrics", "Proxy metrics URL, empty to skip")
	)
	flag.Parse()

	client := &http.Client{Timeout: *timeout}
	results := &stats{codes: map[int]int{}}
	var transportErrors int32

	jobs := make(chan int)
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				var reader io.Reader
				if *body != "" {
					reader = bytes.NewBufferString(*body)
				}
				req, err := http.NewRequest(*method, *url, reader)
				if err != nil {
					atomic.AddInt32(&transportErrors, 1)
					continue
				}
				req.Header.Set("Content-Type", "application/json")

				t := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					atomic.AddInt32(&transportErrors, 1)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				results.record(resp.StatusCode, time.Since(t))
			}
		}()
	}

	for i := 0; i < *requests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s %s\n", *method, *url)
	fmt.Printf("Requests: %d  Concurrency: %d  Transport errors: %d\n", *requests, *concurrency, transportErrors)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", elapsed, float64(*requests)/elapsed.Seconds())

	fmt.Println("\nStatus codes:")
	var codes []int
	for c := range results.codes {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	failures := 0
	for _, c := range codes {
		fmt.Printf("  %d -> %d\n", c, results.codes[c])
		if c >= http.StatusInternalServerError {
			failures += results.codes[c]
		}
	}

	lat := results.latencies
	sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
	if len(lat) > 0 {
		fmt.Printf("\nLatencies: min=%v p50=%v p90=%v p99=%v max=%v\n",
			lat[0], percentile(lat, 0.5), percentile(lat, 0.9), percentile(lat, 0.99), lat[len(lat)-1])
	}

	if *metricsURL != "" {
		printAttempts(client, *metricsURL)
	}

	if failures > 0 || transportErrors > 0 {
		os.Exit(2)
	}
}

// printAttempts echoes the proxy's upstream attempt counters.
func printAttempts(client *http.Client, url string) {
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "metrics unavailable: %v\n", err)
		return
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	fmt.Println("\nUpstream attempts:")
	for _, line := range bytes.Split(raw, []byte("\n")) {
		if bytes.HasPrefix(line, []byte("edge_upstream_attempts_total{")) {
			fmt.Printf("  %s\n", line)
		}
	}
}
