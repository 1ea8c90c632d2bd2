// Upstream is a fake inference service for exercising the edge proxy
// locally. It serves /health and /predict and can simulate a cold start.
//
// Usage:
//
//	go run ./scripts/upstream -port 8001 -fail-first 2 -delay 200ms
//
// With -fail-first N the first N requests of each path answer 503, so the
// proxy's retries can be observed in its logs and /metrics.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

type coldStart struct {
	mu        sync.Mutex
	remaining map[string]int
	failFirst int
}

// fail reports whether the request to path should still fail.
func (c *coldStart) fail(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.remaining[path]
	if !ok {
		n = c.failFirst
	}
	if n <= 0 {
		return false
	}
	c.remaining[path] = n - 1
	return true
}

func main() {
	port := flag.Int("port", 8001, "port to listen on")
	failFirst := flag.Int("fail-first", 0, "answer 503 to the first N requests of each path")
	delay := flag.Duration("delay", 0, "latency added to every request")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	cold := &coldStart{remaining: map[string]int{}, failFirst: *failFirst}

	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	wrap := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(*delay)
			if cold.fail(r.URL.Path) {
				log.Info("cold start", slog.String("path", r.URL.Path))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "warming up"})
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", wrap(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}))

	mux.HandleFunc("/predict", wrap(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil || !json.Valid(body) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "invalid json"})
			return
		}
		log.Info("predict", slog.Int("bytes", len(body)), slog.String("from", r.RemoteAddr))

		writeJSON(w, http.StatusOK, map[string]any{
			"request_id":      uuid.NewString(),
			"predicted_class": 0,
			"risk":            0.12,
		})
	}))

	addr := fmt.Sprintf(":%d", *port)
	log.Info("starting fake upstream", slog.String("addr", addr), slog.Int("fail_first", *failFirst))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("server failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
