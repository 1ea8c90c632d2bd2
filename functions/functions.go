// Package functions exposes each route as a standalone http.HandlerFunc for
// serverless runtimes that invoke one handler per path.
//
// Handlers are built on first use from the environment only. When the
// environment holds an invalid configuration every entry point answers 500.
package functions

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/angeloszaimis/edge-functions/config"
	"github.com/angeloszaimis/edge-functions/internal/edge"
	"github.com/angeloszaimis/edge-functions/pkg/logger"
)

var handlers = sync.OnceValues(load)

func load() (*edge.Handlers, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}

	log := logger.New(os.Stderr, cfg.Logging.Level, cfg.Server.Environment, false)
	return edge.New(cfg, log, nil, edge.Options{}), nil
}

// Build serves GET /api/build.
func Build(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(h *edge.Handlers) http.Handler { return h.Build })
}

// Health serves /api/health.
func Health(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(h *edge.Handlers) http.Handler { return h.Health })
}

// MVGridHealth serves /api/mvgrid/health.
func MVGridHealth(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(h *edge.Handlers) http.Handler { return h.MVGridHealth })
}

// MVGridPredict serves /api/mvgrid/predict.
func MVGridPredict(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(h *edge.Handlers) http.Handler { return h.MVGridPredict })
}

func serve(w http.ResponseWriter, r *http.Request, pick func(*edge.Handlers) http.Handler) {
	h, err := handlers()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid configuration"})
		return
	}

	pick(h).ServeHTTP(w, r)
}
