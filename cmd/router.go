package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/angeloszaimis/edge-functions/internal/edge"
	"github.com/angeloszaimis/edge-functions/internal/metrics"
	"github.com/angeloszaimis/edge-functions/internal/middleware"
	"github.com/angeloszaimis/edge-functions/internal/warmup"
)

// setupRouter wires the edge routes. targets are the warmed upstreams
// reported on /healthz and may be empty.
func setupRouter(log *slog.Logger, h *edge.Handlers, collector *metrics.Collector, targets []*warmup.Target) *mux.Router {
	var observer middleware.RequestObserver
	if collector != nil {
		observer = collector
	}

	r := mux.NewRouter()
	// Recover sits inside AccessLog so a panic is still logged and counted.
	r.Use(middleware.RequestID, middleware.AccessLog(log, observer), middleware.Recover(log))

	// Method checks stay in the handlers so wrong methods get the JSON 405.
	r.Handle(edge.PathBuild, h.Build).Name(edge.RouteBuild)
	r.Handle(edge.PathHealth, h.Health).Name(edge.RouteHealth)
	r.Handle(edge.PathMVGridHealth, h.MVGridHealth).Name(edge.RouteMVGridHealth)
	r.Handle(edge.PathMVGridPredict, h.MVGridPredict).Name(edge.RouteMVGridPredict)

	r.HandleFunc("/healthz", healthz(targets)).Methods(http.MethodGet).Name("healthz")
	if collector != nil {
		r.Handle("/metrics", collector.Handler()).Methods(http.MethodGet).Name("metrics")
	}

	r.NotFoundHandler = http.HandlerFunc(notFound)

	return r
}

type healthzResponse struct {
	Status    string            `json:"status"`
	Upstreams map[string]string `json:"upstreams,omitempty"`
}

// healthz answers liveness checks with the last warmup result per upstream.
func healthz(targets []*warmup.Target) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := healthzResponse{Status: "ok"}
		if len(targets) > 0 {
			resp.Upstreams = make(map[string]string, len(targets))
			for _, t := range targets {
				state := "down"
				if t.IsHealthy() {
					state = "up"
				}
				resp.Upstreams[t.Name] = state
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "Not found"})
}
