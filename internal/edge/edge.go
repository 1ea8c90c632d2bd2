// Package edge assembles the HTTP handlers of the edge proxy from a
// validated configuration. The server in cmd and the serverless entry
// points in functions both build their handlers here.
package edge

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/edge-functions/config"
	"github.com/angeloszaimis/edge-functions/internal/buildinfo"
	"github.com/angeloszaimis/edge-functions/internal/forwarder"
	"github.com/angeloszaimis/edge-functions/internal/metrics"
	"github.com/angeloszaimis/edge-functions/internal/upstream"
	"github.com/angeloszaimis/edge-functions/internal/warmup"
)

// Route names, used as metric and log labels.
const (
	RouteBuild         = "build"
	RouteHealth        = "health"
	RouteMVGridHealth  = "mvgrid-health"
	RouteMVGridPredict = "mvgrid-predict"
)

// Paths served by the proxy.
const (
	PathBuild         = "/api/build"
	PathHealth        = "/api/health"
	PathMVGridHealth  = "/api/mvgrid/health"
	PathMVGridPredict = "/api/mvgrid/predict"
)

type Handlers struct {
	Build         *buildinfo.Reporter
	Health        *forwarder.Forwarder
	MVGridHealth  *forwarder.Forwarder
	MVGridPredict *forwarder.Forwarder
}

// Options tweaks how the handlers are built. The zero value uses the
// default http.Client and os.Getenv.
type Options struct {
	HTTPClient *http.Client
	Lookup     func(string) string
}

// New builds every handler. collector may be nil.
func New(cfg *config.Config, logger *slog.Logger, collector *metrics.Collector, opts Options) *Handlers {
	var observer upstream.Observer
	if collector != nil {
		observer = collector
	}
	client := upstream.NewClient(logger, opts.HTTPClient, observer)

	var reporterOpts []buildinfo.Option
	if opts.Lookup != nil {
		reporterOpts = append(reporterOpts, buildinfo.WithLookup(opts.Lookup))
	}

	ups := cfg.Upstreams
	return &Handlers{
		Build: buildinfo.NewReporter(logger, cfg.Build.Repository, buildinfo.Env{
			SHA:    cfg.Build.SHAEnv,
			Branch: cfg.Build.BranchEnv,
			URL:    cfg.Build.URLEnv,
			Date:   cfg.Build.DateEnv,
		}, reporterOpts...),
		Health: forwarder.New(logger, client, forwarder.Config{
			Name:        RouteHealth,
			Method:      http.MethodGet,
			Target:      ups.BackendHealth.Target(),
			Policy:      ups.BackendHealth.Policy(),
			FailureMode: forwarder.FailureDegraded,
		}),
		MVGridHealth: forwarder.New(logger, client, forwarder.Config{
			Name:   RouteMVGridHealth,
			Method: http.MethodGet,
			Target: ups.MVGridHealth.Target(),
			Policy: ups.MVGridHealth.Policy(),
		}),
		MVGridPredict: forwarder.New(logger, client, forwarder.Config{
			Name:   RouteMVGridPredict,
			Method: http.MethodPost,
			Target: ups.MVGridPredict.Target(),
			Policy: ups.MVGridPredict.Policy(),
		}),
	}
}

// WarmupTargets lists the health URLs worth keeping warm. The predict
// endpoint shares its host with the grid health check.
func WarmupTargets(cfg *config.Config) []*warmup.Target {
	return []*warmup.Target{
		warmup.NewTarget(RouteHealth, cfg.Upstreams.BackendHealth.Target()),
		warmup.NewTarget(RouteMVGridHealth, cfg.Upstreams.MVGridHealth.Target()),
	}
}
