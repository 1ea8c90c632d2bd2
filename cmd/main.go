package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/angeloszaimis/edge-functions/config"
	"github.com/angeloszaimis/edge-functions/internal/edge"
	"github.com/angeloszaimis/edge-functions/internal/httpserver"
	"github.com/angeloszaimis/edge-functions/internal/metrics"
	"github.com/angeloszaimis/edge-functions/internal/warmup"
	"github.com/angeloszaimis/edge-functions/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(os.Stdout, cfg.Logging.Level, cfg.Server.Environment, cfg.Server.Environment != config.EnvProd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector(cfg.Metrics.BufferSize, log)
		collector.Start(ctx)
	}

	handlers := edge.New(cfg, log, collector, edge.Options{})
	targets := startWarmup(ctx, cfg, log, collector)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(log, handlers, collector, targets),
		httpserver.WithWriteTimeout(cfg.Server.WriteTimeoutDuration()))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		log.Info("Edge proxy listening",
			slog.String("addr", srv.Addr()),
			slog.Duration("write_timeout", srv.WriteTimeout()))
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting edge proxy", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// startWarmup launches one prober loop per upstream when warmup is enabled
// and returns the targets being probed.
func startWarmup(ctx context.Context, cfg *config.Config, log *slog.Logger, collector *metrics.Collector) []*warmup.Target {
	if !cfg.Warmup.Enabled {
		return nil
	}

	var observer warmup.HealthObserver
	if collector != nil {
		observer = collector
	}

	prober := warmup.NewProber(log, warmup.Config{
		Retries: cfg.Warmup.Retries,
		Backoff: cfg.Warmup.BackoffDuration(),
		Timeout: cfg.Upstreams.MVGridHealth.Policy().PerAttemptTimeout,
	}, observer)

	targets := edge.WarmupTargets(cfg)
	for _, target := range targets {
		go prober.Run(ctx, target, cfg.Warmup.IntervalDuration())
	}

	log.Info("Warmup started",
		slog.Int("targets", len(targets)),
		slog.Duration("interval", cfg.Warmup.IntervalDuration()))

	return targets
}
