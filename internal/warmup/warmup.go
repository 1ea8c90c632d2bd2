package warmup

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sethgrid/pester"
)

// HealthObserver receives the state of a target after every probe.
type HealthObserver interface {
	ObserveHealth(upstream string, healthy bool)
}

type Config struct {
	// Retries is the total number of attempts per probe.
	Retries int
	// Backoff is the linear backoff base between attempts.
	Backoff time.Duration
	// Timeout bounds a single attempt.
	Timeout time.Duration
}

type Prober struct {
	cfg      Config
	logger   *slog.Logger
	observer HealthObserver
}

// NewProber creates a Prober. observer may be nil.
func NewProber(logger *slog.Logger, cfg Config, observer HealthObserver) *Prober {
	if cfg.Retries < 1 {
		cfg.Retries = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Prober{
		cfg:      cfg,
		logger:   logger,
		observer: observer,
	}
}

// newClient returns a client for one probe, so its attempt log only covers
// that probe.
func (p *Prober) newClient() *pester.Client {
	client := pester.NewExtendedClient(&http.Client{Timeout: p.cfg.Timeout})
	client.MaxRetries = p.cfg.Retries
	client.Backoff = linearBackoff(p.cfg.Backoff)
	client.KeepLog = true

	return client
}

func linearBackoff(base time.Duration) pester.BackoffStrategy {
	return func(retry int) time.Duration {
		return time.Duration(retry) * base
	}
}

// Probe checks target once, records the result and logs transitions.
func (p *Prober) Probe(ctx context.Context, target *Target) bool {
	err := p.check(ctx, target.URL)
	healthy := err == nil

	if target.SetHealthy(healthy) {
		if healthy {
			p.logger.Info("Upstream is up", slog.String("upstream", target.Name))
		} else {
			p.logger.Warn("Upstream is down",
				slog.String("upstream", target.Name),
				slog.String("err", err.Error()))
		}
	}

	if p.observer != nil {
		p.observer.ObserveHealth(target.Name, healthy)
	}

	return healthy
}

func (p *Prober) check(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, "building probe request")
	}

	client := p.newClient()
	res, err := client.Do(req)
	if err != nil {
		p.logger.Debug("Probe attempts", slog.String("log", client.LogString()))
		return errors.Wrapf(err, "probing %s", url)
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK {
		return errors.Errorf("probing %s: status %d", url, res.StatusCode)
	}

	return nil
}

// Run probes target immediately and then every interval until ctx is done.
// A non-positive interval probes once.
func (p *Prober) Run(ctx context.Context, target *Target, interval time.Duration) {
	p.Probe(ctx, target)

	if interval <= 0 {
		p.logger.Warn("Warmup interval not positive, probing once",
			slog.String("upstream", target.Name),
			slog.Duration("interval", interval))
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Warmup stopped", slog.String("upstream", target.Name))
			return

		case <-ticker.C:
			p.Probe(ctx, target)
		}
	}
}
