package metrics

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type EventType string

const (
	EventResponseCompleted EventType = "response_completed"
	EventAttemptCompleted  EventType = "attempt_completed"
	EventHealthChanged     EventType = "health_changed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Route      string
	Upstream   string
	Outcome    string
	Duration   time.Duration
	StatusCode int
	Healthy    bool
}

type Collector struct {
	eventCh  chan MetricEvent
	registry *prometheus.Registry
	logger   *slog.Logger

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	attempts        *prometheus.CounterVec
	attemptDuration *prometheus.HistogramVec
	upstreamHealthy *prometheus.GaugeVec
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	c := &Collector{
		eventCh:  make(chan MetricEvent, bufferSize),
		registry: prometheus.NewRegistry(),
		logger:   logger,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edge_requests_total",
			Help: "Total of handled requests by route and status code.",
		}, []string{"route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edge_request_duration_seconds",
			Help:    "Time spent handling a request, retries included.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 45},
		}, []string{"route"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edge_upstream_attempts_total",
			Help: "Total of outbound upstream attempts by outcome.",
		}, []string{"upstream", "outcome"}),
		attemptDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edge_upstream_attempt_duration_seconds",
			Help:    "Duration of a single upstream attempt.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}, []string{"upstream"}),
		upstreamHealthy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "edge_upstream_up",
			Help: "Whether the last warmup probe of an upstream succeeded.",
		}, []string{"upstream"}),
	}

	c.registry.MustRegister(
		c.requests,
		c.requestDuration,
		c.attempts,
		c.attemptDuration,
		c.upstreamHealthy,
		prometheus.NewGoCollector(),
	)

	return c
}

// Emit queues an event without blocking. Events are dropped when the buffer
// is full. Safe to call on a nil Collector.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

// ObserveAttempt records one upstream attempt.
func (c *Collector) ObserveAttempt(upstream string, outcome string, duration time.Duration) {
	c.Emit(MetricEvent{
		Type:     EventAttemptCompleted,
		Upstream: upstream,
		Outcome:  outcome,
		Duration: duration,
	})
}

// ObserveHealth records the result of a warmup probe.
func (c *Collector) ObserveHealth(upstream string, healthy bool) {
	c.Emit(MetricEvent{
		Type:     EventHealthChanged,
		Upstream: upstream,
		Healthy:  healthy,
	})
}

// ObserveRequest records a finished inbound request.
func (c *Collector) ObserveRequest(route string, statusCode int, duration time.Duration) {
	c.Emit(MetricEvent{
		Type:       EventResponseCompleted,
		Route:      route,
		StatusCode: statusCode,
		Duration:   duration,
	})
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventResponseCompleted:
		c.requests.WithLabelValues(event.Route, strconv.Itoa(event.StatusCode)).Inc()
		c.requestDuration.WithLabelValues(event.Route).Observe(event.Duration.Seconds())

	case EventAttemptCompleted:
		c.attempts.WithLabelValues(event.Upstream, event.Outcome).Inc()
		c.attemptDuration.WithLabelValues(event.Upstream).Observe(event.Duration.Seconds())

	case EventHealthChanged:
		value := 0.0
		if event.Healthy {
			value = 1
		}
		c.upstreamHealthy.WithLabelValues(event.Upstream).Set(value)

	default:
		c.logger.Warn("Unknown metric event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}
