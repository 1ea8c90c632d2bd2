package metrics_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-functions/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError, // Suppress logs in tests
		}))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
		time.Sleep(10 * time.Millisecond) // Allow goroutine to finish
	})

	scrape := func() string {
		w := httptest.NewRecorder()
		collector.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body, _ := io.ReadAll(w.Body)
		return string(body)
	}

	Describe("NewCollector", func() {
		It("should create a collector with specified buffer size", func() {
			c := metrics.NewCollector(500, log)
			Expect(c).NotTo(BeNil())
		})

		It("should create independent registries", func() {
			Expect(func() {
				metrics.NewCollector(1, log)
				metrics.NewCollector(1, log)
			}).NotTo(Panic())
		})
	})

	Describe("Start and event processing", func() {
		It("should process EventResponseCompleted", func() {
			collector.Start(ctx)

			collector.ObserveRequest("mvgrid-predict", http.StatusBadGateway, 150*time.Millisecond)

			Eventually(scrape).Should(ContainSubstring(`edge_requests_total{route="mvgrid-predict",status="502"} 1`))
			Expect(scrape()).To(ContainSubstring(`edge_request_duration_seconds_count{route="mvgrid-predict"} 1`))
		})

		It("should process EventAttemptCompleted", func() {
			collector.Start(ctx)

			collector.ObserveAttempt("mvgrid-health", "http_5xx", 10*time.Millisecond)
			collector.ObserveAttempt("mvgrid-health", "http_5xx", 10*time.Millisecond)
			collector.ObserveAttempt("mvgrid-health", "ok", 10*time.Millisecond)

			Eventually(scrape).Should(ContainSubstring(`edge_upstream_attempts_total{outcome="http_5xx",upstream="mvgrid-health"} 2`))
			Expect(scrape()).To(ContainSubstring(`edge_upstream_attempts_total{outcome="ok",upstream="mvgrid-health"} 1`))
		})

		It("should process EventHealthChanged", func() {
			collector.Start(ctx)

			collector.ObserveHealth("backend-health", true)
			Eventually(scrape).Should(ContainSubstring(`edge_upstream_up{upstream="backend-health"} 1`))

			collector.ObserveHealth("backend-health", false)
			Eventually(scrape).Should(ContainSubstring(`edge_upstream_up{upstream="backend-health"} 0`))
		})

		It("should accept raw events through Emit", func() {
			collector.Start(ctx)

			collector.Emit(metrics.MetricEvent{
				Type:       metrics.EventResponseCompleted,
				Timestamp:  time.Now(),
				Route:      "build",
				StatusCode: 200,
				Duration:   time.Millisecond,
			})

			Eventually(scrape).Should(ContainSubstring(`edge_requests_total{route="build",status="200"} 1`))
		})
	})

	Describe("Emit", func() {
		It("should be a no-op on a nil collector", func() {
			var nilCollector *metrics.Collector
			Expect(func() {
				nilCollector.ObserveAttempt("x", "ok", time.Millisecond)
			}).NotTo(Panic())
		})

		It("should drop events when the buffer is full", func() {
			small := metrics.NewCollector(1, log)

			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 0; i < 10; i++ {
					small.ObserveRequest("build", 200, time.Millisecond)
				}
			}()

			Eventually(done).Should(BeClosed())
		})
	})

	Describe("Shutdown", func() {
		It("should drain queued events when the context is cancelled", func() {
			collector.ObserveRequest("health", 503, time.Millisecond)
			collector.ObserveRequest("health", 503, time.Millisecond)

			cancel()
			collector.Start(ctx)

			Eventually(scrape).Should(ContainSubstring(`edge_requests_total{route="health",status="503"} 2`))
		})
	})
})
