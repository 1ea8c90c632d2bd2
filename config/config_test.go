package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/edge-functions/config"
)

var _ = Describe("Config", func() {
	var (
		tempDir string
		origDir string
	)

	BeforeEach(func() {
		var err error
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tempDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tempDir)
		os.Unsetenv("API_BACKEND_URL")
		os.Unsetenv("MVGRID_API_URL")
		os.Unsetenv("UPSTREAMS_MVGRID_PREDICT_TIMEOUT")
		os.Unsetenv("SERVER_ENVIRONMENT")
	})

	Describe("Load", func() {
		Context("without a config file", func() {
			It("should use the defaults", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.Server.Address).To(Equal(":8080"))
				Expect(cfg.Server.WriteTimeoutDuration()).To(Equal(time.Minute))
				Expect(cfg.Upstreams.BackendHealth.Target()).To(Equal("https://api.neuromorphicinference.com/health"))
				Expect(cfg.Upstreams.MVGridHealth.Target()).To(Equal("https://mv-grid-fault-risk-api.onrender.com/health"))
				Expect(cfg.Upstreams.MVGridPredict.Target()).To(Equal("https://mv-grid-fault-risk-api.onrender.com/predict"))
				Expect(cfg.Build.Repository).To(Equal(config.DefaultRepository))
				Expect(cfg.Build.SHAEnv).To(Equal("CF_PAGES_COMMIT_SHA"))
				Expect(cfg.Warmup.Enabled).To(BeFalse())
				Expect(cfg.Metrics.Enabled).To(BeTrue())
			})

			It("should default the retry policies per endpoint", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())

				health := cfg.Upstreams.BackendHealth.Policy()
				Expect(health.MaxAttempts).To(Equal(1))
				Expect(health.PerAttemptTimeout).To(Equal(5 * time.Second))

				mvHealth := cfg.Upstreams.MVGridHealth.Policy()
				Expect(mvHealth.MaxAttempts).To(Equal(3))
				Expect(mvHealth.PerAttemptTimeout).To(Equal(5 * time.Second))
				Expect(mvHealth.BackoffBase).To(Equal(600 * time.Millisecond))

				predict := cfg.Upstreams.MVGridPredict.Policy()
				Expect(predict.MaxAttempts).To(Equal(3))
				Expect(predict.PerAttemptTimeout).To(Equal(15 * time.Second))
				Expect(predict.BackoffBase).To(Equal(800 * time.Millisecond))
			})
		})

		Context("with a config file", func() {
			BeforeEach(func() {
				content := `
server:
  address: "127.0.0.1:9090"
  environment: "staging"

upstreams:
  mvgrid_predict:
    url: "http://localhost:8001/"
    max_attempts: 5
    timeout: "2s"

warmup:
  enabled: true
  interval: "1m"
  retries: 2
`
				Expect(os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(content), 0644)).To(Succeed())
			})

			It("should merge the file over the defaults", func() {
				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())

				Expect(cfg.Server.Address).To(Equal("127.0.0.1:9090"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvStaging))
				Expect(cfg.Upstreams.MVGridPredict.Target()).To(Equal("http://localhost:8001/predict"))
				Expect(cfg.Upstreams.MVGridPredict.Policy().MaxAttempts).To(Equal(5))
				Expect(cfg.Upstreams.MVGridPredict.Policy().BackoffBase).To(Equal(800 * time.Millisecond))
				Expect(cfg.Warmup.Enabled).To(BeTrue())
				Expect(cfg.Warmup.IntervalDuration()).To(Equal(time.Minute))
				Expect(cfg.Warmup.BackoffDuration()).To(Equal(2 * time.Second))
			})
		})

		Context("with environment variables", func() {
			It("should honour the backend URL alias", func() {
				os.Setenv("API_BACKEND_URL", "http://localhost:7000")

				cfg, err := config.Load()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Upstreams.BackendHealth.Target()).To(Equal("http://localhost:7000/health"))
			})

			It("should honour the grid URL alias for both grid endpoints", func() {
				os.Setenv("MVGRID_API_URL", "http://localhost:7001")

				cfg, err := config.LoadFromEnv()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Upstreams.MVGridHealth.Target()).To(Equal("http://localhost:7001/health"))
				Expect(cfg.Upstreams.MVGridPredict.Target()).To(Equal("http://localhost:7001/predict"))
			})

			It("should map nested keys", func() {
				os.Setenv("UPSTREAMS_MVGRID_PREDICT_TIMEOUT", "20s")

				cfg, err := config.LoadFromEnv()
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Upstreams.MVGridPredict.Policy().PerAttemptTimeout).To(Equal(20 * time.Second))
			})

			It("should reject an unknown environment", func() {
				os.Setenv("SERVER_ENVIRONMENT", "qa")

				_, err := config.LoadFromEnv()
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Validate", func() {
		var cfg *config.Config

		BeforeEach(func() {
			var err error
			cfg, err = config.LoadFromEnv()
			Expect(err).NotTo(HaveOccurred())
		})

		It("should accept the defaults", func() {
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject a non-http upstream URL", func() {
			cfg.Upstreams.MVGridHealth.URL = "ftp://example.com"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject zero attempts", func() {
			cfg.Upstreams.BackendHealth.MaxAttempts = 0
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a malformed timeout", func() {
			cfg.Upstreams.MVGridPredict.Timeout = "fifteen"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a path without a leading slash", func() {
			cfg.Upstreams.MVGridPredict.Path = "predict"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a malformed repository", func() {
			cfg.Build.Repository = "no-owner"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject an invalid address", func() {
			cfg.Server.Address = "localhost"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should only check warmup settings when enabled", func() {
			cfg.Warmup.Interval = "soon"
			Expect(cfg.Validate()).To(Succeed())

			cfg.Warmup.Enabled = true
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		DescribeTable("duration bounds",
			func(mutate func(*config.Config), valid bool) {
				mutate(cfg)
				if valid {
					Expect(cfg.Validate()).To(Succeed())
				} else {
					Expect(cfg.Validate()).NotTo(Succeed())
				}
			},
			Entry("zero upstream timeout", func(c *config.Config) { c.Upstreams.MVGridPredict.Timeout = "0s" }, false),
			Entry("negative upstream timeout", func(c *config.Config) { c.Upstreams.BackendHealth.Timeout = "-1s" }, false),
			Entry("negative upstream backoff", func(c *config.Config) { c.Upstreams.MVGridHealth.Backoff = "-1s" }, false),
			Entry("zero upstream backoff", func(c *config.Config) { c.Upstreams.MVGridHealth.Backoff = "0s" }, true),
			Entry("zero write timeout", func(c *config.Config) { c.Server.WriteTimeout = "0s" }, false),
			Entry("zero warmup interval", func(c *config.Config) {
				c.Warmup.Enabled = true
				c.Warmup.Interval = "0s"
			}, false),
			Entry("negative warmup backoff", func(c *config.Config) {
				c.Warmup.Enabled = true
				c.Warmup.Backoff = "-2s"
			}, false),
			Entry("zero warmup backoff", func(c *config.Config) {
				c.Warmup.Enabled = true
				c.Warmup.Backoff = "0s"
			}, true),
		)
	})
})
