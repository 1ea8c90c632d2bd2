package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/edge-functions/internal/upstream"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	DefaultBackendURL = "https://api.neuromorphicinference.com"
	DefaultMVGridURL  = "https://mv-grid-fault-risk-api.onrender.com"
	DefaultRepository = "nepryoon/neuromorphic-inference-lab-site"
)

type ServerConfig struct {
	Address      string `mapstructure:"address"`
	Environment  string `mapstructure:"environment"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// UpstreamConfig describes one forwarded upstream endpoint. Durations are
// Go duration strings.
type UpstreamConfig struct {
	URL         string `mapstructure:"url"`
	Path        string `mapstructure:"path"`
	MaxAttempts int    `mapstructure:"max_attempts"`
	Timeout     string `mapstructure:"timeout"`
	Backoff     string `mapstructure:"backoff"`
}

type UpstreamsConfig struct {
	BackendHealth UpstreamConfig `mapstructure:"backend_health"`
	MVGridHealth  UpstreamConfig `mapstructure:"mvgrid_health"`
	MVGridPredict UpstreamConfig `mapstructure:"mvgrid_predict"`
}

// BuildConfig names the repository commits link to and the environment
// variables build metadata is read from.
type BuildConfig struct {
	Repository string `mapstructure:"repository"`
	SHAEnv     string `mapstructure:"sha_env"`
	BranchEnv  string `mapstructure:"branch_env"`
	URLEnv     string `mapstructure:"url_env"`
	DateEnv    string `mapstructure:"date_env"`
}

type WarmupConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
	Retries  int    `mapstructure:"retries"`
	Backoff  string `mapstructure:"backoff"`
}

type MetricsConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Upstreams UpstreamsConfig `mapstructure:"upstreams"`
	Build     BuildConfig     `mapstructure:"build"`
	Warmup    WarmupConfig    `mapstructure:"warmup"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// Load reads config.yaml from ./config or the working directory, then
// applies environment overrides.
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	return decode(v)
}

// LoadFromEnv builds the configuration from defaults and the environment
// only, for runtimes without a writable or predictable working directory.
func LoadFromEnv() (*Config, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("logging.level", LogLevelInfo)

	v.SetDefault("upstreams.backend_health.url", DefaultBackendURL)
	v.SetDefault("upstreams.backend_health.path", "/health")
	v.SetDefault("upstreams.backend_health.max_attempts", 1)
	v.SetDefault("upstreams.backend_health.timeout", "5s")
	v.SetDefault("upstreams.backend_health.backoff", "0s")

	v.SetDefault("upstreams.mvgrid_health.url", DefaultMVGridURL)
	v.SetDefault("upstreams.mvgrid_health.path", "/health")
	v.SetDefault("upstreams.mvgrid_health.max_attempts", 3)
	v.SetDefault("upstreams.mvgrid_health.timeout", "5s")
	v.SetDefault("upstreams.mvgrid_health.backoff", "600ms")

	v.SetDefault("upstreams.mvgrid_predict.url", DefaultMVGridURL)
	v.SetDefault("upstreams.mvgrid_predict.path", "/predict")
	v.SetDefault("upstreams.mvgrid_predict.max_attempts", 3)
	v.SetDefault("upstreams.mvgrid_predict.timeout", "15s")
	v.SetDefault("upstreams.mvgrid_predict.backoff", "800ms")

	v.SetDefault("build.repository", DefaultRepository)
	v.SetDefault("build.sha_env", "CF_PAGES_COMMIT_SHA")
	v.SetDefault("build.branch_env", "CF_PAGES_BRANCH")
	v.SetDefault("build.url_env", "CF_PAGES_URL")
	v.SetDefault("build.date_env", "CF_PAGES_BUILD_DATE")

	v.SetDefault("warmup.enabled", false)
	v.SetDefault("warmup.interval", "10m")
	v.SetDefault("warmup.retries", 3)
	v.SetDefault("warmup.backoff", "2s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.buffer_size", 1000)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = v.BindEnv("upstreams.backend_health.url", "UPSTREAMS_BACKEND_HEALTH_URL", "API_BACKEND_URL")
	_ = v.BindEnv("upstreams.mvgrid_health.url", "UPSTREAMS_MVGRID_HEALTH_URL", "MVGRID_API_URL")
	_ = v.BindEnv("upstreams.mvgrid_predict.url", "UPSTREAMS_MVGRID_PREDICT_URL", "MVGRID_API_URL")

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// Target is the full upstream URL.
func (u UpstreamConfig) Target() string {
	return strings.TrimRight(u.URL, "/") + u.Path
}

// Policy converts the retry settings. Call it on a validated config; invalid
// durations become zero.
func (u UpstreamConfig) Policy() upstream.Policy {
	return upstream.Policy{
		MaxAttempts:       u.MaxAttempts,
		PerAttemptTimeout: parseDuration(u.Timeout),
		BackoffBase:       parseDuration(u.Backoff),
	}
}

func (s ServerConfig) WriteTimeoutDuration() time.Duration {
	return parseDuration(s.WriteTimeout)
}

func (w WarmupConfig) IntervalDuration() time.Duration {
	return parseDuration(w.Interval)
}

func (w WarmupConfig) BackoffDuration() time.Duration {
	return parseDuration(w.Backoff)
}

func parseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
					validation.Field(&sc.WriteTimeout,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Upstreams),
		validation.Field(&c.Build,
			validation.By(func(value interface{}) error {
				bc, ok := value.(BuildConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a BuildConfig")
				}
				return validation.ValidateStruct(&bc,
					validation.Field(&bc.Repository,
						validation.Required,
						validation.Match(repositoryPattern).Error("must be in owner/name format"),
					),
				)
			}),
		),
		validation.Field(&c.Warmup,
			validation.By(func(value interface{}) error {
				wc, ok := value.(WarmupConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a WarmupConfig")
				}
				if !wc.Enabled {
					return nil
				}
				return validation.ValidateStruct(&wc,
					validation.Field(&wc.Interval,
						validation.Required,
						validation.By(validatePositiveDuration),
					),
					validation.Field(&wc.Retries, validation.Required, validation.Min(1)),
					validation.Field(&wc.Backoff, validation.By(validateNonNegativeDuration)),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				if !mc.Enabled {
					return nil
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
	)
}

// Validate implements validation.Validatable so the upstreams are checked
// as a nested struct.
func (u UpstreamsConfig) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.BackendHealth),
		validation.Field(&u.MVGridHealth),
		validation.Field(&u.MVGridPredict),
	)
}

func (u UpstreamConfig) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.URL, validation.Required, validation.By(validateServerURL)),
		validation.Field(&u.Path, validation.Match(pathPattern).Error("must start with /")),
		validation.Field(&u.MaxAttempts, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&u.Timeout, validation.Required, validation.By(validatePositiveDuration)),
		validation.Field(&u.Backoff, validation.By(validateNonNegativeDuration)),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

// validatePositiveDuration accepts durations above zero. Used for timeouts
// and intervals, where zero would disable the bound or panic a ticker.
func validatePositiveDuration(value interface{}) error {
	d, err := parseDurationValue(value)
	if err != nil || d == nil {
		return err
	}

	if *d <= 0 {
		return validation.NewError("validation_non_positive_duration", "must be greater than zero")
	}

	return nil
}

// validateNonNegativeDuration accepts zero and above. Used for backoffs.
func validateNonNegativeDuration(value interface{}) error {
	d, err := parseDurationValue(value)
	if err != nil || d == nil {
		return err
	}

	if *d < 0 {
		return validation.NewError("validation_negative_duration", "must not be negative")
	}

	return nil
}

// parseDurationValue returns nil for an empty string, leaving presence to
// validation.Required.
func parseDurationValue(value interface{}) (*time.Duration, error) {
	durationStr, ok := value.(string)
	if !ok {
		return nil, validation.NewError("validation_invalid_type", "must be a string")
	}
	if durationStr == "" {
		return nil, nil
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return nil, validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return &d, nil
}

func validateServerURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return validation.NewError("validation_empty_url", "server URL cannot be empty")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}
