package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	API      APIConfig      `yaml:"api" mapstructure:"api"`
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Session  SessionConfig  `yaml:"session" mapstructure:"session"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Estimate EstimateConfig `yaml:"estimate" mapstructure:"estimate"`
	NATS     NATSConfig     `yaml:"nats" mapstructure:"nats"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// APIConfig configures the OxSirene API client.
type APIConfig struct {
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	IPEchoURL   string        `yaml:"ip_echo_url" mapstructure:"ip_echo_url"`
	Retry       RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit     CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
}

// RetryConfig configures retries of transient API failures.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// CircuitConfig configures the per-operation circuit breakers.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// StoreConfig configures the key-value backend.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// SessionConfig configures the access token lifetime.
type SessionConfig struct {
	TokenMaxAgeHours int `yaml:"token_max_age_hours" mapstructure:"token_max_age_hours"`
}

// GeocodeConfig configures the BAN answer cache.
type GeocodeConfig struct {
	CacheTTLHours int `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// EstimateConfig configures the seller fan-out.
type EstimateConfig struct {
	MaxConcurrentSellers int `yaml:"max_concurrent_sellers" mapstructure:"max_concurrent_sellers"`
	BranchTimeoutSecs    int `yaml:"branch_timeout_secs" mapstructure:"branch_timeout_secs"`
}

// NATSConfig configures progress event publishing. An empty URL disables it.
type NATSConfig struct {
	URL           string `yaml:"url" mapstructure:"url"`
	SubjectPrefix string `yaml:"subject_prefix" mapstructure:"subject_prefix"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESELLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api.base_url", "https://oxsirenefunc.azurewebsites.net/api/v1")
	v.SetDefault("api.timeout_secs", 30)
	v.SetDefault("api.rate_limit", 10.0)
	v.SetDefault("api.ip_echo_url", "https://api.ipify.org")
	v.SetDefault("api.retry.max_attempts", 3)
	v.SetDefault("api.retry.initial_backoff_ms", 500)
	v.SetDefault("api.retry.max_backoff_ms", 10000)
	v.SetDefault("api.circuit.failure_threshold", 5)
	v.SetDefault("api.circuit.reset_timeout_secs", 30)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "reseller.db")
	v.SetDefault("session.token_max_age_hours", 24)
	v.SetDefault("geocode.cache_ttl_hours", 168)
	v.SetDefault("estimate.max_concurrent_sellers", 8)
	v.SetDefault("estimate.branch_timeout_secs", 0)
	v.SetDefault("nats.subject_prefix", "reseller.progress")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"chrome-extension://*", "moz-extension://*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var storeDrivers = map[string]bool{"sqlite": true, "postgres": true, "redis": true, "memory": true}

// Validate checks the settings a command mode depends on. Modes are
// "estimate" (every command that calls the API) and "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "estimate":
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.API.BaseURL == "" {
		errs = append(errs, "api.base_url is required")
	}
	if c.API.RateLimit <= 0 {
		errs = append(errs, "api.rate_limit must be > 0")
	}
	if !storeDrivers[c.Store.Driver] {
		errs = append(errs, fmt.Sprintf("store.driver %q must be one of sqlite, postgres, redis, memory", c.Store.Driver))
	} else if c.Store.Driver != "memory" && c.Store.DSN == "" {
		errs = append(errs, "store.dsn is required for driver "+c.Store.Driver)
	}
	if n := c.Estimate.MaxConcurrentSellers; n < 1 || n > 64 {
		errs = append(errs, "estimate.max_concurrent_sellers must be between 1 and 64")
	}
	if c.Estimate.BranchTimeoutSecs < 0 {
		errs = append(errs, "estimate.branch_timeout_secs must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
