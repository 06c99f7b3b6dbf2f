// Package config loads service configuration from the environment.
//
// Values are read from process environment variables; a local .env file is
// loaded first when present so developers can keep settings out of their
// shell profile.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Service   ServiceConfig
	Logging   LoggingConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Tracing   TracingConfig
	Profiling ProfilingConfig
	Mining    MiningConfig
	Auth      AuthConfig
	Shutdown  ShutdownConfig
}

type ServiceConfig struct {
	Name    string `envconfig:"SERVICE_NAME" default:"mining-service"`
	Version string `envconfig:"SERVICE_VERSION" default:"dev"`
	Env     string `envconfig:"ENV" default:"development"`
	Port    string `envconfig:"PORT" default:"8080"`
	// Comma separated list; "*" allows any origin.
	CORSOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

type LoggingConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

type StorageConfig struct {
	Driver string `envconfig:"STORAGE_DRIVER" default:"postgres"`
}

type DatabaseConfig struct {
	URL             string        `envconfig:"DATABASE_URL"`
	MaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int32         `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"5m"`
}

type MongoConfig struct {
	URI      string `envconfig:"MONGODB_URI"`
	Database string `envconfig:"MONGODB_DATABASE" default:"mining"`
}

type TracingConfig struct {
	Enabled    bool    `envconfig:"TRACING_ENABLED" default:"false"`
	Endpoint   string  `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4318"`
	SampleRate float64 `envconfig:"OTEL_SAMPLE_RATE" default:"1.0"`
}

type ProfilingConfig struct {
	Enabled  bool   `envconfig:"PROFILING_ENABLED" default:"false"`
	Endpoint string `envconfig:"PYROSCOPE_ENDPOINT" default:"http://localhost:4040"`
}

type MiningConfig struct {
	// Tier assigned to newly registered users.
	DefaultTier  string        `envconfig:"MINING_DEFAULT_TIER" default:"free"`
	TierCacheTTL time.Duration `envconfig:"MINING_TIER_CACHE_TTL" default:"30s"`
}

type AuthConfig struct {
	SessionTTL    time.Duration `envconfig:"AUTH_SESSION_TTL" default:"24h"`
	SweepInterval time.Duration `envconfig:"AUTH_SWEEP_INTERVAL" default:"10m"`
	OTPTTL        time.Duration `envconfig:"AUTH_OTP_TTL" default:"60s"`
}

type ShutdownConfig struct {
	Timeout             time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	ReadinessDrainDelay time.Duration `envconfig:"READINESS_DRAIN_DELAY" default:"5s"`
}

// Load reads the optional .env file and then environment variables into a
// Config. It panics only if envconfig cannot parse a typed value such as a
// malformed duration, which is a deployment error that must stop the process.
func Load() *Config {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg, err := LoadFromEnv()
	if err != nil {
		panic("load configuration: " + err.Error())
	}
	return cfg
}

// LoadFromEnv populates a Config from the process environment only.
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres"))
		}
	case DriverMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required when STORAGE_DRIVER=mongo"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE must be within [0, 1], got %v", c.Tracing.SampleRate))
	}
	if strings.TrimSpace(c.Mining.DefaultTier) == "" {
		errs = append(errs, errors.New("MINING_DEFAULT_TIER must not be empty"))
	}

	positive := map[string]time.Duration{
		"AUTH_SESSION_TTL":    c.Auth.SessionTTL,
		"AUTH_SWEEP_INTERVAL": c.Auth.SweepInterval,
		"AUTH_OTP_TTL":        c.Auth.OTPTTL,
	}
	for key, d := range positive {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", key, d))
		}
	}
	nonNegative := map[string]time.Duration{
		"DB_MAX_CONN_LIFETIME":  c.Database.MaxConnLifetime,
		"MINING_TIER_CACHE_TTL": c.Mining.TierCacheTTL,
		"SHUTDOWN_TIMEOUT":      c.Shutdown.Timeout,
		"READINESS_DRAIN_DELAY": c.Shutdown.ReadinessDrainDelay,
	}
	for key, d := range nonNegative {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", key, d))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) GetShutdownTimeoutDuration() time.Duration {
	return c.Shutdown.Timeout
}

func (c *Config) GetReadinessDrainDelayDuration() time.Duration {
	return c.Shutdown.ReadinessDrainDelay
}

func (c *Config) GetDBMaxConnLifetimeDuration() time.Duration {
	return c.Database.MaxConnLifetime
}

// GetTierCacheTTLDuration returns zero when tier caching is disabled.
func (c *Config) GetTierCacheTTLDuration() time.Duration {
	return c.Mining.TierCacheTTL
}

func (c *Config) GetSessionTTLDuration() time.Duration {
	return c.Auth.SessionTTL
}

func (c *Config) GetSweepIntervalDuration() time.Duration {
	return c.Auth.SweepInterval
}

func (c *Config) GetOTPTTLDuration() time.Duration {
	return c.Auth.OTPTTL
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS into its entries.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.Service.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
