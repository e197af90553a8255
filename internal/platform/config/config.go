package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	BackendRedis  = "redis"
	BackendEtcd   = "etcd"
	BackendMemory = "memory"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	StoreBackend   string `env:"STORE_BACKEND" default:"redis"`
	LeaseKeyPrefix string `env:"LEASE_KEY_PREFIX" default:"mosaic:tile:"`

	RedisURL            string `env:"REDIS_URL"`
	RedisCircuitBreaker bool   `env:"REDIS_CIRCUIT_BREAKER" default:"true"`

	EtcdEndpoints      string        `env:"ETCD_ENDPOINTS"` // comma separated
	EtcdDialTimeout    time.Duration `env:"ETCD_DIAL_TIMEOUT" default:"5s"`
	EtcdTLSEnabled     bool          `env:"ETCD_TLS_ENABLED" default:"false"`
	EtcdCACertPath     string        `env:"ETCD_CA_CERT_PATH"`
	EtcdClientCertPath string        `env:"ETCD_CLIENT_CERT_PATH"`
	EtcdClientKeyPath  string        `env:"ETCD_CLIENT_KEY_PATH"`

	MaxLeaseDays int `env:"MAX_LEASE_DAYS" default:"7"`

	WriteRatePerSecond float64 `env:"WRITE_RATE_PER_SECOND" default:"2"`
	WriteRateBurst     int     `env:"WRITE_RATE_BURST" default:"10"`

	StartupConnectAttempts int           `env:"STARTUP_CONNECT_ATTEMPTS" default:"5"`
	StartupConnectBackoff  time.Duration `env:"STARTUP_CONNECT_BACKOFF" default:"500ms"`
	ShutdownTimeout        time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// EtcdEndpointList splits ETCD_ENDPOINTS, dropping blanks.
func (c *Config) EtcdEndpointList() []string {
	var out []string
	for _, ep := range strings.Split(c.EtcdEndpoints, ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			out = append(out, ep)
		}
	}
	return out
}

// MaxLeaseDuration is the furthest ahead a purchase may expire.
func (c *Config) MaxLeaseDuration() time.Duration {
	return time.Duration(c.MaxLeaseDays) * 24 * time.Hour
}

func validate(cfg *Config) error {
	switch cfg.StoreBackend {
	case BackendRedis:
		if cfg.RedisURL == "" {
			return errors.New("REDIS_URL is required")
		}
	case BackendEtcd:
		if len(cfg.EtcdEndpointList()) == 0 {
			return errors.New("ETCD_ENDPOINTS is required")
		}
		if cfg.EtcdTLSEnabled && cfg.EtcdCACertPath == "" {
			return errors.New("ETCD_CA_CERT_PATH is required when ETCD_TLS_ENABLED is set")
		}
	case BackendMemory:
		if cfg.AppEnv == "production" {
			return errors.New("STORE_BACKEND=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of redis, etcd, memory (got %q)", cfg.StoreBackend)
	}

	if cfg.LeaseKeyPrefix == "" {
		return errors.New("LEASE_KEY_PREFIX must not be empty")
	}
	if cfg.MaxLeaseDays < 1 {
		return fmt.Errorf("MAX_LEASE_DAYS must be at least 1, got %d", cfg.MaxLeaseDays)
	}
	if cfg.WriteRatePerSecond <= 0 || cfg.WriteRateBurst < 1 {
		return errors.New("WRITE_RATE_PER_SECOND and WRITE_RATE_BURST must be positive")
	}
	if cfg.StartupConnectAttempts < 1 {
		return fmt.Errorf("STARTUP_CONNECT_ATTEMPTS must be at least 1, got %d", cfg.StartupConnectAttempts)
	}

	return nil
}
