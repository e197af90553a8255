// Package store opens the lease store backend selected by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabrielkrapp/mosaic/internal/adapter/etcd"
	"github.com/gabrielkrapp/mosaic/internal/adapter/memory"
	"github.com/gabrielkrapp/mosaic/internal/adapter/metrics"
	"github.com/gabrielkrapp/mosaic/internal/adapter/redis"
	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/gabrielkrapp/mosaic/internal/platform/config"
	"github.com/gabrielkrapp/mosaic/internal/platform/retry"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const memoryEvictionInterval = time.Minute

// Handle is an open store. Close releases the backend connection.
type Handle struct {
	Backend string
	Store   domain.KVStore
	Close   func() error
}

// Open connects to cfg.StoreBackend, retrying the initial connection with
// backoff. m may be nil.
func Open(ctx context.Context, cfg *config.Config, clock clockwork.Clock, m *metrics.StoreMetrics) (*Handle, error) {
	policy := retry.Policy{
		MaxAttempts:    cfg.StartupConnectAttempts,
		InitialBackoff: cfg.StartupConnectBackoff,
		MaxBackoff:     10 * time.Second,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.WarnContext(ctx, "Store connection failed, retrying",
				"backend", cfg.StoreBackend, "attempt", attempt, "backoff", backoff, "error", err)
		},
	}

	switch cfg.StoreBackend {
	case config.BackendRedis:
		return openRedis(ctx, cfg, policy, m)
	case config.BackendEtcd:
		return openEtcd(ctx, cfg, policy, m)
	case config.BackendMemory:
		return openMemory(clock), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func openRedis(ctx context.Context, cfg *config.Config, policy retry.Policy, m *metrics.StoreMetrics) (*Handle, error) {
	var hooks []goredis.Hook
	if m != nil {
		hooks = append(hooks, redis.NewMetricsHook(m))
	}
	if cfg.RedisCircuitBreaker {
		hooks = append(hooks, redis.NewCircuitBreakerHook(m))
	}

	rdb, err := retry.Do(ctx, policy, retry.Transient, func(ctx context.Context) (*goredis.Client, error) {
		return redis.NewClient(ctx, cfg.RedisURL, hooks...)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Handle{
		Backend: config.BackendRedis,
		Store:   redis.NewKVStore(rdb),
		Close:   rdb.Close,
	}, nil
}

func openEtcd(ctx context.Context, cfg *config.Config, policy retry.Policy, m *metrics.StoreMetrics) (*Handle, error) {
	opts := etcd.Options{
		Endpoints:      cfg.EtcdEndpointList(),
		DialTimeout:    cfg.EtcdDialTimeout,
		TLSEnabled:     cfg.EtcdTLSEnabled,
		CACertPath:     cfg.EtcdCACertPath,
		ClientCertPath: cfg.EtcdClientCertPath,
		ClientKeyPath:  cfg.EtcdClientKeyPath,
	}

	cli, err := retry.Do(ctx, policy, retry.Transient, func(ctx context.Context) (*clientv3.Client, error) {
		cli, err := etcd.NewClient(ctx, opts)
		if err != nil && m != nil {
			m.ConnectionErrors.WithLabelValues(config.BackendEtcd).Inc()
		}
		return cli, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	return &Handle{
		Backend: config.BackendEtcd,
		Store:   etcd.NewKVStore(cli, m),
		Close:   cli.Close,
	}, nil
}

func openMemory(clock clockwork.Clock) *Handle {
	slog.Warn("Using in-memory lease store; leases are lost on restart")

	kv := memory.NewKVStore(clock)
	stop := kv.StartEvictionTimer(memoryEvictionInterval)
	return &Handle{
		Backend: config.BackendMemory,
		Store:   kv,
		Close: func() error {
			stop()
			return nil
		},
	}
}
