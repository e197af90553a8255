package etcd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabrielkrapp/mosaic/internal/adapter/metrics"
	"github.com/gabrielkrapp/mosaic/internal/domain"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const backendLabel = "etcd"

// etcd rejects transactions with more than 128 operations by default.
const maxTxnOps = 64

type KVStore struct {
	cli         *clientv3.Client
	m           *metrics.StoreMetrics
	pingTimeout time.Duration
}

var _ domain.KVStore = (*KVStore)(nil)

// NewKVStore wraps cli. m may be nil.
func NewKVStore(cli *clientv3.Client, m *metrics.StoreMetrics) *KVStore {
	return &KVStore{cli: cli, m: m, pingTimeout: 2 * time.Second}
}

// SetWithTTL grants a fresh etcd lease of ttl (whole seconds, at least one)
// and puts key under it. The lease the key was bound to before is revoked, as
// is the new one when the put fails. Revoke errors are only logged; an
// unrevoked lease still lapses at its own TTL.
func (s *KVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) (err error) {
	defer s.observe("set", time.Now(), &err)

	secs := int64(ttl / time.Second)
	if secs < 1 {
		return fmt.Errorf("ttl must be at least one second, got %s", ttl)
	}

	grant, err := s.cli.Grant(ctx, secs)
	if err != nil {
		return fmt.Errorf("failed to grant lease: %w", err)
	}

	put, err := s.cli.Put(ctx, key, string(value), clientv3.WithLease(grant.ID), clientv3.WithPrevKV())
	if err != nil {
		s.revoke(ctx, grant.ID)
		return fmt.Errorf("failed to put %s: %w", key, err)
	}

	if prev := put.PrevKv; prev != nil && prev.Lease != 0 && clientv3.LeaseID(prev.Lease) != grant.ID {
		s.revoke(ctx, clientv3.LeaseID(prev.Lease))
	}
	return nil
}

func (s *KVStore) revoke(ctx context.Context, id clientv3.LeaseID) {
	if _, err := s.cli.Revoke(context.WithoutCancel(ctx), id); err != nil {
		slog.WarnContext(ctx, "Failed to revoke etcd lease", "lease_id", int64(id), "error", err)
	}
}

// MGet reads keys in batched transactions so every value in a batch comes
// from the same revision. Missing keys yield nil.
func (s *KVStore) MGet(ctx context.Context, keys []string) (values [][]byte, err error) {
	defer s.observe("mget", time.Now(), &err)

	values = make([][]byte, 0, len(keys))
	for start := 0; start < len(keys); start += maxTxnOps {
		end := min(start+maxTxnOps, len(keys))

		ops := make([]clientv3.Op, 0, end-start)
		for _, k := range keys[start:end] {
			ops = append(ops, clientv3.OpGet(k))
		}

		resp, err := s.cli.Txn(ctx).Then(ops...).Commit()
		if err != nil {
			return nil, fmt.Errorf("failed to read keys: %w", err)
		}

		for _, r := range resp.Responses {
			kvs := r.GetResponseRange().GetKvs()
			if len(kvs) == 0 {
				values = append(values, nil)
				continue
			}
			values = append(values, kvs[0].Value)
		}
	}
	return values, nil
}

func (s *KVStore) Keys(ctx context.Context, prefix string) (keys []string, err error) {
	defer s.observe("keys", time.Now(), &err)

	resp, err := s.cli.Get(ctx, prefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, fmt.Errorf("failed to list keys with prefix %s: %w", prefix, err)
	}

	keys = make([]string, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		keys = append(keys, string(kv.Key))
	}
	return keys, nil
}

func (s *KVStore) Ping(ctx context.Context) (err error) {
	defer s.observe("ping", time.Now(), &err)
	return ping(ctx, s.cli, s.pingTimeout)
}

func (s *KVStore) observe(operation string, start time.Time, errp *error) {
	if s.m == nil {
		return
	}
	status := "success"
	if *errp != nil {
		status = "error"
	}
	s.m.OpsTotal.WithLabelValues(backendLabel, operation, status).Inc()
	s.m.OpDuration.WithLabelValues(backendLabel, operation).Observe(time.Since(start).Seconds())
}
