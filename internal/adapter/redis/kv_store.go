package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabrielkrapp/mosaic/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const scanCount = 100

// KVStore implements domain.KVStore with SETEX, MGET and SCAN.
type KVStore struct {
	rdb *goredis.Client
}

var _ domain.KVStore = (*KVStore)(nil)

func NewKVStore(rdb *goredis.Client) *KVStore {
	return &KVStore{rdb: rdb}
}

func (s *KVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < time.Second {
		return fmt.Errorf("ttl %s for key %q is below one second", ttl, key)
	}
	if err := s.rdb.SetEx(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("setex %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) MGet(ctx context.Context, keys []string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}

	out := make([][]byte, len(vals))
	for i, v := range vals {
		switch v := v.(type) {
		case nil:
		case string:
			out[i] = []byte(v)
		default:
			return nil, fmt.Errorf("mget: unexpected %T for key %q", v, keys[i])
		}
	}
	return out, nil
}

// Keys walks the keyspace with SCAN so large keyspaces never block the server
// the way KEYS would.
func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(prefix) + "*"
	seen := make(map[string]struct{})
	var keys []string

	var cursor uint64
	for {
		batch, next, err := s.rdb.Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", pattern, err)
		}

		// SCAN may return a key more than once
		for _, k := range batch {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}

		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}

func (s *KVStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
