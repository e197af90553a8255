package domain

import (
	"context"
	"time"
)

// KVStore is a key-value store that drops keys on its own once their TTL runs out.
type KVStore interface {
	// SetWithTTL writes value under key, replacing any previous value and TTL.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// MGet returns values in key order. Missing keys yield nil entries.
	MGet(ctx context.Context, keys []string) ([][]byte, error)

	// Keys lists every live key starting with prefix, in no particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	Ping(ctx context.Context) error
}
