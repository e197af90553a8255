// Package memory provides a single-instance KVStore for development and tests.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/jonboulle/clockwork"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// KVStore keeps values in a map and hides them once their TTL has passed.
// Expired entries are dropped lazily on access and by the eviction timer.
type KVStore struct {
	mu      sync.RWMutex
	entries map[string]entry
	clock   clockwork.Clock
}

var _ domain.KVStore = (*KVStore)(nil)

func NewKVStore(clock clockwork.Clock) *KVStore {
	return &KVStore{
		entries: make(map[string]entry),
		clock:   clock,
	}
}

func (s *KVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("invalid ttl %s for key %q", ttl, key)
	}

	buf := make([]byte, len(value))
	copy(buf, value)

	s.mu.Lock()
	s.entries[key] = entry{value: buf, expiresAt: s.clock.Now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

func (s *KVStore) MGet(_ context.Context, keys []string) ([][]byte, error) {
	now := s.clock.Now()
	out := make([][]byte, len(keys))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for i, key := range keys {
		e, ok := s.entries[key]
		if !ok || !now.Before(e.expiresAt) {
			continue
		}
		v := make([]byte, len(e.value))
		copy(v, e.value)
		out[i] = v
	}
	return out, nil
}

func (s *KVStore) Keys(_ context.Context, prefix string) ([]string, error) {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key, e := range s.entries {
		if strings.HasPrefix(key, prefix) && now.Before(e.expiresAt) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *KVStore) Ping(_ context.Context) error {
	return nil
}

// TTL reports the remaining lifetime of key, or false if it is absent or expired.
func (s *KVStore) TTL(key string) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	remaining := e.expiresAt.Sub(s.clock.Now())
	if remaining <= 0 {
		return 0, false
	}
	return remaining, true
}

func (s *KVStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// EvictExpired removes expired entries and returns how many were dropped.
func (s *KVStore) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	evicted := 0
	for key, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, key)
			evicted++
		}
	}
	return evicted
}

// StartEvictionTimer periodically evicts expired entries until the returned stop
// function is called.
func (s *KVStore) StartEvictionTimer(interval time.Duration) func() {
	ticker := s.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.Chan():
				if evicted := s.EvictExpired(); evicted > 0 {
					slog.Debug("Evicted expired leases", "count", evicted, "remaining", s.Size())
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}
