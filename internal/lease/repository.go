package lease

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/gabrielkrapp/mosaic/internal/layout"
	"github.com/jonboulle/clockwork"
)

// Observer receives lease store events for metrics.
type Observer interface {
	LeaseWritten(result string)
	RecordSkipped(reason string)
}

type nopObserver struct{}

func (nopObserver) LeaseWritten(string)  {}
func (nopObserver) RecordSkipped(string) {}

// Repository maps leases onto keys of a domain.KVStore.
type Repository struct {
	store    domain.KVStore
	clock    clockwork.Clock
	prefix   string
	observer Observer
}

type Option func(*Repository)

func WithKeyPrefix(prefix string) Option {
	return func(r *Repository) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

func WithObserver(o Observer) Option {
	return func(r *Repository) {
		if o != nil {
			r.observer = o
		}
	}
}

func NewRepository(store domain.KVStore, clock clockwork.Clock, opts ...Option) *Repository {
	r := &Repository{
		store:    store,
		clock:    clock,
		prefix:   DefaultKeyPrefix,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTLSeconds returns the whole seconds until expiresAt, rounded up, or 0 once
// expiresAt is not in the future.
func (r *Repository) TTLSeconds(expiresAt time.Time) int64 {
	remaining := expiresAt.Sub(r.clock.Now())
	if remaining <= 0 {
		return 0
	}
	secs := int64(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}
	return secs
}

// SaveLease writes lease under slotID, replacing whatever was there. A lease
// that has already expired is rejected with domain.ErrLeaseExpired and never
// reaches the store.
func (r *Repository) SaveLease(ctx context.Context, slotID int, lease domain.Lease) error {
	ttl := r.TTLSeconds(lease.ExpiresAt)
	if ttl <= 0 {
		r.observer.LeaseWritten("expired")
		return fmt.Errorf("slot %d: %w", slotID, domain.ErrLeaseExpired)
	}

	lease.ExpiresAt = lease.ExpiresAt.UTC()
	payload, err := json.Marshal(lease)
	if err != nil {
		r.observer.LeaseWritten("error")
		return fmt.Errorf("failed to encode lease for slot %d: %w", slotID, err)
	}

	if err := r.store.SetWithTTL(ctx, r.slotKey(slotID), payload, time.Duration(ttl)*time.Second); err != nil {
		r.observer.LeaseWritten("error")
		return fmt.Errorf("failed to save lease for slot %d: %w", slotID, err)
	}

	r.observer.LeaseWritten("saved")
	return nil
}

// CurrentWorldView returns the base layout with live leases attached. If the
// store cannot be read the bare layout is returned.
func (r *Repository) CurrentWorldView(ctx context.Context) []domain.Slot {
	slots := layout.Base()

	leases, err := r.activeLeases(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read leases, serving base layout", "error", err)
		return slots
	}

	for i := range slots {
		if l, ok := leases[slots[i].ID]; ok {
			slots[i].Lease = &l
		}
	}
	return slots
}

// OccupiedIDs returns the ids of every slot with a key in the store, whether or
// not its value is readable.
func (r *Repository) OccupiedIDs(ctx context.Context) (map[int]struct{}, error) {
	keys, err := r.store.Keys(ctx, r.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list lease keys: %w", err)
	}

	ids := make(map[int]struct{}, len(keys))
	for _, key := range keys {
		id, ok := r.slotIDFromKey(key)
		if !ok {
			slog.WarnContext(ctx, "Skipping unrecognised lease key", "key", key)
			r.observer.RecordSkipped("bad_key")
			continue
		}
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (r *Repository) activeLeases(ctx context.Context) (map[int]domain.Lease, error) {
	keys, err := r.store.Keys(ctx, r.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list lease keys: %w", err)
	}
	if len(keys) == 0 {
		return map[int]domain.Lease{}, nil
	}

	values, err := r.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to load leases: %w", err)
	}
	if len(values) != len(keys) {
		return nil, fmt.Errorf("store returned %d values for %d keys", len(values), len(keys))
	}

	leases := make(map[int]domain.Lease, len(keys))
	for i, key := range keys {
		id, ok := r.slotIDFromKey(key)
		if !ok {
			slog.WarnContext(ctx, "Skipping unrecognised lease key", "key", key)
			r.observer.RecordSkipped("bad_key")
			continue
		}

		// expired between listing and fetching
		if values[i] == nil {
			continue
		}

		var l domain.Lease
		if err := json.Unmarshal(values[i], &l); err != nil {
			slog.WarnContext(ctx, "Skipping corrupt lease record", "key", key, "error", err)
			r.observer.RecordSkipped("corrupt")
			continue
		}
		leases[id] = l
	}
	return leases, nil
}
