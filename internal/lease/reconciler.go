package lease

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/gabrielkrapp/mosaic/internal/layout"
)

type leaseStore interface {
	TTLSeconds(expiresAt time.Time) int64
	SaveLease(ctx context.Context, slotID int, lease domain.Lease) error
	OccupiedIDs(ctx context.Context) (map[int]struct{}, error)
	CurrentWorldView(ctx context.Context) []domain.Slot
}

// Reconciler imports leases that clients held before the server kept lease
// state. Candidates that collide with a live lease move to the lowest free slot
// of their declared size. An id that is not occupied is kept as is.
type Reconciler struct {
	leases leaseStore
}

func NewReconciler(leases leaseStore) *Reconciler {
	return &Reconciler{leases: leases}
}

// Migrate processes candidates in order. Empty and expired candidates are
// skipped, colliding ones are relocated or dropped when no slot of their size is
// free. A candidate whose write fails keeps its reserved slot for the rest of
// the batch but is not counted. The returned world view is read after all
// writes.
func (r *Reconciler) Migrate(ctx context.Context, candidates []domain.Candidate) (*domain.MigrationResult, error) {
	occupied, err := r.leases.OccupiedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load occupied slots: %w", err)
	}

	result := &domain.MigrationResult{}
	for _, c := range candidates {
		if c.Text == "" && c.Link == "" {
			continue
		}
		if c.ExpiresAt == nil || r.leases.TTLSeconds(*c.ExpiresAt) <= 0 {
			continue
		}

		target := c.ID
		if _, taken := occupied[target]; taken {
			free, ok := firstFree(c.Size, occupied)
			if !ok {
				slog.WarnContext(ctx, "No free slot for migrated lease", "slot_id", c.ID, "size", c.Size)
				continue
			}
			slog.InfoContext(ctx, "Migrated lease relocated", "old", c.ID, "new", free, "size", c.Size)
			result.Conflicts = append(result.Conflicts, domain.Conflict{Old: c.ID, New: free})
			target = free
		}
		occupied[target] = struct{}{}

		lease := domain.Lease{Text: c.Text, Link: c.Link, ExpiresAt: *c.ExpiresAt}
		if err := r.leases.SaveLease(ctx, target, lease); err != nil {
			slog.ErrorContext(ctx, "Failed to save migrated lease", "slot_id", target, "error", err)
			continue
		}
		result.Migrated++
	}

	result.Slots = r.leases.CurrentWorldView(ctx)
	return result, nil
}

// firstFree searches by the size the client declared. The layout's own size
// for the colliding id is not consulted.
func firstFree(size domain.SizeClass, occupied map[int]struct{}) (int, bool) {
	if !size.Valid() {
		return 0, false
	}
	for _, slot := range layout.Base() {
		if slot.Size != size {
			continue
		}
		if _, taken := occupied[slot.ID]; !taken {
			return slot.ID, true
		}
	}
	return 0, false
}
