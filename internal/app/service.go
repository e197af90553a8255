package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/gabrielkrapp/mosaic/internal/layout"
	"github.com/gabrielkrapp/mosaic/internal/pricing"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// expirySlack tolerates clients whose clock runs slightly ahead when they
// compute expiresAt from the paid number of days.
const expirySlack = time.Minute

var linkSchemes = []string{"https://", "worldapp://"}

type LeaseRepository interface {
	CurrentWorldView(ctx context.Context) []domain.Slot
	SaveLease(ctx context.Context, slotID int, lease domain.Lease) error
}

type Migrator interface {
	Migrate(ctx context.Context, candidates []domain.Candidate) (*domain.MigrationResult, error)
}

// Recorder is notified about accepted writes. metrics.LeaseMetrics implements it.
type Recorder interface {
	PurchaseAccepted(size domain.SizeClass)
	MigrationCompleted(result *domain.MigrationResult)
}

type nopRecorder struct{}

func (nopRecorder) PurchaseAccepted(domain.SizeClass)          {}
func (nopRecorder) MigrationCompleted(*domain.MigrationResult) {}

type PurchaseRequest struct {
	SlotID    int
	Text      string
	Link      string
	ExpiresAt time.Time
}

type Service struct {
	leases       LeaseRepository
	migrator     Migrator
	clock        clockwork.Clock
	maxLease     time.Duration
	recorder     Recorder
	viewGroup    singleflight.Group
	newReference func() string
}

// NewService wires the use cases. recorder may be nil.
func NewService(leases LeaseRepository, migrator Migrator, clock clockwork.Clock, maxLease time.Duration, recorder Recorder) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Service{
		leases:       leases,
		migrator:     migrator,
		clock:        clock,
		maxLease:     maxLease,
		recorder:     recorder,
		newReference: uuid.NewString,
	}
}

// WorldView returns the base layout merged with live leases. Concurrent callers
// share one store round trip; each gets its own copy of the slice. The shared
// read outlives the cancellation of whichever caller started it.
func (s *Service) WorldView(ctx context.Context) []domain.Slot {
	shared := context.WithoutCancel(ctx)
	v, _, _ := s.viewGroup.Do("world", func() (any, error) {
		return s.leases.CurrentWorldView(shared), nil
	})

	view := v.([]domain.Slot)
	out := make([]domain.Slot, len(view))
	copy(out, view)
	return out
}

// Purchase stores the lease for an already paid slot and returns the fresh
// world view. Any earlier lease on the slot is overwritten.
func (s *Service) Purchase(ctx context.Context, req PurchaseRequest) ([]domain.Slot, error) {
	slot, ok := layout.Lookup(req.SlotID)
	if !ok {
		return nil, fmt.Errorf("slot %d: %w", req.SlotID, domain.ErrUnknownSlot)
	}

	l, err := s.validateLease(slot, req)
	if err != nil {
		return nil, err
	}

	if err := s.leases.SaveLease(ctx, slot.ID, l); err != nil {
		return nil, err
	}
	s.recorder.PurchaseAccepted(slot.Size)

	return s.leases.CurrentWorldView(ctx), nil
}

func (s *Service) validateLease(slot domain.Slot, req PurchaseRequest) (domain.Lease, error) {
	text := strings.TrimSpace(req.Text)
	link := strings.TrimSpace(req.Link)

	if text == "" {
		return domain.Lease{}, fmt.Errorf("%w: text is required", domain.ErrInvalidLease)
	}
	if limit := pricing.TextLimit(slot.Size); utf8.RuneCountInString(text) > limit {
		return domain.Lease{}, fmt.Errorf("%w: text exceeds %d characters for size %s", domain.ErrInvalidLease, limit, slot.Size)
	}
	if link != "" && !hasLinkScheme(link) {
		return domain.Lease{}, fmt.Errorf("%w: link must start with %s", domain.ErrInvalidLease, strings.Join(linkSchemes, " or "))
	}

	now := s.clock.Now()
	if !req.ExpiresAt.After(now) {
		return domain.Lease{}, fmt.Errorf("slot %d: %w", slot.ID, domain.ErrLeaseExpired)
	}
	if req.ExpiresAt.After(now.Add(s.maxLease + expirySlack)) {
		return domain.Lease{}, fmt.Errorf("%w: expiresAt is more than %d days ahead", domain.ErrInvalidLease, s.maxLeaseDays())
	}

	return domain.Lease{Text: text, Link: link, ExpiresAt: req.ExpiresAt}, nil
}

func hasLinkScheme(link string) bool {
	for _, scheme := range linkSchemes {
		if strings.HasPrefix(link, scheme) {
			return true
		}
	}
	return false
}

// Migrate imports leases held by a client and reports what moved.
func (s *Service) Migrate(ctx context.Context, candidates []domain.Candidate) (*domain.MigrationResult, error) {
	result, err := s.migrator.Migrate(ctx, candidates)
	if err != nil {
		return nil, err
	}
	s.recorder.MigrationCompleted(result)
	return result, nil
}

// Quote prices a lease of days on slotID. The reference is fresh per call and
// is what the client passes on to the payment provider.
func (s *Service) Quote(slotID, days int) (pricing.Quote, error) {
	slot, ok := layout.Lookup(slotID)
	if !ok {
		return pricing.Quote{}, fmt.Errorf("slot %d: %w", slotID, domain.ErrUnknownSlot)
	}
	if maxDays := s.maxLeaseDays(); days < 1 || days > maxDays {
		return pricing.Quote{}, fmt.Errorf("%w: days must be between 1 and %d", domain.ErrInvalidLease, maxDays)
	}
	return pricing.NewQuote(slot, days, s.newReference()), nil
}

func (s *Service) maxLeaseDays() int {
	return int(s.maxLease / (24 * time.Hour))
}
