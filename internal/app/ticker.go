package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/gabrielkrapp/mosaic/internal/platform/correlation"
	"github.com/jonboulle/clockwork"
)

const DefaultOccupancyInterval = 30 * time.Second

type worldViewer interface {
	CurrentWorldView(ctx context.Context) []domain.Slot
}

type occupancyGauge interface {
	SetActiveSlots(counts map[domain.SizeClass]int)
}

// OccupancyTicker periodically counts leased slots per size and publishes the
// counts to a gauge. Leases expire inside the store without any event, so
// polling is the only way to see the count drop.
type OccupancyTicker struct {
	leases   worldViewer
	gauge    occupancyGauge
	clock    clockwork.Clock
	interval time.Duration
}

func NewOccupancyTicker(leases worldViewer, gauge occupancyGauge, clock clockwork.Clock, interval time.Duration) *OccupancyTicker {
	if interval <= 0 {
		interval = DefaultOccupancyInterval
	}
	return &OccupancyTicker{
		leases:   leases,
		gauge:    gauge,
		clock:    clock,
		interval: interval,
	}
}

// Run refreshes once immediately and then on every tick until ctx is cancelled.
func (t *OccupancyTicker) Run(ctx context.Context) {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	t.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			t.refresh(ctx)
		}
	}
}

func (t *OccupancyTicker) refresh(ctx context.Context) {
	tickCtx := correlation.WithID(ctx, correlation.NewID())

	counts := make(map[domain.SizeClass]int, 3)
	for _, slot := range t.leases.CurrentWorldView(tickCtx) {
		if slot.Leased() {
			counts[slot.Size]++
		}
	}
	t.gauge.SetActiveSlots(counts)

	slog.DebugContext(tickCtx, "Occupancy refreshed",
		"large", counts[domain.SizeLarge],
		"medium", counts[domain.SizeMedium],
		"small", counts[domain.SizeSmall])
}
