package metrics

import (
	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// LeaseMetrics tracks lease writes, unreadable records and migrations.
// It satisfies lease.Observer.
type LeaseMetrics struct {
	Writes             *prometheus.CounterVec
	SkippedRecords     *prometheus.CounterVec
	Purchases          *prometheus.CounterVec
	Migrations         prometheus.Counter
	MigratedLeases     prometheus.Counter
	MigrationConflicts prometheus.Counter
	ActiveSlots        *prometheus.GaugeVec
}

func NewLeaseMetrics(reg prometheus.Registerer) *LeaseMetrics {
	m := &LeaseMetrics{
		Writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lease",
			Name:      "writes_total",
			Help:      "Lease writes, by result (saved, expired, error).",
		}, []string{"result"}),
		SkippedRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lease",
			Name:      "skipped_records_total",
			Help:      "Stored lease records ignored while reading, by reason.",
		}, []string{"reason"}),
		Purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lease",
			Name:      "purchases_total",
			Help:      "Accepted purchases, by slot size.",
		}, []string{"size"}),
		Migrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "runs_total",
			Help:      "Completed client lease migrations.",
		}),
		MigratedLeases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "leases_total",
			Help:      "Leases written by client migrations.",
		}),
		MigrationConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "migration",
			Name:      "conflicts_total",
			Help:      "Migrated leases that were moved to another slot.",
		}),
		ActiveSlots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "lease",
			Name:      "active_slots",
			Help:      "Slots currently holding a lease, by size.",
		}, []string{"size"}),
	}

	reg.MustRegister(m.Writes, m.SkippedRecords, m.Purchases, m.Migrations, m.MigratedLeases, m.MigrationConflicts, m.ActiveSlots)
	return m
}

func (m *LeaseMetrics) LeaseWritten(result string) {
	m.Writes.WithLabelValues(result).Inc()
}

func (m *LeaseMetrics) RecordSkipped(reason string) {
	m.SkippedRecords.WithLabelValues(reason).Inc()
}

func (m *LeaseMetrics) PurchaseAccepted(size domain.SizeClass) {
	m.Purchases.WithLabelValues(string(size)).Inc()
}

func (m *LeaseMetrics) MigrationCompleted(result *domain.MigrationResult) {
	m.Migrations.Inc()
	m.MigratedLeases.Add(float64(result.Migrated))
	m.MigrationConflicts.Add(float64(len(result.Conflicts)))
}

// SetActiveSlots replaces the gauge values. Sizes missing from counts read 0.
func (m *LeaseMetrics) SetActiveSlots(counts map[domain.SizeClass]int) {
	for _, size := range []domain.SizeClass{domain.SizeSmall, domain.SizeMedium, domain.SizeLarge} {
		m.ActiveSlots.WithLabelValues(string(size)).Set(float64(counts[size]))
	}
}
