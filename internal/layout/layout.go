// Package layout generates the static slot inventory of the grid.
//
// The traversal order fixes every slot id. Ids are stored in lease keys and in
// client state, so rows must never be reordered or inserted.
package layout

import "github.com/gabrielkrapp/mosaic/internal/domain"

// Columns is the width of the grid in quarter-width units.
const Columns = 4

var rows = []domain.SizeClass{
	domain.SizeLarge,
	domain.SizeSmall,
	domain.SizeMedium,
	domain.SizeSmall,
	domain.SizeLarge,
	domain.SizeSmall,
	domain.SizeMedium,
	domain.SizeSmall,
	domain.SizeMedium,
	domain.SizeSmall,
	domain.SizeLarge,
	domain.SizeSmall,
	domain.SizeMedium,
	domain.SizeSmall,
	domain.SizeLarge,
	domain.SizeMedium,
	domain.SizeSmall,
	domain.SizeMedium,
	domain.SizeSmall,
	domain.SizeLarge,
}

var base = build()

// Base returns the full slot inventory in id order, with no leases attached.
// Callers own the returned slice.
func Base() []domain.Slot {
	out := make([]domain.Slot, len(base))
	copy(out, base)
	return out
}

// Count is the number of slots in the inventory.
func Count() int {
	return len(base)
}

// Lookup returns the structural slot for id.
func Lookup(id int) (domain.Slot, bool) {
	if id < 1 || id > len(base) {
		return domain.Slot{}, false
	}
	return base[id-1], true
}

// ColSpan is the width of one slot of the given size.
func ColSpan(size domain.SizeClass) int {
	switch size {
	case domain.SizeLarge:
		return Columns
	case domain.SizeMedium:
		return Columns / 2
	default:
		return 1
	}
}

func build() []domain.Slot {
	var slots []domain.Slot
	id := 1
	for row, size := range rows {
		span := ColSpan(size)
		for col := 0; col < Columns; col += span {
			slots = append(slots, domain.Slot{
				ID:      id,
				Size:    size,
				Row:     row,
				Col:     col,
				RowSpan: 1,
				ColSpan: span,
			})
			id++
		}
	}
	return slots
}
