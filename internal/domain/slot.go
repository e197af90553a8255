package domain

import "time"

// SizeClass is the fixed footprint of a slot on the grid.
type SizeClass string

const (
	SizeSmall  SizeClass = "S"
	SizeMedium SizeClass = "M"
	SizeLarge  SizeClass = "L"
)

func (s SizeClass) Valid() bool {
	switch s {
	case SizeSmall, SizeMedium, SizeLarge:
		return true
	default:
		return false
	}
}

// Lease is the content shown on a slot until ExpiresAt.
type Lease struct {
	Text      string    `json:"text"`
	Link      string    `json:"link,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Slot is one cell of the world view. Lease is nil while the slot is free.
type Slot struct {
	ID      int       `json:"id"`
	Size    SizeClass `json:"size"`
	Row     int       `json:"row"`
	Col     int       `json:"col"`
	RowSpan int       `json:"rowSpan"`
	ColSpan int       `json:"colSpan"`

	*Lease
}

func (s Slot) Leased() bool {
	return s.Lease != nil
}

// Conflict records a candidate that had to move to another slot of the same size.
type Conflict struct {
	Old int `json:"old"`
	New int `json:"new"`
}

type MigrationResult struct {
	Migrated  int
	Conflicts []Conflict
	Slots     []Slot
}
