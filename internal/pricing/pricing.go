// Package pricing holds the per-size listing rules: daily price and text length.
package pricing

import (
	"fmt"
	"math"

	"github.com/gabrielkrapp/mosaic/internal/domain"
)

// Currency is the token every price is quoted in.
const Currency = "WLD"

var pricePerDay = map[domain.SizeClass]float64{
	domain.SizeLarge:  0.5,
	domain.SizeMedium: 0.1,
	domain.SizeSmall:  0.05,
}

var textLimits = map[domain.SizeClass]int{
	domain.SizeSmall:  8,
	domain.SizeMedium: 14,
	domain.SizeLarge:  20,
}

func PricePerDay(size domain.SizeClass) float64 {
	return pricePerDay[size]
}

// Price returns the cost of leasing a slot of size for days, rounded to cents.
func Price(size domain.SizeClass, days int) float64 {
	return math.Round(pricePerDay[size]*float64(days)*100) / 100
}

// TextLimit is the maximum number of characters shown on a slot of size.
func TextLimit(size domain.SizeClass) int {
	return textLimits[size]
}

// Quote is what a client needs to request payment for a lease.
type Quote struct {
	SlotID        int              `json:"id"`
	Size          domain.SizeClass `json:"size"`
	Days          int              `json:"days"`
	Price         float64          `json:"price"`
	Currency      string           `json:"currency"`
	MaxTextLength int              `json:"maxTextLength"`
	Description   string           `json:"description"`
	Reference     string           `json:"reference"`
}

func NewQuote(slot domain.Slot, days int, reference string) Quote {
	return Quote{
		SlotID:        slot.ID,
		Size:          slot.Size,
		Days:          days,
		Price:         Price(slot.Size, days),
		Currency:      Currency,
		MaxTextLength: TextLimit(slot.Size),
		Description:   Description(slot.ID, days),
		Reference:     reference,
	}
}

func Description(slotID, days int) string {
	unit := "day"
	if days > 1 {
		unit = "days"
	}
	return fmt.Sprintf("Mosaic spot #%d - %d %s", slotID, days, unit)
}
