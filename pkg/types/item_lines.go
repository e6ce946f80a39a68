package types

import (
	"time"

	"github.com/google/uuid"
)

// ItemLine is one requested slice of a reservation: a quantity of one item
// over one date window.
type ItemLine struct {
	ItemID   uuid.UUID `json:"itemId"`
	Quantity int       `json:"quantity"`
	FromDate time.Time `json:"fromDate"`
	ToDate   time.Time `json:"toDate"`
}

// ItemLines is the serialized request list stored on a reservation.
type ItemLines []ItemLine

// TotalUnits sums every line's quantity.
func (l ItemLines) TotalUnits() int {
	total := 0
	for _, line := range l {
		total += line.Quantity
	}
	return total
}

// QuantityByItem folds the lines into per-item totals.
func (l ItemLines) QuantityByItem() map[uuid.UUID]int {
	byItem := make(map[uuid.UUID]int, len(l))
	for _, line := range l {
		byItem[line.ItemID] += line.Quantity
	}
	return byItem
}
