package checkouts

import (
	"time"

	"github.com/google/uuid"
)

// CheckoutInput captures a staff request to put units of one item on loan.
type CheckoutInput struct {
	ItemID        uuid.UUID
	Quantity      int
	FromDate      time.Time
	DueDate       time.Time
	ReservationID *uuid.UUID
	Provenance    string
}
