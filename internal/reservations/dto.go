package reservations

import (
	"github.com/google/uuid"

	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	"github.com/mediadesk/mediadesk-backend/pkg/types"
)

// SubmitInput captures a requester's reservation form.
type SubmitInput struct {
	RequesterName  string
	RequesterEmail string
	RequesterPhone string
	Purpose        string
	Lines          types.ItemLines
}

// StaffActor identifies the staff member driving a transition.
type StaffActor struct {
	ID    uuid.UUID
	Name  string
	Email string
	Role  enums.StaffRole
}

// UpdateStatusInput carries a triage decision plus an optional reply.
type UpdateStatusInput struct {
	ReservationID uuid.UUID
	Status        enums.ReservationStatus
	Message       string
}

// PickupSchedulingInput carries the scheduling block for ready-for-pickup.
type PickupSchedulingInput struct {
	ReservationID  uuid.UUID
	PickupDate     string
	PickupTime     string
	PickupLocation string
}

// ListFilters narrows the staff triage listing.
type ListFilters struct {
	Status         *enums.ReservationStatus
	RequesterEmail string
	ReadyForPickup *bool
	PickedUp       *bool
}

// ReservationList is one cursor page of reservations.
type ReservationList struct {
	Reservations []models.Reservation `json:"reservations"`
	NextCursor   *string              `json:"nextCursor,omitempty"`
}
