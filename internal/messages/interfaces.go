package messages

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
)

// ThreadOrder controls the direction a thread is read in.
type ThreadOrder string

const (
	// ThreadOrderOldestFirst is the conversation display order.
	ThreadOrderOldestFirst ThreadOrder = "oldest_first"
	// ThreadOrderNewestFirst is the triage order.
	ThreadOrderNewestFirst ThreadOrder = "newest_first"
)

// Repository defines persistence operations for conversation messages.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, msg *models.Message) (*models.Message, error)
	ListByReservation(ctx context.Context, reservationID uuid.UUID, order ThreadOrder) ([]models.Message, error)
}

// ReservationFinder resolves the reservation an inbound mail belongs to.
type ReservationFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	FindRoutableByEmail(ctx context.Context, email string, pickedUpSince time.Time) (*models.Reservation, error)
}
