package checkouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
)

// Repository defines persistence operations for checkout records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, records []models.CheckoutRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutRecord, error)
	ListActive(ctx context.Context) ([]models.CheckoutRecord, error)
	ListActiveByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.CheckoutRecord, error)
	ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.CheckoutRecord, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]models.CheckoutRecord, error)
	MarkReturned(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)
	MarkReturnedByReservation(ctx context.Context, reservationID uuid.UUID, at time.Time) (int64, error)
}
