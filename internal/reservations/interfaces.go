package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/pagination"
)

// Repository defines persistence operations for reservations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, res *models.Reservation) (*models.Reservation, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	FindDetail(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	FindRoutableByEmail(ctx context.Context, email string, pickedUpSince time.Time) (*models.Reservation, error)
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*ReservationList, error)
	CountRecords(ctx context.Context, reservationID uuid.UUID) (int64, error)
	ListSettledBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Purge(ctx context.Context, id uuid.UUID) error
}
