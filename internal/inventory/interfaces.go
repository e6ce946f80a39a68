package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
)

// Repository defines persistence operations for the equipment catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, item *models.EquipmentItem) (*models.EquipmentItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.EquipmentItem, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.EquipmentItem, error)
	List(ctx context.Context) ([]models.EquipmentItem, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountActive(ctx context.Context, itemID uuid.UUID) (int64, error)
	CountActiveByItem(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	TouchLastUsed(ctx context.Context, itemID uuid.UUID, at time.Time) error
}
