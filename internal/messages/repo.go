package messages

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a messages repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *repository) ListByReservation(ctx context.Context, reservationID uuid.UUID, order ThreadOrder) ([]models.Message, error) {
	direction := "created_at ASC"
	if order == ThreadOrderNewestFirst {
		direction = "created_at DESC"
	}
	var msgs []models.Message
	err := r.db.WithContext(ctx).
		Where("reservation_id = ?", reservationID).
		Order(direction).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
