package checkouts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkouts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, records []models.CheckoutRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutRecord, error) {
	var rec models.CheckoutRecord
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("id = ?", id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repository) ListActive(ctx context.Context) ([]models.CheckoutRecord, error) {
	var records []models.CheckoutRecord
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("status = ?", enums.CheckoutStatusCheckedOut).
		Order("due_date ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) ListActiveByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.CheckoutRecord, error) {
	var records []models.CheckoutRecord
	err := r.db.WithContext(ctx).
		Where("reservation_id = ? AND status = ?", reservationID, enums.CheckoutStatusCheckedOut).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.CheckoutRecord, error) {
	var records []models.CheckoutRecord
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("reservation_id = ?", reservationID).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) ListOverdue(ctx context.Context, asOf time.Time) ([]models.CheckoutRecord, error) {
	var records []models.CheckoutRecord
	err := r.db.WithContext(ctx).
		Preload("Item").
		Where("status = ? AND due_date < ?", enums.CheckoutStatusCheckedOut, asOf).
		Order("due_date ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *repository) MarkReturned(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutRecord{}).
		Where("id = ? AND status = ?", id, enums.CheckoutStatusCheckedOut).
		Updates(map[string]any{
			"status":      enums.CheckoutStatusReturned,
			"returned_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) MarkReturnedByReservation(ctx context.Context, reservationID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CheckoutRecord{}).
		Where("reservation_id = ? AND status = ?", reservationID, enums.CheckoutStatusCheckedOut).
		Updates(map[string]any{
			"status":      enums.CheckoutStatusReturned,
			"returned_at": at,
		})
	return res.RowsAffected, res.Error
}
