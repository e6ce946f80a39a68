package inventory

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

// NewRepository builds an inventory repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, item *models.EquipmentItem) (*models.EquipmentItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.EquipmentItem, error) {
	var item models.EquipmentItem
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.EquipmentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.EquipmentItem
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) List(ctx context.Context) ([]models.EquipmentItem, error) {
	var items []models.EquipmentItem
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.EquipmentItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.EquipmentItem{}).Error
}

func (r *repository) CountActive(ctx context.Context, itemID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CheckoutRecord{}).
		Where("item_id = ? AND status = ?", itemID, enums.CheckoutStatusCheckedOut).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) CountActiveByItem(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(itemIDs))
	if len(itemIDs) == 0 {
		return counts, nil
	}

	type row struct {
		ItemID uuid.UUID
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.CheckoutRecord{}).
		Select("item_id, COUNT(*) AS total").
		Where("item_id IN ? AND status = ?", itemIDs, enums.CheckoutStatusCheckedOut).
		Group("item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		counts[r.ItemID] = r.Total
	}
	return counts, nil
}

func (r *repository) TouchLastUsed(ctx context.Context, itemID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.EquipmentItem{}).
		Where("id = ?", itemID).
		Update("last_used_at", at).Error
}
