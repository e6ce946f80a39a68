package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	"github.com/mediadesk/mediadesk-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reservations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, res *models.Reservation) (*models.Reservation, error) {
	if err := r.db.WithContext(ctx).Create(res).Error; err != nil {
		return nil, err
	}
	return res, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	q := r.db.WithContext(ctx)
	// sqlite has no FOR UPDATE; its writes are serialized anyway
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var res models.Reservation
	err := q.Where("id = ?", id).First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *repository) FindDetail(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Records.Item").
		Where("id = ?", id).
		First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *repository) FindRoutableByEmail(ctx context.Context, email string, pickedUpSince time.Time) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).
		Where("requester_email = ? AND status <> ?", email, enums.ReservationStatusDenied).
		Where("picked_up = ? OR picked_up_at >= ?", false, pickedUpSince).
		Order("created_at DESC").
		First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*ReservationList, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	q := r.db.WithContext(ctx).Model(&models.Reservation{})
	if filters.Status != nil {
		q = q.Where("status = ?", *filters.Status)
	}
	if filters.RequesterEmail != "" {
		q = q.Where("requester_email = ?", filters.RequesterEmail)
	}
	if filters.ReadyForPickup != nil {
		q = q.Where("ready_for_pickup = ?", *filters.ReadyForPickup)
	}
	if filters.PickedUp != nil {
		q = q.Where("picked_up = ?", *filters.PickedUp)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where(
			"created_at < ? OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Reservation
	err = q.Order("created_at DESC, id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &ReservationList{Reservations: rows}
	if len(rows) > limit {
		list.Reservations = rows[:limit]
		last := list.Reservations[limit-1]
		next := pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		list.NextCursor = &next
	}
	return list, nil
}

func (r *repository) CountRecords(ctx context.Context, reservationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CheckoutRecord{}).
		Where("reservation_id = ?", reservationID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListSettledBefore returns reservations whose loan is fully closed: picked
// up, at least one checkout record, nothing still out, and the last return
// on or before the cutoff.
func (r *repository) ListSettledBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Select("reservations.id").
		Where("picked_up = ?", true).
		Where("EXISTS (SELECT 1 FROM checkout_records WHERE reservation_id = reservations.id)").
		Where("NOT EXISTS (SELECT 1 FROM checkout_records WHERE reservation_id = reservations.id AND status = ?)",
			enums.CheckoutStatusCheckedOut).
		Where("(SELECT MAX(returned_at) FROM checkout_records WHERE reservation_id = reservations.id) <= ?", cutoff).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}

// Purge removes a reservation and its thread. Checkout records survive with
// the reservation link cleared; they are the loan history of the items.
func (r *repository) Purge(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&models.CheckoutRecord{}).
		Where("reservation_id = ?", id).
		Update("reservation_id", nil).Error
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).
		Where("reservation_id = ?", id).
		Delete(&models.Message{}).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Reservation{}).Error
}
