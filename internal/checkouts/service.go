package checkouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/internal/inventory"
	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ItemUsageMarker stamps last_used_at on an item inside the caller's transaction.
type ItemUsageMarker interface {
	MarkUsed(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, at time.Time) error
}

// Service defines checkout record operations.
type Service interface {
	Checkout(ctx context.Context, input CheckoutInput) ([]models.CheckoutRecord, error)
	Return(ctx context.Context, id uuid.UUID) (*models.CheckoutRecord, error)
	ReturnAllForReservation(ctx context.Context, reservationID uuid.UUID) (int64, error)
	ListActive(ctx context.Context) ([]models.CheckoutRecord, error)
	ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.CheckoutRecord, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]models.CheckoutRecord, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	claimer inventory.UnitClaimer
	usage   ItemUsageMarker
	now     func() time.Time
}

// NewService builds a checkouts service with the required dependencies.
func NewService(repo Repository, tx txRunner, claimer inventory.UnitClaimer, usage ItemUsageMarker) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("checkouts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if claimer == nil {
		return nil, fmt.Errorf("unit claimer required")
	}
	if usage == nil {
		return nil, fmt.Errorf("item usage marker required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		claimer: claimer,
		usage:   usage,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Checkout claims the requested units under the item row lock and writes one
// record per physical unit in the same transaction.
func (s *service) Checkout(ctx context.Context, input CheckoutInput) ([]models.CheckoutRecord, error) {
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout quantity must be positive")
	}
	if input.FromDate.IsZero() || input.DueDate.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout window required")
	}
	if !input.DueDate.After(input.FromDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "due date must be after start date")
	}

	now := s.now()
	records := make([]models.CheckoutRecord, 0, input.Quantity)
	for i := 0; i < input.Quantity; i++ {
		records = append(records, models.CheckoutRecord{
			ID:            uuid.New(),
			ItemID:        input.ItemID,
			ReservationID: input.ReservationID,
			Status:        enums.CheckoutStatusCheckedOut,
			FromDate:      input.FromDate,
			DueDate:       input.DueDate,
			CheckedOutAt:  now,
			Provenance:    input.Provenance,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.claimer.Claim(ctx, tx, input.ItemID, input.Quantity); err != nil {
			return err
		}
		if err := s.repo.WithTx(tx).CreateBatch(ctx, records); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout records")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Return closes one unit. The guarded update only moves checked_out rows, so a
// double return surfaces as a conflict instead of silently restamping.
func (s *service) Return(ctx context.Context, id uuid.UUID) (*models.CheckoutRecord, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout record id required")
	}

	var returned *models.CheckoutRecord
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()

		rows, err := repo.MarkReturned(ctx, id, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark checkout returned")
		}
		if rows == 0 {
			if _, err := repo.FindByID(ctx, id); err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "checkout record not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout record")
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "checkout record already returned")
		}

		rec, err := repo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load checkout record")
		}
		if err := s.usage.MarkUsed(ctx, tx, rec.ItemID, now); err != nil {
			return err
		}
		returned = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return returned, nil
}

// ReturnAllForReservation closes every active unit on the reservation. A
// reservation with nothing out is a conflict so staff see the stale state.
func (s *service) ReturnAllForReservation(ctx context.Context, reservationID uuid.UUID) (int64, error) {
	if reservationID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}

	var returned int64
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		now := s.now()

		active, err := repo.ListActiveByReservation(ctx, reservationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active checkouts")
		}
		if len(active) == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "reservation has no active checkouts")
		}

		rows, err := repo.MarkReturnedByReservation(ctx, reservationID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark reservation checkouts returned")
		}
		returned = rows

		seen := map[uuid.UUID]bool{}
		for _, rec := range active {
			if seen[rec.ItemID] {
				continue
			}
			seen[rec.ItemID] = true
			if err := s.usage.MarkUsed(ctx, tx, rec.ItemID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return returned, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.CheckoutRecord, error) {
	records, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list active checkouts")
	}
	return records, nil
}

func (s *service) ListByReservation(ctx context.Context, reservationID uuid.UUID) ([]models.CheckoutRecord, error) {
	if reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	records, err := s.repo.ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reservation checkouts")
	}
	return records, nil
}

func (s *service) ListOverdue(ctx context.Context, asOf time.Time) ([]models.CheckoutRecord, error) {
	records, err := s.repo.ListOverdue(ctx, asOf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list overdue checkouts")
	}
	return records, nil
}

type itemUsageMarkerImpl struct{}

// NewItemUsageMarker exposes the default last-used stamping implementation.
func NewItemUsageMarker() ItemUsageMarker {
	return itemUsageMarkerImpl{}
}

func (itemUsageMarkerImpl) MarkUsed(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, at time.Time) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for usage stamp")
	}
	res := tx.WithContext(ctx).Exec(`
		UPDATE equipment_items
		SET last_used_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, at, itemID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "stamp item usage")
	}
	return nil
}
