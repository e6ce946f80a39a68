package reservations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/internal/checkouts"
	"github.com/mediadesk/mediadesk-backend/internal/inventory"
	"github.com/mediadesk/mediadesk-backend/internal/mailer"
	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
	"github.com/mediadesk/mediadesk-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the reservation lifecycle from submission to pickup.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Reservation, error)
	UpdateStatus(ctx context.Context, actor StaffActor, input UpdateStatusInput) (*models.Reservation, error)
	SetReadyForPickup(ctx context.Context, actor StaffActor, input PickupSchedulingInput) (*models.Reservation, error)
	SetPickedUp(ctx context.Context, actor StaffActor, id uuid.UUID) (*models.Reservation, error)
	Delete(ctx context.Context, actor StaffActor, id uuid.UUID) error
	MarkThreadViewed(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, params pagination.Params, filters ListFilters) (*ReservationList, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
}

type service struct {
	repo      Repository
	records   checkouts.Repository
	tx        txRunner
	inventory inventory.Service
	claimer   inventory.UnitClaimer
	mail      mailer.Dispatcher
	now       func() time.Time
}

// NewService builds a reservations service with the required dependencies.
func NewService(
	repo Repository,
	records checkouts.Repository,
	tx txRunner,
	inv inventory.Service,
	claimer inventory.UnitClaimer,
	mail mailer.Dispatcher,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservations repository required")
	}
	if records == nil {
		return nil, fmt.Errorf("checkouts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	if claimer == nil {
		return nil, fmt.Errorf("unit claimer required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mail dispatcher required")
	}
	return &service{
		repo:      repo,
		records:   records,
		tx:        tx,
		inventory: inv,
		claimer:   claimer,
		mail:      mail,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Reservation, error) {
	name := strings.TrimSpace(input.RequesterName)
	email := strings.ToLower(strings.TrimSpace(input.RequesterEmail))
	purpose := strings.TrimSpace(input.Purpose)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester name required")
	}
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requester email required")
	}
	if purpose == "" {
		// the purpose seeds the conversation thread, so every submission
		// must carry one
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purpose required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item line required")
	}
	for _, line := range input.Lines {
		if line.ItemID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required on every line")
		}
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be at least 1")
		}
		if line.FromDate.IsZero() || line.ToDate.IsZero() || line.ToDate.Before(line.FromDate) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line date window is invalid")
		}
	}

	if err := s.inventory.EnsureReservable(ctx, input.Lines); err != nil {
		return nil, err
	}

	res := &models.Reservation{
		ID:             uuid.New(),
		RequesterName:  name,
		RequesterEmail: email,
		RequesterPhone: strings.TrimSpace(input.RequesterPhone),
		Purpose:        purpose,
		ItemLines:      input.Lines,
		Status:         enums.ReservationStatusUnseen,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, res); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create reservation")
		}
		msg := &models.Message{
			ID:            uuid.New(),
			ReservationID: res.ID,
			SenderType:    enums.SenderTypeRequester,
			SenderName:    res.RequesterName,
			SenderEmail:   res.RequesterEmail,
			Body:          res.Purpose,
		}
		if err := tx.WithContext(ctx).Create(msg).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed conversation thread")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// mail failures never block a committed submission
	_ = s.mail.SubmissionReceived(ctx, res)
	return res, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor StaffActor, input UpdateStatusInput) (*models.Reservation, error) {
	if input.ReservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid reservation status")
	}

	var updated *models.Reservation
	var changed bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		res, err := repo.FindByIDForUpdate(ctx, input.ReservationID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}

		changed = res.Status != input.Status
		updates := map[string]any{"status": input.Status}
		if changed && input.Status.IsDecided() {
			now := s.now()
			actorName := actor.Name
			updates["approved_by"] = actorName
			updates["approved_at"] = now
			res.ApprovedBy = &actorName
			res.ApprovedAt = &now
		}
		if changed {
			if err := repo.Update(ctx, res.ID, updates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update reservation status")
			}
			res.Status = input.Status
		}

		if body := strings.TrimSpace(input.Message); body != "" {
			msg := &models.Message{
				ID:            uuid.New(),
				ReservationID: res.ID,
				SenderType:    enums.SenderTypeAdmin,
				SenderName:    actor.Name,
				SenderEmail:   actor.Email,
				Body:          body,
			}
			if err := tx.WithContext(ctx).Create(msg).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append decision message")
			}
		}

		updated = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed && updated.Status != enums.ReservationStatusUnseen {
		_ = s.mail.StatusUpdate(ctx, updated)
	}
	return updated, nil
}

func (s *service) SetReadyForPickup(ctx context.Context, actor StaffActor, input PickupSchedulingInput) (*models.Reservation, error) {
	if input.ReservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	date := strings.TrimSpace(input.PickupDate)
	clock := strings.TrimSpace(input.PickupTime)
	location := strings.TrimSpace(input.PickupLocation)
	if date == "" || clock == "" || location == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup date, time and location are all required")
	}

	var updated *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		res, err := s.loadApprovedForUpdate(ctx, repo, input.ReservationID)
		if err != nil {
			return err
		}

		if err := s.fulfill(ctx, tx, res); err != nil {
			return err
		}

		updates := map[string]any{
			"ready_for_pickup": true,
			"pickup_date":      date,
			"pickup_time":      clock,
			"pickup_location":  location,
		}
		if err := repo.Update(ctx, res.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update pickup scheduling")
		}
		res.ReadyForPickup = true
		res.PickupDate = &date
		res.PickupTime = &clock
		res.PickupLocation = &location
		updated = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.mail.ReadyForPickup(ctx, updated)
	return updated, nil
}

func (s *service) SetPickedUp(ctx context.Context, actor StaffActor, id uuid.UUID) (*models.Reservation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	if actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}

	var updated *models.Reservation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		res, err := s.loadApprovedForUpdate(ctx, repo, id)
		if err != nil {
			return err
		}

		if err := s.fulfill(ctx, tx, res); err != nil {
			return err
		}

		now := s.now()
		updates := map[string]any{
			"picked_up":    true,
			"picked_up_at": now,
		}
		if err := repo.Update(ctx, res.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update pickup state")
		}
		res.PickedUp = true
		res.PickedUpAt = &now
		updated = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// fulfill expands the reservation's lines into checkout records exactly once.
// The caller holds the reservation row lock; an existing record for the
// reservation means a previous milestone already fulfilled it.
func (s *service) fulfill(ctx context.Context, tx *gorm.DB, res *models.Reservation) error {
	repo := s.repo.WithTx(tx)
	existing, err := repo.CountRecords(ctx, res.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count checkout records")
	}
	if existing > 0 {
		return nil
	}

	// claims are folded per item: two lines for the same item must contend
	// for their summed quantity, not one line's worth at a time
	for itemID, qty := range res.ItemLines.QuantityByItem() {
		if err := s.claimer.Claim(ctx, tx, itemID, qty); err != nil {
			return err
		}
	}

	now := s.now()
	provenance := fmt.Sprintf("reservation: %s", res.RequesterName)
	var records []models.CheckoutRecord
	for _, line := range res.ItemLines {
		for i := 0; i < line.Quantity; i++ {
			resID := res.ID
			records = append(records, models.CheckoutRecord{
				ID:            uuid.New(),
				ItemID:        line.ItemID,
				ReservationID: &resID,
				Status:        enums.CheckoutStatusCheckedOut,
				FromDate:      line.FromDate,
				DueDate:       line.ToDate,
				CheckedOutAt:  now,
				Provenance:    provenance,
			})
		}
	}
	if err := s.records.WithTx(tx).CreateBatch(ctx, records); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout records")
	}
	return nil
}

func (s *service) Delete(ctx context.Context, actor StaffActor, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	if actor.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "staff identity missing")
	}
	if actor.Role != enums.StaffRoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only administrators can delete reservations")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByID(ctx, id); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
		}

		// records survive with the link cleared; messages go with the thread
		if err := repo.Purge(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete reservation")
		}
		return nil
	})
}

func (s *service) MarkThreadViewed(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	err := s.repo.Update(ctx, id, map[string]any{"messages_last_viewed_at": s.now()})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update thread watermark")
	}
	return nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters) (*ReservationList, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reservations")
	}
	return list, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	res, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	return res, nil
}

func (s *service) loadApprovedForUpdate(ctx context.Context, repo Repository, id uuid.UUID) (*models.Reservation, error) {
	res, err := repo.FindByIDForUpdate(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}
	if res.Status != enums.ReservationStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "reservation is not approved")
	}
	return res, nil
}
