package triage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
)

// Counts is the staff attention snapshot, recomputed on demand.
type Counts struct {
	Unseen        int64 `json:"unseen"`
	UnreadReplies int64 `json:"unreadReplies"`
}

// Repository defines the aggregate reads behind the counters.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	PendingCount(ctx context.Context) (int64, error)
	UnreadReplyCount(ctx context.Context) (int64, error)
}

// Service exposes the notification counters.
type Service interface {
	Counts(ctx context.Context) (*Counts, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a triage repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) PendingCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("status IN ?", []enums.ReservationStatus{
			enums.ReservationStatusUnseen,
			enums.ReservationStatusSeen,
		}).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// UnreadReplyCount counts reservations whose newest message came from the
// requester and postdates the staff viewing watermark.
func (r *repository) UnreadReplyCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM reservations r
		WHERE EXISTS (
			SELECT 1 FROM messages m
			WHERE m.reservation_id = r.id
			  AND m.created_at = (
				SELECT MAX(created_at) FROM messages
				WHERE reservation_id = r.id
			  )
			  AND m.sender_type = ?
			  AND (r.messages_last_viewed_at IS NULL OR m.created_at > r.messages_last_viewed_at)
		)
	`, enums.SenderTypeRequester).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

type service struct {
	repo Repository
}

// NewService builds the triage counter service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("triage repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Counts(ctx context.Context) (*Counts, error) {
	pending, err := s.repo.PendingCount(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count pending reservations")
	}
	replies, err := s.repo.UnreadReplyCount(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread replies")
	}
	return &Counts{Unseen: pending, UnreadReplies: replies}, nil
}
