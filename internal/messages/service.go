package messages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/internal/mailer"
	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
)

// pickupGraceWindow keeps a picked-up reservation routable for inbound mail.
const pickupGraceWindow = 7 * 24 * time.Hour

// AppendInput carries one new thread entry.
type AppendInput struct {
	ReservationID uuid.UUID
	SenderType    enums.SenderType
	SenderName    string
	SenderEmail   string
	Body          string
}

// Service owns the per-reservation conversation log.
type Service interface {
	Append(ctx context.Context, input AppendInput) (*models.Message, error)
	Thread(ctx context.Context, reservationID uuid.UUID, order ThreadOrder) ([]models.Message, error)
	RouteInbound(ctx context.Context, senderEmail, body string) (*models.Message, error)
}

type service struct {
	repo   Repository
	finder ReservationFinder
	mail   mailer.Dispatcher
	logg   *logger.Logger
	now    func() time.Time
}

// NewService builds a messages service with the required dependencies.
func NewService(repo Repository, finder ReservationFinder, mail mailer.Dispatcher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("messages repository required")
	}
	if finder == nil {
		return nil, fmt.Errorf("reservation finder required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mail dispatcher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		finder: finder,
		mail:   mail,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Append(ctx context.Context, input AppendInput) (*models.Message, error) {
	if input.ReservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	if !input.SenderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid sender type")
	}
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body cannot be empty")
	}

	res, err := s.finder.FindByID(ctx, input.ReservationID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reservation")
	}

	msg := &models.Message{
		ID:            uuid.New(),
		ReservationID: input.ReservationID,
		SenderType:    input.SenderType,
		SenderName:    strings.TrimSpace(input.SenderName),
		SenderEmail:   strings.ToLower(strings.TrimSpace(input.SenderEmail)),
		Body:          body,
	}
	created, err := s.repo.Create(ctx, msg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append message")
	}

	if input.SenderType == enums.SenderTypeAdmin {
		// mail failures never block a committed append
		_ = s.mail.StaffReply(ctx, res, body)
	}
	return created, nil
}

func (s *service) Thread(ctx context.Context, reservationID uuid.UUID, order ThreadOrder) ([]models.Message, error) {
	if reservationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reservation id required")
	}
	msgs, err := s.repo.ListByReservation(ctx, reservationID, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list thread")
	}
	return msgs, nil
}

// RouteInbound attaches an inbound reply to the sender's most recent live
// reservation. Unroutable mail is dropped, not stored.
func (s *service) RouteInbound(ctx context.Context, senderEmail, body string) (*models.Message, error) {
	email := strings.ToLower(strings.TrimSpace(senderEmail))
	text := strings.TrimSpace(body)
	if email == "" || text == "" {
		s.logg.Warn(ctx, "dropping inbound mail with empty sender or body")
		return nil, nil
	}

	since := s.now().Add(-pickupGraceWindow)
	res, err := s.finder.FindRoutableByEmail(ctx, email, since)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.logg.Warn(s.logg.WithField(ctx, "sender", email), "dropping inbound mail with no routable reservation")
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "route inbound mail")
	}

	msg := &models.Message{
		ID:            uuid.New(),
		ReservationID: res.ID,
		SenderType:    enums.SenderTypeRequester,
		SenderName:    res.RequesterName,
		SenderEmail:   email,
		Body:          text,
	}
	created, err := s.repo.Create(ctx, msg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store inbound message")
	}
	return created, nil
}
