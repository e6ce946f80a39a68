package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
	"github.com/mediadesk/mediadesk-backend/pkg/metrics"
)

const overdueReminderJobName = "overdue-reminder"

type overdueLister interface {
	ListOverdue(ctx context.Context, asOf time.Time) ([]models.CheckoutRecord, error)
}

type overdueReservationFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
}

type overdueMailer interface {
	OverdueReminder(ctx context.Context, res *models.Reservation, rec *models.CheckoutRecord) error
}

// OverdueReminderJobParams configure the overdue loan reminder job.
type OverdueReminderJobParams struct {
	Logger       *logger.Logger
	Records      overdueLister
	Reservations overdueReservationFinder
	Mailer       overdueMailer
	Metrics      *metrics.CronJobMetrics
}

// NewOverdueReminderJob builds the job that mails requesters about units
// still out past their due date. Walk-up records without a reservation link
// have no address on file and are only logged.
func NewOverdueReminderJob(params OverdueReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Records == nil {
		return nil, fmt.Errorf("checkout records repository required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservations finder required")
	}
	if params.Mailer == nil {
		return nil, fmt.Errorf("mail dispatcher required")
	}
	return &overdueReminderJob{
		logg:         params.Logger,
		records:      params.Records,
		reservations: params.Reservations,
		mail:         params.Mailer,
		metrics:      params.Metrics,
		now:          time.Now,
	}, nil
}

type overdueReminderJob struct {
	logg         *logger.Logger
	records      overdueLister
	reservations overdueReservationFinder
	mail         overdueMailer
	metrics      *metrics.CronJobMetrics
	now          func() time.Time
}

func (j *overdueReminderJob) Name() string { return overdueReminderJobName }

func (j *overdueReminderJob) Run(ctx context.Context) error {
	asOf := j.now().UTC()
	overdue, err := j.records.ListOverdue(ctx, asOf)
	if err != nil {
		return fmt.Errorf("list overdue records: %w", err)
	}

	loaded := make(map[uuid.UUID]*models.Reservation)
	var sent int64
	var errs error
	var unlinked int
	for i := range overdue {
		rec := &overdue[i]
		if rec.ReservationID == nil {
			unlinked++
			continue
		}
		res, ok := loaded[*rec.ReservationID]
		if !ok {
			res, err = j.reservations.FindByID(ctx, *rec.ReservationID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("load reservation %s: %w", *rec.ReservationID, err))
				continue
			}
			loaded[*rec.ReservationID] = res
		}
		if err := j.mail.OverdueReminder(ctx, res, rec); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("remind %s about record %s: %w", res.RequesterEmail, rec.ID, err))
			continue
		}
		sent++
	}

	j.metrics.AddSwept(overdueReminderJobName, sent)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"as_of":          asOf,
		"overdue":        len(overdue),
		"reminders_sent": sent,
		"unlinked":       unlinked,
	})
	j.logg.Info(logCtx, "overdue reminder pass complete")
	if errs != nil {
		return fmt.Errorf("overdue reminders: %w", errs)
	}
	return nil
}
