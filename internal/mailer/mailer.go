package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mediadesk/mediadesk-backend/pkg/config"
	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
)

// Dispatcher sends requester-facing notification mail. Callers treat send
// failures as non-fatal; the workflow state change always wins.
type Dispatcher interface {
	SubmissionReceived(ctx context.Context, res *models.Reservation) error
	StatusUpdate(ctx context.Context, res *models.Reservation) error
	ReadyForPickup(ctx context.Context, res *models.Reservation) error
	StaffReply(ctx context.Context, res *models.Reservation, body string) error
	OverdueReminder(ctx context.Context, res *models.Reservation, rec *models.CheckoutRecord) error
}

type dispatcher struct {
	cfg    config.MailerConfig
	client *http.Client
	logg   *logger.Logger
}

// NewDispatcher builds the outbound mail client from injected config.
func NewDispatcher(cfg config.MailerConfig, logg *logger.Logger) (Dispatcher, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !cfg.Disabled && cfg.APIKey == "" {
		return nil, fmt.Errorf("mailer api key required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &dispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logg:   logg,
	}, nil
}

func (d *dispatcher) SubmissionReceived(ctx context.Context, res *models.Reservation) error {
	subject := "We received your equipment reservation"
	body := fmt.Sprintf(
		"Hi %s,\n\nYour reservation request has been received and is waiting for staff review. You will hear back once it has been approved or denied.\n",
		res.RequesterName,
	)
	return d.send(ctx, enums.MailKindSubmissionReceived, res.RequesterEmail, res.RequesterName, subject, body)
}

func (d *dispatcher) StatusUpdate(ctx context.Context, res *models.Reservation) error {
	var subject, verdict string
	switch res.Status {
	case enums.ReservationStatusSeen:
		subject = "Your equipment reservation is being reviewed"
		verdict = "picked up by staff for review"
	case enums.ReservationStatusApproved:
		subject = "Your equipment reservation was approved"
		verdict = "approved"
	case enums.ReservationStatusDenied:
		subject = "Your equipment reservation was denied"
		verdict = "denied"
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "no status mail for an unseen reservation")
	}
	body := fmt.Sprintf("Hi %s,\n\nYour reservation request has been %s.\n", res.RequesterName, verdict)
	return d.send(ctx, enums.MailKindStatusUpdate, res.RequesterEmail, res.RequesterName, subject, body)
}

func (d *dispatcher) ReadyForPickup(ctx context.Context, res *models.Reservation) error {
	subject := "Your equipment is ready for pickup"
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\nYour reserved equipment is ready for pickup.\n", res.RequesterName)
	if res.PickupDate != nil && *res.PickupDate != "" {
		fmt.Fprintf(&b, "Pickup date: %s\n", *res.PickupDate)
	}
	if res.PickupTime != nil && *res.PickupTime != "" {
		fmt.Fprintf(&b, "Pickup time: %s\n", *res.PickupTime)
	}
	if res.PickupLocation != nil && *res.PickupLocation != "" {
		fmt.Fprintf(&b, "Location: %s\n", *res.PickupLocation)
	}
	if d.cfg.PickupLink != "" {
		fmt.Fprintf(&b, "\nDetails: %s\n", d.cfg.PickupLink)
	}
	return d.send(ctx, enums.MailKindReadyForPickup, res.RequesterEmail, res.RequesterName, subject, b.String())
}

func (d *dispatcher) StaffReply(ctx context.Context, res *models.Reservation, body string) error {
	subject := "New reply about your equipment reservation"
	text := fmt.Sprintf("Hi %s,\n\nStaff replied to your reservation:\n\n%s\n", res.RequesterName, body)
	return d.send(ctx, enums.MailKindStaffReply, res.RequesterEmail, res.RequesterName, subject, text)
}

func (d *dispatcher) OverdueReminder(ctx context.Context, res *models.Reservation, rec *models.CheckoutRecord) error {
	subject := "Equipment return overdue"
	itemName := "your borrowed equipment"
	if rec.Item != nil && rec.Item.Name != "" {
		itemName = rec.Item.Name
	}
	body := fmt.Sprintf(
		"Hi %s,\n\n%s was due back on %s. Please return it as soon as possible.\n",
		res.RequesterName, itemName, rec.DueDate.Format("January 2, 2006"),
	)
	return d.send(ctx, enums.MailKindOverdueReminder, res.RequesterEmail, res.RequesterName, subject, body)
}

type sendPayload struct {
	Personalizations []personalization `json:"personalizations"`
	From             address           `json:"from"`
	Subject          string            `json:"subject"`
	Content          []content         `json:"content"`
}

type personalization struct {
	To []address `json:"to"`
}

type address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type content struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

func (d *dispatcher) send(ctx context.Context, kind enums.MailKind, to, toName, subject, body string) error {
	if to == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email required")
	}
	if d.cfg.Disabled {
		d.logg.Info(d.logg.WithFields(ctx, map[string]any{"kind": kind.String(), "to": to}), "mailer disabled, skipping send")
		return nil
	}

	payload := sendPayload{
		Personalizations: []personalization{{To: []address{{Email: to, Name: toName}}}},
		From:             address{Email: d.cfg.FromEmail, Name: d.cfg.FromName},
		Subject:          subject,
		Content:          []content{{Type: "text/plain", Value: body}},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode mail payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build mail request")
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.logg.Error(ctx, "mail send failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send mail")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("mail provider returned %d", resp.StatusCode)
		d.logg.Error(ctx, "mail send rejected", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send mail")
	}

	d.logg.Info(d.logg.WithFields(ctx, map[string]any{"kind": kind.String(), "to": to}), "mail sent")
	return nil
}
