package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mediadesk/mediadesk-backend/pkg/config"
	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "mediadesk-test", Output: io.Discard})
}

func testReservation() *models.Reservation {
	return &models.Reservation{
		RequesterName:  "Sam Rivera",
		RequesterEmail: "sam@campus.example.edu",
		Status:         enums.ReservationStatusApproved,
	}
}

func TestStatusUpdateSendsProviderPayload(t *testing.T) {
	var captured map[string]any
	var authHeader string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	d, err := NewDispatcher(config.MailerConfig{
		APIKey:    "test-key",
		FromEmail: "desk@library.example.edu",
		FromName:  "Media Desk",
		Endpoint:  server.URL,
		Timeout:   time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	if err := d.StatusUpdate(context.Background(), testReservation()); err != nil {
		t.Fatalf("status update: %v", err)
	}

	if authHeader != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", authHeader)
	}
	if captured["subject"] != "Your equipment reservation was approved" {
		t.Fatalf("unexpected subject %v", captured["subject"])
	}
	from, _ := captured["from"].(map[string]any)
	if from["email"] != "desk@library.example.edu" {
		t.Fatalf("unexpected from address %v", from)
	}
}

func TestStatusUpdateRejectsUnseen(t *testing.T) {
	d, err := NewDispatcher(config.MailerConfig{Disabled: true}, testLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	res := testReservation()
	res.Status = enums.ReservationStatusUnseen
	err = d.StatusUpdate(context.Background(), res)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDisabledDispatcherSkipsSend(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	d, err := NewDispatcher(config.MailerConfig{Disabled: true, Endpoint: server.URL}, testLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	if err := d.SubmissionReceived(context.Background(), testReservation()); err != nil {
		t.Fatalf("submission received: %v", err)
	}
	if hits != 0 {
		t.Fatalf("expected no provider calls when disabled, got %d", hits)
	}
}

func TestProviderErrorSurfacesDependency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	d, err := NewDispatcher(config.MailerConfig{
		APIKey:   "test-key",
		Endpoint: server.URL,
		Timeout:  time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	err = d.SubmissionReceived(context.Background(), testReservation())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestNewDispatcherRequiresKeyWhenEnabled(t *testing.T) {
	if _, err := NewDispatcher(config.MailerConfig{}, testLogger()); err == nil {
		t.Fatal("expected missing api key error")
	}
}

func TestReadyForPickupIncludesPickupDetails(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d, err := NewDispatcher(config.MailerConfig{
		APIKey:     "test-key",
		Endpoint:   server.URL,
		PickupLink: "https://mediadesk.example.edu/pickup",
		Timeout:    time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	res := testReservation()
	date := "2026-09-01"
	loc := "Front Desk"
	res.PickupDate = &date
	res.PickupLocation = &loc

	if err := d.ReadyForPickup(context.Background(), res); err != nil {
		t.Fatalf("ready for pickup: %v", err)
	}

	contents, _ := captured["content"].([]any)
	if len(contents) != 1 {
		t.Fatalf("expected one content block, got %d", len(contents))
	}
	block, _ := contents[0].(map[string]any)
	text, _ := block["value"].(string)
	for _, want := range []string{"2026-09-01", "Front Desk", "https://mediadesk.example.edu/pickup"} {
		if !strings.Contains(text, want) {
			t.Errorf("mail body missing %q", want)
		}
	}
}
