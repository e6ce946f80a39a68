package triage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
)

func setupTriageTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:triage_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS reservations (
  id TEXT PRIMARY KEY,
  requester_name TEXT NOT NULL,
  requester_email TEXT NOT NULL,
  requester_phone TEXT,
  purpose TEXT,
  item_lines TEXT,
  status TEXT NOT NULL DEFAULT 'unseen',
  approved_by TEXT,
  approved_at DATETIME,
  ready_for_pickup INTEGER NOT NULL DEFAULT 0,
  pickup_date TEXT,
  pickup_time TEXT,
  pickup_location TEXT,
  picked_up INTEGER NOT NULL DEFAULT 0,
  picked_up_at DATETIME,
  messages_last_viewed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS messages (
  id TEXT PRIMARY KEY,
  reservation_id TEXT NOT NULL,
  sender_type TEXT NOT NULL,
  sender_name TEXT,
  sender_email TEXT,
  body TEXT NOT NULL,
  created_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func seedTriageReservation(t *testing.T, conn *gorm.DB, status enums.ReservationStatus, viewedAt *time.Time) *models.Reservation {
	t.Helper()
	res := &models.Reservation{
		ID:                   uuid.New(),
		RequesterName:        "Sam Rivera",
		RequesterEmail:       "sam@campus.example.edu",
		Status:               status,
		MessagesLastViewedAt: viewedAt,
	}
	require.NoError(t, conn.Create(res).Error)
	return res
}

func seedTriageMessage(t *testing.T, conn *gorm.DB, reservationID uuid.UUID, sender enums.SenderType, at time.Time) {
	t.Helper()
	msg := &models.Message{
		ID:            uuid.New(),
		ReservationID: reservationID,
		SenderType:    sender,
		Body:          "ping",
		CreatedAt:     at,
	}
	require.NoError(t, conn.Create(msg).Error)
}

func TestCountsPending(t *testing.T) {
	conn := setupTriageTestDB(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)

	seedTriageReservation(t, conn, enums.ReservationStatusUnseen, nil)
	seedTriageReservation(t, conn, enums.ReservationStatusSeen, nil)
	seedTriageReservation(t, conn, enums.ReservationStatusApproved, nil)
	seedTriageReservation(t, conn, enums.ReservationStatusDenied, nil)

	counts, err := svc.Counts(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), counts.Unseen)
}

func TestCountsUnreadReplies(t *testing.T) {
	conn := setupTriageTestDB(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	now := time.Now().UTC()

	// never viewed, latest message from requester: counts
	unviewed := seedTriageReservation(t, conn, enums.ReservationStatusApproved, nil)
	seedTriageMessage(t, conn, unviewed.ID, enums.SenderTypeRequester, now.Add(-time.Hour))

	// viewed after the latest requester message: does not count
	viewedAfter := now.Add(-time.Minute)
	read := seedTriageReservation(t, conn, enums.ReservationStatusApproved, &viewedAfter)
	seedTriageMessage(t, conn, read.ID, enums.SenderTypeRequester, now.Add(-time.Hour))

	// viewed before a newer requester message: counts
	viewedBefore := now.Add(-2 * time.Hour)
	stale := seedTriageReservation(t, conn, enums.ReservationStatusApproved, &viewedBefore)
	seedTriageMessage(t, conn, stale.ID, enums.SenderTypeRequester, now.Add(-time.Hour))

	// latest message is the staff reply: does not count
	answered := seedTriageReservation(t, conn, enums.ReservationStatusApproved, nil)
	seedTriageMessage(t, conn, answered.ID, enums.SenderTypeRequester, now.Add(-2*time.Hour))
	seedTriageMessage(t, conn, answered.ID, enums.SenderTypeAdmin, now.Add(-time.Hour))

	// no messages at all: does not count
	seedTriageReservation(t, conn, enums.ReservationStatusApproved, nil)

	counts, err := svc.Counts(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), counts.UnreadReplies)
}
