package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/internal/reservations"
	"github.com/mediadesk/mediadesk-backend/pkg/db"
	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
)

func setupRetentionTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:cron_retention_" + uuid.NewString() + "?mode=memory&cache=shared"
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
CREATE TABLE IF NOT EXISTS checkout_records (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL,
  reservation_id TEXT,
  status TEXT NOT NULL DEFAULT 'checked_out',
  from_date DATETIME NOT NULL,
  due_date DATETIME NOT NULL,
  checked_out_at DATETIME NOT NULL,
  returned_at DATETIME,
  provenance TEXT,
  created_at DATETIME
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

func newRetentionSweeper(t *testing.T, conn *gorm.DB, window time.Duration, now time.Time) *RetentionSweeper {
	t.Helper()
	sweeper, err := NewRetentionSweeper(RetentionSweeperParams{
		Logger:     logger.New(logger.Options{ServiceName: "cron-test"}),
		DB:         db.NewWithConn(conn),
		Repository: reservations.NewRepository(conn),
		Window:     window,
	})
	require.NoError(t, err)
	sweeper.now = func() time.Time { return now }
	return sweeper
}

func seedSweepReservation(t *testing.T, conn *gorm.DB, pickedUp bool) *models.Reservation {
	t.Helper()
	res := &models.Reservation{
		ID:             uuid.New(),
		RequesterName:  "Sam Rivera",
		RequesterEmail: "sam@campus.example.edu",
		Status:         enums.ReservationStatusApproved,
		PickedUp:       pickedUp,
	}
	if pickedUp {
		at := time.Now().UTC().Add(-90 * 24 * time.Hour)
		res.PickedUpAt = &at
	}
	require.NoError(t, conn.Create(res).Error)

	msg := &models.Message{
		ID:            uuid.New(),
		ReservationID: res.ID,
		SenderType:    enums.SenderTypeRequester,
		Body:          "thread seed",
	}
	require.NoError(t, conn.Create(msg).Error)
	return res
}

func seedSweepRecord(t *testing.T, conn *gorm.DB, reservationID uuid.UUID, status enums.CheckoutStatus, returnedAt *time.Time) *models.CheckoutRecord {
	t.Helper()
	now := time.Now().UTC()
	rec := &models.CheckoutRecord{
		ID:            uuid.New(),
		ItemID:        uuid.New(),
		ReservationID: &reservationID,
		Status:        status,
		FromDate:      now.Add(-100 * 24 * time.Hour),
		DueDate:       now.Add(-95 * 24 * time.Hour),
		CheckedOutAt:  now.Add(-100 * 24 * time.Hour),
		ReturnedAt:    returnedAt,
	}
	require.NoError(t, conn.Create(rec).Error)
	return rec
}

func TestSweepDeletesSettledReservations(t *testing.T) {
	conn := setupRetentionTestDB(t)
	now := time.Now().UTC()
	window := 60 * 24 * time.Hour
	sweeper := newRetentionSweeper(t, conn, window, now)
	ctx := context.Background()

	oldReturn := now.Add(-90 * 24 * time.Hour)
	settled := seedSweepReservation(t, conn, true)
	seedSweepRecord(t, conn, settled.ID, enums.CheckoutStatusReturned, &oldReturn)
	seedSweepRecord(t, conn, settled.ID, enums.CheckoutStatusReturned, &oldReturn)

	stillOut := seedSweepReservation(t, conn, true)
	seedSweepRecord(t, conn, stillOut.ID, enums.CheckoutStatusReturned, &oldReturn)
	seedSweepRecord(t, conn, stillOut.ID, enums.CheckoutStatusCheckedOut, nil)

	freshReturn := now.Add(-5 * 24 * time.Hour)
	recent := seedSweepReservation(t, conn, true)
	seedSweepRecord(t, conn, recent.ID, enums.CheckoutStatusReturned, &freshReturn)

	// picked up but never fulfilled, nothing to settle against
	noRecords := seedSweepReservation(t, conn, true)
	_ = noRecords

	notPickedUp := seedSweepReservation(t, conn, false)
	seedSweepRecord(t, conn, notPickedUp.ID, enums.CheckoutStatusReturned, &oldReturn)

	result, err := sweeper.Sweep(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.Eligible)
	require.Equal(t, 1, result.Deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.Reservation{}).Count(&remaining).Error)
	require.Equal(t, int64(4), remaining)

	var gone int64
	require.NoError(t, conn.Model(&models.Reservation{}).Where("id = ?", settled.ID).Count(&gone).Error)
	require.Zero(t, gone)

	// the thread goes with the reservation, the loan history stays
	var msgs int64
	require.NoError(t, conn.Model(&models.Message{}).Where("reservation_id = ?", settled.ID).Count(&msgs).Error)
	require.Zero(t, msgs)

	var unlinked int64
	require.NoError(t, conn.Model(&models.CheckoutRecord{}).Where("reservation_id IS NULL").Count(&unlinked).Error)
	require.Equal(t, int64(2), unlinked)
}

func TestSweepDryRunDeletesNothing(t *testing.T) {
	conn := setupRetentionTestDB(t)
	now := time.Now().UTC()
	sweeper := newRetentionSweeper(t, conn, 60*24*time.Hour, now)

	oldReturn := now.Add(-90 * 24 * time.Hour)
	settled := seedSweepReservation(t, conn, true)
	seedSweepRecord(t, conn, settled.ID, enums.CheckoutStatusReturned, &oldReturn)

	result, err := sweeper.Sweep(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, 1, result.Eligible)
	require.Zero(t, result.Deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.Reservation{}).Count(&remaining).Error)
	require.Equal(t, int64(1), remaining)
}

func TestRetentionJobRunsSweep(t *testing.T) {
	conn := setupRetentionTestDB(t)
	now := time.Now().UTC()
	sweeper := newRetentionSweeper(t, conn, 60*24*time.Hour, now)

	oldReturn := now.Add(-90 * 24 * time.Hour)
	settled := seedSweepReservation(t, conn, true)
	seedSweepRecord(t, conn, settled.ID, enums.CheckoutStatusReturned, &oldReturn)

	job, err := NewRetentionJob(RetentionJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		Sweeper: sweeper,
	})
	require.NoError(t, err)
	require.Equal(t, "reservation-retention", job.Name())
	require.NoError(t, job.Run(context.Background()))

	var remaining int64
	require.NoError(t, conn.Model(&models.Reservation{}).Count(&remaining).Error)
	require.Zero(t, remaining)
}
