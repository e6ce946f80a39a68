package messages

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/internal/reservations"
	"github.com/mediadesk/mediadesk-backend/pkg/db/models"
	"github.com/mediadesk/mediadesk-backend/pkg/enums"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
	"github.com/mediadesk/mediadesk-backend/pkg/logger"
)

type stubDispatcher struct {
	staffReplies []string
}

func (s *stubDispatcher) SubmissionReceived(ctx context.Context, res *models.Reservation) error {
	return nil
}

func (s *stubDispatcher) StatusUpdate(ctx context.Context, res *models.Reservation) error {
	return nil
}

func (s *stubDispatcher) ReadyForPickup(ctx context.Context, res *models.Reservation) error {
	return nil
}

func (s *stubDispatcher) StaffReply(ctx context.Context, res *models.Reservation, body string) error {
	s.staffReplies = append(s.staffReplies, body)
	return nil
}

func (s *stubDispatcher) OverdueReminder(ctx context.Context, res *models.Reservation, rec *models.CheckoutRecord) error {
	return nil
}

func setupMessagesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:messages_" + uuid.NewString() + "?mode=memory&cache=shared"
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

func newMessagesService(t *testing.T, conn *gorm.DB) (Service, *stubDispatcher) {
	t.Helper()
	mail := &stubDispatcher{}
	logg := logger.New(logger.Options{ServiceName: "mediadesk-test", Output: io.Discard})
	svc, err := NewService(NewRepository(conn), reservations.NewRepository(conn), mail, logg)
	require.NoError(t, err)
	return svc, mail
}

func seedThreadReservation(t *testing.T, conn *gorm.DB, email string, status enums.ReservationStatus, createdAt time.Time) *models.Reservation {
	t.Helper()
	res := &models.Reservation{
		ID:             uuid.New(),
		RequesterName:  "Sam Rivera",
		RequesterEmail: email,
		Status:         status,
		CreatedAt:      createdAt,
	}
	require.NoError(t, conn.Create(res).Error)
	return res
}

func TestAppendRejectsBlankBody(t *testing.T) {
	conn := setupMessagesTestDB(t)
	svc, _ := newMessagesService(t, conn)

	res := seedThreadReservation(t, conn, "sam@campus.example.edu", enums.ReservationStatusUnseen, time.Now().UTC())

	_, err := svc.Append(context.Background(), AppendInput{
		ReservationID: res.ID,
		SenderType:    enums.SenderTypeRequester,
		Body:          "   \n\t ",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestAppendUnknownReservation(t *testing.T) {
	conn := setupMessagesTestDB(t)
	svc, _ := newMessagesService(t, conn)

	_, err := svc.Append(context.Background(), AppendInput{
		ReservationID: uuid.New(),
		SenderType:    enums.SenderTypeRequester,
		Body:          "hello",
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestAppendStaffReplySendsMail(t *testing.T) {
	conn := setupMessagesTestDB(t)
	svc, mail := newMessagesService(t, conn)
	ctx := context.Background()

	res := seedThreadReservation(t, conn, "sam@campus.example.edu", enums.ReservationStatusSeen, time.Now().UTC())

	_, err := svc.Append(ctx, AppendInput{
		ReservationID: res.ID,
		SenderType:    enums.SenderTypeAdmin,
		SenderName:    "Dana Cole",
		SenderEmail:   "dana@library.example.edu",
		Body:          "Your camera bag is the blue one.",
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Your camera bag is the blue one."}, mail.staffReplies)

	_, err = svc.Append(ctx, AppendInput{
		ReservationID: res.ID,
		SenderType:    enums.SenderTypeRequester,
		SenderEmail:   res.RequesterEmail,
		Body:          "Thanks!",
	})
	require.NoError(t, err)
	require.Len(t, mail.staffReplies, 1, "requester messages never mail the requester")
}

func TestThreadOrder(t *testing.T) {
	conn := setupMessagesTestDB(t)
	svc, _ := newMessagesService(t, conn)
	ctx := context.Background()

	res := seedThreadReservation(t, conn, "sam@campus.example.edu", enums.ReservationStatusSeen, time.Now().UTC())
	base := time.Now().UTC().Add(-time.Hour)
	for i, body := range []string{"first", "second", "third"} {
		msg := &models.Message{
			ID:            uuid.New(),
			ReservationID: res.ID,
			SenderType:    enums.SenderTypeRequester,
			Body:          body,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, conn.Create(msg).Error)
	}

	oldest, err := svc.Thread(ctx, res.ID, ThreadOrderOldestFirst)
	require.NoError(t, err)
	require.Equal(t, "first", oldest[0].Body)
	require.Equal(t, "third", oldest[2].Body)

	newest, err := svc.Thread(ctx, res.ID, ThreadOrderNewestFirst)
	require.NoError(t, err)
	require.Equal(t, "third", newest[0].Body)
}

func TestRouteInboundPicksMostRecentLiveReservation(t *testing.T) {
	conn := setupMessagesTestDB(t)
	svc, _ := newMessagesService(t, conn)
	ctx := context.Background()

	email := "sam@campus.example.edu"
	now := time.Now().UTC()
	seedThreadReservation(t, conn, email, enums.ReservationStatusApproved, now.Add(-48*time.Hour))
	latest := seedThreadReservation(t, conn, email, enums.ReservationStatusSeen, now.Add(-time.Hour))
	seedThreadReservation(t, conn, email, enums.ReservationStatusDenied, now)

	msg, err := svc.RouteInbound(ctx, "Sam@Campus.example.edu", "Can I pick up earlier?")
	require.NoError(t, err)
	require.NotNil(t, msg)
	require.Equal(t, latest.ID, msg.ReservationID)
	require.Equal(t, enums.SenderTypeRequester, msg.SenderType)
}

func TestRouteInboundPickupGraceWindow(t *testing.T) {
	conn := setupMessagesTestDB(t)
	svc, _ := newMessagesService(t, conn)
	ctx := context.Background()
	now := time.Now().UTC()

	recent := seedThreadReservation(t, conn, "recent@campus.example.edu", enums.ReservationStatusApproved, now.Add(-24*time.Hour))
	recentAt := now.Add(-3 * 24 * time.Hour)
	require.NoError(t, conn.Model(&models.Reservation{}).Where("id = ?", recent.ID).
		Updates(map[string]any{"picked_up": true, "picked_up_at": recentAt}).Error)

	msg, err := svc.RouteInbound(ctx, "recent@campus.example.edu", "Left a lens cap in the bag")
	require.NoError(t, err)
	require.NotNil(t, msg, "picked up three days ago is still routable")

	stale := seedThreadReservation(t, conn, "stale@campus.example.edu", enums.ReservationStatusApproved, now.Add(-30*24*time.Hour))
	staleAt := now.Add(-10 * 24 * time.Hour)
	require.NoError(t, conn.Model(&models.Reservation{}).Where("id = ?", stale.ID).
		Updates(map[string]any{"picked_up": true, "picked_up_at": staleAt}).Error)

	msg, err = svc.RouteInbound(ctx, "stale@campus.example.edu", "hello?")
	require.NoError(t, err)
	require.Nil(t, msg, "pickup older than the grace window is not routable")
}

func TestRouteInboundDropsUnmatched(t *testing.T) {
	conn := setupMessagesTestDB(t)
	svc, _ := newMessagesService(t, conn)

	msg, err := svc.RouteInbound(context.Background(), "nobody@campus.example.edu", "hello")
	require.NoError(t, err)
	require.Nil(t, msg)

	var count int64
	require.NoError(t, conn.Model(&models.Message{}).Count(&count).Error)
	require.Equal(t, int64(0), count, "dropped mail is not stored")
}
