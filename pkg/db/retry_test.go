package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mediadesk/mediadesk-backend/pkg/config"
	pkgerrors "github.com/mediadesk/mediadesk-backend/pkg/errors"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	dsn := "file:dbretry_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	return NewWithConn(conn)
}

func TestWithTxRetrySucceedsAfterTransientFailure(t *testing.T) {
	client := newTestClient(t)
	attempts := 0

	err := client.WithTxRetry(context.Background(), RetryPolicy{Attempts: 3, BaseWait: time.Millisecond}, func(tx *gorm.DB) error {
		attempts++
		if attempts < 2 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, attempts)
}

func TestWithTxRetryDoesNotRetryConflict(t *testing.T) {
	client := newTestClient(t)
	attempts := 0

	err := client.WithTxRetry(context.Background(), RetryPolicy{Attempts: 5, BaseWait: time.Millisecond}, func(tx *gorm.DB) error {
		attempts++
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient availability")
	})
	require.Equal(t, 1, attempts)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestWithTxRetryExhaustionSurfacesDependency(t *testing.T) {
	client := newTestClient(t)

	err := client.WithTxRetry(context.Background(), RetryPolicy{Attempts: 2, BaseWait: time.Millisecond}, func(tx *gorm.DB) error {
		return errors.New("pool exhausted")
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeDependency, typed.Code())
}

func TestTxRetrierRetriesTransientFailures(t *testing.T) {
	client := newTestClient(t)
	runner, err := NewTxRetrier(client, RetryPolicy{Attempts: 3, BaseWait: time.Millisecond})
	require.NoError(t, err)

	attempts := 0
	err = runner.WithTx(context.Background(), func(tx *gorm.DB) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestTxRetrierSurfacesBusinessErrorsOnce(t *testing.T) {
	client := newTestClient(t)
	runner, err := NewTxRetrier(client, RetryPolicy{Attempts: 5, BaseWait: time.Millisecond})
	require.NoError(t, err)

	attempts := 0
	err = runner.WithTx(context.Background(), func(tx *gorm.DB) error {
		attempts++
		return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
	})
	require.Equal(t, 1, attempts)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRetryPolicyFromConfigDefaults(t *testing.T) {
	policy := RetryPolicyFromConfig(config.DBConfig{})
	require.Equal(t, uint64(defaultRetryAttempts), policy.Attempts)
	require.Equal(t, defaultRetryBaseWait, policy.BaseWait)

	policy = RetryPolicyFromConfig(config.DBConfig{RetryAttempts: 5, RetryBaseWait: time.Second})
	require.Equal(t, uint64(5), policy.Attempts)
	require.Equal(t, time.Second, policy.BaseWait)
}

func TestIsUniqueViolation(t *testing.T) {
	require.False(t, IsUniqueViolation(nil, ""))
	require.True(t, IsUniqueViolation(errors.New(`duplicate key value violates unique constraint "checkout_records_pkey"`), ""))
	require.True(t, IsUniqueViolation(errors.New(`constraint "messages_reservation_fk"`), "messages_reservation_fk"))
	require.False(t, IsUniqueViolation(errors.New("syntax error"), ""))
}
