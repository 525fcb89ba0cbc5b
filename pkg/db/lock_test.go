package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/coinforge/coindw/pkg/metadata"
)

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	meta := &metadata.Meta{
		SessionID: "11111111-2222-3333-4444-555555555555",
		RunBy:     "etl",
		Host:      "test-host",
		PID:       4242,
	}
	return NewClient(sqlDB, zaptest.NewLogger(t), meta), mock
}

func TestAcquireLockGranted(t *testing.T) {
	client, mock := newMockClient(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT GET_LOCK\(\?, \?\)`).
		WithArgs("extract:usd", 3).
		WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(1))

	conn, err := client.DB.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	got, err := client.AcquireLock(ctx, conn, "extract:usd", 3)
	require.NoError(t, err)
	assert.True(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcquireLockDeniedIsNotAnError(t *testing.T) {
	client, mock := newMockClient(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT GET_LOCK\(\?, \?\)`).
		WithArgs("load_staging:stg.crypto_usd_snapshot", 3).
		WillReturnRows(sqlmock.NewRows([]string{"GET_LOCK"}).AddRow(0))

	conn, err := client.DB.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	got, err := client.AcquireLock(ctx, conn, "load_staging:stg.crypto_usd_snapshot", 3)
	require.NoError(t, err, "a held lock is contention, not failure")
	assert.False(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseLockSwallowsErrors(t *testing.T) {
	client, mock := newMockClient(t)
	ctx := context.Background()

	mock.ExpectExec(`SELECT RELEASE_LOCK\(\?\)`).
		WithArgs("extract:usd").
		WillReturnError(assert.AnError)

	conn, err := client.DB.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	// Must not panic or propagate.
	client.ReleaseLock(ctx, conn, "extract:usd")
	require.NoError(t, mock.ExpectationsWereMet())
}
