package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestUpsertOverviewDailyIsIdempotent(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectExec("INSERT INTO `data_mart`\\.overview_daily" +
		".*GROUP BY d\\.DateKey" +
		".*ON DUPLICATE KEY UPDATE" +
		".*TotalMarketCap=VALUES\\(TotalMarketCap\\)" +
		".*Top1_MarketCap=VALUES\\(Top1_MarketCap\\)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := client.UpsertOverviewDaily(context.Background(), "data_mart", "dw")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertAnalystSnapshotIsIdempotent(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectExec("INSERT INTO `data_mart`\\.analyst_snapshot" +
		".*JOIN `dw`\\.dim_date d ON f\\.DateKey = d\\.DateKey" +
		".*ON DUPLICATE KEY UPDATE" +
		".*Price=VALUES\\(Price\\)" +
		".*CreateTS=VALUES\\(CreateTS\\)").
		WillReturnResult(sqlmock.NewResult(0, 15))

	err := client.UpsertAnalystSnapshot(context.Background(), "data_mart", "dw")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
