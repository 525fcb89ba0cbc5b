package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverviewDailyReturnsRowMaps(t *testing.T) {
	client, mock := newMockClient(t)
	ctx := context.Background()

	rows := sqlmock.NewRows([]string{
		"DateKey", "TotalCoins", "TotalMarketCap", "TotalVolume", "Top1_Coin", "Top1_MarketCap",
	}).
		AddRow(20240102, 2, []byte("1500.00"), []byte("300.00"), "Bitcoin", []byte("1000.00")).
		AddRow(20240101, 2, []byte("1400.00"), []byte("250.00"), "Bitcoin", []byte("950.00"))

	mock.ExpectQuery("SELECT DateKey, TotalCoins, TotalMarketCap").
		WithArgs(30).
		WillReturnRows(rows)

	out, err := client.OverviewDaily(ctx, "data_mart", 30)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, int64(20240102), out[0]["DateKey"])
	assert.Equal(t, "1500.00", out[0]["TotalMarketCap"], "driver byte slices become strings")
	assert.Equal(t, "Bitcoin", out[0]["Top1_Coin"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTopCoinsBindsLimit(t *testing.T) {
	client, mock := newMockClient(t)
	ctx := context.Background()

	mock.ExpectQuery("ORDER BY f.MarketCap DESC").
		WithArgs(20).
		WillReturnRows(sqlmock.NewRows([]string{"CoinName", "Symbol"}).
			AddRow("Bitcoin", "btc"))

	out, err := client.TopCoins(ctx, "dw", 20)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "btc", out[0]["Symbol"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalystSnapshotsFiltersBySymbol(t *testing.T) {
	client, mock := newMockClient(t)
	ctx := context.Background()

	mock.ExpectQuery("WHERE Symbol = \\?").
		WithArgs("btc", 60).
		WillReturnRows(sqlmock.NewRows([]string{"Symbol", "DateKey"}).
			AddRow("btc", 20240101))

	out, err := client.AnalystSnapshots(ctx, "data_mart", "btc", 60)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalystSnapshotsWithoutSymbol(t *testing.T) {
	client, mock := newMockClient(t)
	ctx := context.Background()

	mock.ExpectQuery("ORDER BY DateKey DESC").
		WithArgs(200).
		WillReturnRows(sqlmock.NewRows([]string{"Symbol", "DateKey"}).
			AddRow("btc", 20240101).
			AddRow("eth", 20240101))

	out, err := client.AnalystSnapshots(ctx, "data_mart", "", 200)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
