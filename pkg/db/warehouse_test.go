package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Warehouse loads must be re-runnable: every insert carries an ON DUPLICATE
// KEY UPDATE clause, and date-derived statements exclude staging rows without
// a snapshot timestamp. The expectations below pin those clauses so dropping
// either one fails here.

func TestUpsertDimCoinIsIdempotent(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectExec("INSERT INTO `dw`\\.dim_coin \\(CoinID, Symbol, CoinName\\)" +
		".*ON DUPLICATE KEY UPDATE" +
		".*Symbol=VALUES\\(Symbol\\)" +
		".*CoinName=VALUES\\(CoinName\\)").
		WillReturnResult(sqlmock.NewResult(0, 12))

	err := client.UpsertDimCoin(context.Background(), "dw", "stg", "crypto_usd_snapshot")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertDimDateExcludesNullTimestamps(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectExec("INSERT INTO `dw`\\.dim_date" +
		".*WHERE s\\.last_updated IS NOT NULL" +
		".*ON DUPLICATE KEY UPDATE" +
		".*FullDate=VALUES\\(FullDate\\)").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := client.UpsertDimDate(context.Background(), "dw", "stg", "crypto_usd_snapshot")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFactJoinsDimAndExcludesNullTimestamps(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectExec("INSERT INTO `dw`\\.fact_crypto_snapshot" +
		".*JOIN `dw`\\.dim_coin dc ON dc\\.CoinID = s\\.id" +
		".*WHERE s\\.last_updated IS NOT NULL" +
		".*ON DUPLICATE KEY UPDATE" +
		".*Price=VALUES\\(Price\\)" +
		".*TransformTS=VALUES\\(TransformTS\\)").
		WillReturnResult(sqlmock.NewResult(0, 298))

	err := client.UpsertFact(context.Background(), "dw", "stg", "crypto_usd_snapshot")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountDatedStaging(t *testing.T) {
	client, mock := newMockClient(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM `stg`\\.`crypto_usd_snapshot` " +
		"WHERE last_updated IS NOT NULL").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(298))

	n, err := client.CountDatedStaging(context.Background(), "stg", "crypto_usd_snapshot")
	require.NoError(t, err)
	assert.Equal(t, int64(298), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
