package etl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/coinforge/coindw/pkg/config"
	"github.com/coinforge/coindw/pkg/db"
)

func stagingCfg(csvPath, mode string) (config.DBConfig, config.StagingConfig) {
	dbCfg := config.DBConfig{StgSchema: "stg", StgTable: "crypto_usd_snapshot"}
	stgCfg := config.StagingConfig{CSVPath: csvPath, SnapshotMode: mode}
	return dbCfg, stgCfg
}

func writeStagingCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crypto_usd_latest.csv")
	content := "id,symbol,name,current_price,etl_session_id\n" +
		"bitcoin,btc,Bitcoin,65000.5,abc\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStagingMissingCSV(t *testing.T) {
	dbCfg, stgCfg := stagingCfg("/nonexistent/file.csv", "replace")
	job := &LoadStagingJob{Logger: zaptest.NewLogger(t), DBCfg: dbCfg, StgCfg: stgCfg}

	_, err := job.Execute(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorContains(t, err, "staging CSV not found")
}

func TestLoadStagingReplaceMode(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS `stg`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `stg`.`crypto_usd_snapshot`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("TRUNCATE TABLE `stg`.`crypto_usd_snapshot`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET SESSION sql_mode").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET SESSION sql_mode").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("LOAD DATA LOCAL INFILE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `stg`.`crypto_usd_snapshot` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM`).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(1))

	client := db.NewClient(sqlDB, zaptest.NewLogger(t), testMeta())
	dbCfg, stgCfg := stagingCfg(writeStagingCSV(t), "replace")
	job := &LoadStagingJob{Logger: zaptest.NewLogger(t), DBCfg: dbCfg, StgCfg: stgCfg}

	rows, err := job.Execute(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadStagingAppendModeSkipsTruncate(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS `stg`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET SESSION sql_mode").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("SET SESSION sql_mode").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("LOAD DATA LOCAL INFILE").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE `stg`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM`).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(5))

	client := db.NewClient(sqlDB, zaptest.NewLogger(t), testMeta())
	dbCfg, stgCfg := stagingCfg(writeStagingCSV(t), "append")
	job := &LoadStagingJob{Logger: zaptest.NewLogger(t), DBCfg: dbCfg, StgCfg: stgCfg}

	rows, err := job.Execute(context.Background(), client)
	require.NoError(t, err)
	assert.Equal(t, int64(5), rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockScopeNamesStagingTable(t *testing.T) {
	dbCfg, stgCfg := stagingCfg("x.csv", "replace")
	job := &LoadStagingJob{DBCfg: dbCfg, StgCfg: stgCfg}
	assert.Equal(t, "stg.crypto_usd_snapshot", job.LockScope())
	assert.True(t, job.LocalInfile())
}
