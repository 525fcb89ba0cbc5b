package etl

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/coinforge/coindw/pkg/config"
	"github.com/coinforge/coindw/pkg/db"
)

// LoadStagingJob bulk-loads the "latest" extract CSV into the staging table,
// tolerating schema drift in the input file.
type LoadStagingJob struct {
	Logger *zap.Logger
	DBCfg  config.DBConfig
	StgCfg config.StagingConfig
}

func (j *LoadStagingJob) Name() string { return "load_staging" }

func (j *LoadStagingJob) LockScope() string {
	return j.DBCfg.StgSchema + "." + j.DBCfg.StgTable
}

func (j *LoadStagingJob) LocalInfile() bool { return true }

// Execute verifies the CSV exists, prepares the staging table according to
// the snapshot mode, streams the file in, and normalizes zero-dates.
func (j *LoadStagingJob) Execute(ctx context.Context, client *db.Client) (int64, error) {
	if _, err := os.Stat(j.StgCfg.CSVPath); err != nil {
		return 0, fmt.Errorf("staging CSV not found: %s: %w", j.StgCfg.CSVPath, err)
	}

	header, err := readCSVHeader(j.StgCfg.CSVPath)
	if err != nil {
		return 0, err
	}
	j.Logger.Info("Loading staging CSV",
		zap.String("csv", j.StgCfg.CSVPath),
		zap.Int("columns", len(header)),
		zap.String("mode", j.StgCfg.SnapshotMode))

	schema, table := j.DBCfg.StgSchema, j.DBCfg.StgTable
	if err := client.EnsureStagingTable(ctx, schema, table); err != nil {
		return 0, err
	}

	if j.StgCfg.SnapshotMode == "replace" {
		if err := client.TruncateStaging(ctx, schema, table); err != nil {
			return 0, err
		}
	}

	if err := client.LoadStagingCSV(ctx, schema, table, j.StgCfg.CSVPath, header); err != nil {
		return 0, err
	}
	if err := client.FixZeroDates(ctx, schema, table); err != nil {
		return 0, err
	}

	rows, err := client.CountStaging(ctx, schema, table)
	if err != nil {
		return 0, err
	}
	j.Logger.Info("Staging loaded", zap.Int64("rows", rows))
	return rows, nil
}

func readCSVHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV: %w", err)
	}
	defer f.Close()

	header, err := csv.NewReader(f).Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	return header, nil
}
