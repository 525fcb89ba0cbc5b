package etl

import (
	"context"

	"go.uber.org/zap"

	"github.com/coinforge/coindw/pkg/config"
	"github.com/coinforge/coindw/pkg/db"
)

// LoadMartJob aggregates warehouse facts into the reporting marts.
type LoadMartJob struct {
	Logger *zap.Logger
	DBCfg  config.DBConfig
}

func (j *LoadMartJob) Name() string      { return "load_mart" }
func (j *LoadMartJob) LockScope() string { return j.DBCfg.MartSchema }
func (j *LoadMartJob) LocalInfile() bool { return false }

func (j *LoadMartJob) Execute(ctx context.Context, client *db.Client) (int64, error) {
	mart, dw := j.DBCfg.MartSchema, j.DBCfg.Warehouse

	j.Logger.Info("Ensuring mart tables", zap.String("schema", mart))
	if err := client.EnsureMartTables(ctx, mart); err != nil {
		return 0, err
	}

	j.Logger.Info("Loading overview_daily")
	if err := client.UpsertOverviewDaily(ctx, mart, dw); err != nil {
		return 0, err
	}

	j.Logger.Info("Loading analyst_snapshot")
	if err := client.UpsertAnalystSnapshot(ctx, mart, dw); err != nil {
		return 0, err
	}

	rows, err := client.CountAnalystSnapshot(ctx, mart)
	if err != nil {
		return 0, err
	}
	j.Logger.Info("Marts loaded", zap.Int64("rows", rows))
	return rows, nil
}
