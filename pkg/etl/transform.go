package etl

import (
	"context"

	"go.uber.org/zap"

	"github.com/coinforge/coindw/pkg/config"
	"github.com/coinforge/coindw/pkg/db"
)

// TransformJob upserts staged rows into the dimensional warehouse. Order is
// significant: dimensions must exist before facts can reference them.
type TransformJob struct {
	Logger *zap.Logger
	DBCfg  config.DBConfig
}

func (j *TransformJob) Name() string { return "transform_dw" }

func (j *TransformJob) LockScope() string {
	return j.DBCfg.StgSchema + "." + j.DBCfg.StgTable
}

func (j *TransformJob) LocalInfile() bool { return false }

func (j *TransformJob) Execute(ctx context.Context, client *db.Client) (int64, error) {
	dw := j.DBCfg.Warehouse
	stgSchema, stgTable := j.DBCfg.StgSchema, j.DBCfg.StgTable

	j.Logger.Info("Ensuring warehouse tables", zap.String("schema", dw))
	if err := client.EnsureWarehouseTables(ctx, dw); err != nil {
		return 0, err
	}

	j.Logger.Info("Upserting dim_coin")
	if err := client.UpsertDimCoin(ctx, dw, stgSchema, stgTable); err != nil {
		return 0, err
	}

	j.Logger.Info("Upserting dim_date")
	if err := client.UpsertDimDate(ctx, dw, stgSchema, stgTable); err != nil {
		return 0, err
	}

	j.Logger.Info("Upserting fact_crypto_snapshot")
	if err := client.UpsertFact(ctx, dw, stgSchema, stgTable); err != nil {
		return 0, err
	}

	// Rows without a snapshot timestamp cannot be dated; they are excluded
	// from the facts and from the reported total.
	rows, err := client.CountDatedStaging(ctx, stgSchema, stgTable)
	if err != nil {
		return 0, err
	}
	j.Logger.Info("Warehouse transformed", zap.Int64("rows", rows))
	return rows, nil
}
