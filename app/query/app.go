package query

import (
	"context"

	"go.uber.org/zap"

	"github.com/coinforge/coindw/app/query/types"
	"github.com/coinforge/coindw/pkg/config"
	"github.com/coinforge/coindw/pkg/db"
	"github.com/coinforge/coindw/pkg/logging"
	"github.com/coinforge/coindw/pkg/metadata"
	"github.com/coinforge/coindw/pkg/utils"
)

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	meta := metadata.Collect()

	client, err := db.Open(ctx, logger, meta, db.Options{
		Host:     utils.Env("DB_HOST", "localhost"),
		Port:     utils.EnvInt("DB_PORT", 3306),
		User:     utils.Env("DB_USER", "root"),
		Password: utils.Env("DB_PASS", ""),
	})
	if err != nil {
		logger.Fatal("Unable to connect to database", zap.Error(err))
	}

	store := config.NewStore(client)
	dbCfg, err := store.DB(ctx)
	if err != nil {
		logger.Fatal("Unable to load configuration", zap.Error(err))
	}

	return &types.App{
		Store:      client,
		Config:     store,
		Warehouse:  dbCfg.Warehouse,
		MartSchema: dbCfg.MartSchema,
		Logger:     logger,
	}
}
