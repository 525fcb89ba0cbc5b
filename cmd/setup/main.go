package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/coinforge/coindw/pkg/db"
	"github.com/coinforge/coindw/pkg/logging"
	"github.com/coinforge/coindw/pkg/metadata"
	"github.com/coinforge/coindw/pkg/utils"
)

// configDefaults is the full operational configuration surface with its
// shipped defaults. Existing keys are never overwritten.
var configDefaults = []db.ConfigDefault{
	{Key: "DB_HOST", Value: "localhost", Description: "warehouse MySQL host"},
	{Key: "DB_PORT", Value: "3306", Description: "warehouse MySQL port"},
	{Key: "DB_USER", Value: "root", Description: "warehouse MySQL user"},
	{Key: "DB_PASS", Value: "", Description: "warehouse MySQL password"},
	{Key: "DB_NAME", Value: "dw", Description: "warehouse schema name"},
	{Key: "STG_SCHEMA", Value: "stg", Description: "staging schema name"},
	{Key: "STG_TABLE", Value: "crypto_usd_snapshot", Description: "staging table name"},
	{Key: "DB_MART_SCHEMA", Value: "data_mart", Description: "reporting mart schema name"},
	{Key: "CSV_PATH", Value: "warehouse-data/crypto_usd_latest.csv", Description: "staging input CSV path"},
	{Key: "SNAPSHOT_MODE", Value: "replace", Description: "staging snapshot mode: replace or append"},
	{Key: "EXT_VS_CURRENCY", Value: "usd", Description: "extract quote currency"},
	{Key: "EXT_PER_PAGE", Value: "100", Description: "extract page size"},
	{Key: "EXT_PAGES", Value: "3", Description: "extract page count"},
	{Key: "EXT_SLEEP_PAGE", Value: "1.2", Description: "extract inter-page delay seconds"},
	{Key: "EXT_OUT_DIR", Value: "warehouse-data", Description: "extract output directory"},
	{Key: "API_BASE_URL", Value: "https://api.coingecko.com/api/v3", Description: "market API base URL"},
	{Key: "API_COINS_MARKETS_PATH", Value: "/coins/markets", Description: "market API coins endpoint path"},
	{Key: "EMAIL_USER", Value: "", Description: "SMTP account for alert mail"},
	{Key: "EMAIL_PASS", Value: "", Description: "SMTP password for alert mail"},
	{Key: "SEND_USER", Value: "", Description: "alert mail recipient"},
	{Key: "PIPELINE_CRON", Value: "0 0 * * * *", Description: "scheduler cron spec (with seconds)"},
}

func main() {
	_ = godotenv.Load()

	logger, err := logging.New()
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client, err := db.Open(ctx, logger, metadata.Collect(), db.Options{
		Host:     utils.Env("DB_HOST", "localhost"),
		Port:     utils.EnvInt("DB_PORT", 3306),
		User:     utils.Env("DB_USER", "root"),
		Password: utils.Env("DB_PASS", ""),
	})
	if err != nil {
		logger.Error("Unable to connect to database", zap.Error(err))
		os.Exit(1)
	}
	defer client.Close()

	if err := client.EnsureControlSchema(ctx); err != nil {
		logger.Error("Control schema setup failed", zap.Error(err))
		os.Exit(1)
	}
	if err := client.SeedConfig(ctx, configDefaults); err != nil {
		logger.Error("Config seed failed", zap.Error(err))
		os.Exit(1)
	}

	count, err := client.CountConfig(ctx)
	if err != nil || count == 0 {
		logger.Error("Config verification failed",
			zap.Int64("entries", count), zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Database setup complete", zap.Int64("config_entries", count))
}
