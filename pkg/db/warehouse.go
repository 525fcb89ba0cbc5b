package db

import (
	"context"
	"fmt"
)

// The warehouse is a small star schema: a coin dimension with a durable
// surrogate key, a calendar dimension keyed by YYYYMMDD, and one fact row
// per (coin, day). All loads are last-write-wins upserts so a re-run for the
// same day never duplicates facts.

// EnsureWarehouseTables creates the warehouse schema and its tables.
func (c *Client) EnsureWarehouseTables(ctx context.Context, dw string) error {
	if _, err := c.DB.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(dw)); err != nil {
		return fmt.Errorf("create warehouse schema: %w", err)
	}

	dimCoin := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.dim_coin (
			CoinKey   INT AUTO_INCREMENT PRIMARY KEY,
			CoinID    VARCHAR(64) NOT NULL,
			Symbol    VARCHAR(32),
			CoinName  VARCHAR(128),
			UNIQUE KEY uq_dim_coin_coinid (CoinID)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, quoteIdent(dw))
	if _, err := c.DB.ExecContext(ctx, dimCoin); err != nil {
		return fmt.Errorf("create dim_coin: %w", err)
	}

	dimDate := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.dim_date (
			DateKey    INT NOT NULL PRIMARY KEY,
			FullDate   DATE,
			DayOfWeek  VARCHAR(16),
			Month      TINYINT,
			Quarter    TINYINT,
			Year       SMALLINT
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, quoteIdent(dw))
	if _, err := c.DB.ExecContext(ctx, dimDate); err != nil {
		return fmt.Errorf("create dim_date: %w", err)
	}

	fact := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.fact_crypto_snapshot (
			CoinKey             INT NOT NULL,
			DateKey             INT NOT NULL,
			MarketCapRank       INT,
			Price               DECIMAL(20,8),
			MarketCap           DECIMAL(30,2),
			Volume24h           DECIMAL(30,2),
			High24h             DECIMAL(20,8),
			Low24h              DECIMAL(20,8),
			PriceChange24h      DECIMAL(20,8),
			PctChange24h        DECIMAL(10,4),
			Ath                 DECIMAL(20,8),
			AthChangePct        DECIMAL(10,4),
			Atl                 DECIMAL(20,8),
			AtlChangePct        DECIMAL(10,4),
			LastUpdated         DATETIME,
			TransformTS         DATETIME,
			PRIMARY KEY (CoinKey, DateKey),
			CONSTRAINT fk_fact_coin FOREIGN KEY (CoinKey)
				REFERENCES %s.dim_coin (CoinKey),
			CONSTRAINT fk_fact_date FOREIGN KEY (DateKey)
				REFERENCES %s.dim_date (DateKey)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		quoteIdent(dw), quoteIdent(dw), quoteIdent(dw))
	if _, err := c.DB.ExecContext(ctx, fact); err != nil {
		return fmt.Errorf("create fact_crypto_snapshot: %w", err)
	}
	return nil
}

// UpsertDimCoin refreshes the coin dimension from staging. Descriptive
// attributes are overwritten; surrogate keys are stable across runs.
func (c *Client) UpsertDimCoin(ctx context.Context, dw, stgSchema, stgTable string) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s.dim_coin (CoinID, Symbol, CoinName)
		SELECT s.id, s.symbol, s.name
		FROM %s s
		ON DUPLICATE KEY UPDATE
			Symbol=VALUES(Symbol),
			CoinName=VALUES(CoinName)`,
		quoteIdent(dw), qualify(stgSchema, stgTable))
	if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("upsert dim_coin: %w", err)
	}
	return nil
}

// UpsertDimDate derives one calendar row per distinct snapshot day seen in
// staging. Rows without a snapshot timestamp cannot be dated and are skipped.
func (c *Client) UpsertDimDate(ctx context.Context, dw, stgSchema, stgTable string) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s.dim_date (DateKey, FullDate, DayOfWeek, Month, Quarter, Year)
		SELECT DISTINCT
			CAST(DATE_FORMAT(s.last_updated, '%%Y%%m%%d') AS SIGNED),
			DATE(s.last_updated),
			DATE_FORMAT(s.last_updated, '%%W'),
			MONTH(s.last_updated),
			QUARTER(s.last_updated),
			YEAR(s.last_updated)
		FROM %s s
		WHERE s.last_updated IS NOT NULL
		ON DUPLICATE KEY UPDATE
			FullDate=VALUES(FullDate),
			DayOfWeek=VALUES(DayOfWeek),
			Month=VALUES(Month),
			Quarter=VALUES(Quarter),
			Year=VALUES(Year)`,
		quoteIdent(dw), qualify(stgSchema, stgTable))
	if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("upsert dim_date: %w", err)
	}
	return nil
}

// UpsertFact joins staged rows to the current coin dimension and upserts one
// fact per (coin, day). Metrics are overwritten on conflict, so the latest
// snapshot of a day wins.
func (c *Client) UpsertFact(ctx context.Context, dw, stgSchema, stgTable string) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %s.fact_crypto_snapshot (
			CoinKey, DateKey,
			MarketCapRank, Price, MarketCap, Volume24h,
			High24h, Low24h, PriceChange24h, PctChange24h,
			Ath, AthChangePct, Atl, AtlChangePct,
			LastUpdated, TransformTS
		)
		SELECT
			dc.CoinKey,
			CAST(DATE_FORMAT(s.last_updated, '%%Y%%m%%d') AS SIGNED),
			s.market_cap_rank, s.current_price, s.market_cap, s.total_volume,
			s.high_24h, s.low_24h, s.price_change_24h, s.price_change_percentage_24h,
			s.ath, s.ath_change_percentage, s.atl, s.atl_change_percentage,
			s.last_updated, NOW()
		FROM %s s
		JOIN %s.dim_coin dc ON dc.CoinID = s.id
		WHERE s.last_updated IS NOT NULL
		ON DUPLICATE KEY UPDATE
			MarketCapRank=VALUES(MarketCapRank),
			Price=VALUES(Price),
			MarketCap=VALUES(MarketCap),
			Volume24h=VALUES(Volume24h),
			High24h=VALUES(High24h),
			Low24h=VALUES(Low24h),
			PriceChange24h=VALUES(PriceChange24h),
			PctChange24h=VALUES(PctChange24h),
			Ath=VALUES(Ath),
			AthChangePct=VALUES(AthChangePct),
			Atl=VALUES(Atl),
			AtlChangePct=VALUES(AtlChangePct),
			LastUpdated=VALUES(LastUpdated),
			TransformTS=VALUES(TransformTS)`,
		quoteIdent(dw), qualify(stgSchema, stgTable), quoteIdent(dw))
	if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("upsert fact_crypto_snapshot: %w", err)
	}
	return nil
}

// CountDatedStaging returns the staged rows eligible for fact processing,
// i.e. those carrying a snapshot timestamp.
func (c *Client) CountDatedStaging(ctx context.Context, stgSchema, stgTable string) (int64, error) {
	var n int64
	stmt := "SELECT COUNT(*) FROM " + qualify(stgSchema, stgTable) + " WHERE last_updated IS NOT NULL"
	if err := c.DB.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, fmt.Errorf("count dated staging: %w", err)
	}
	return n, nil
}
