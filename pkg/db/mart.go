package db

import (
	"context"
	"fmt"
)

// EnsureMartTables creates the reporting mart schema and its tables.
func (c *Client) EnsureMartTables(ctx context.Context, mart string) error {
	if _, err := c.DB.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(mart)); err != nil {
		return fmt.Errorf("create mart schema: %w", err)
	}

	overview := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.overview_daily (
			DateKey INT PRIMARY KEY,
			TotalCoins INT,
			TotalMarketCap DECIMAL(38,2),
			TotalVolume DECIMAL(38,2),
			Top1_Coin VARCHAR(128),
			Top1_MarketCap DECIMAL(30,2),
			CreateTS DATETIME
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, quoteIdent(mart))
	if _, err := c.DB.ExecContext(ctx, overview); err != nil {
		return fmt.Errorf("create overview_daily: %w", err)
	}

	analyst := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.analyst_snapshot (
			CoinKey INT,
			DateKey INT,
			CoinName VARCHAR(128),
			Symbol VARCHAR(32),
			MarketCapRank INT,
			Price DECIMAL(20,8),
			MarketCap DECIMAL(30,2),
			Volume24h DECIMAL(30,2),
			PctChange24h DECIMAL(10,4),
			Year SMALLINT,
			Month TINYINT,
			DayOfWeek VARCHAR(16),
			CreateTS DATETIME,
			PRIMARY KEY (CoinKey, DateKey)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`, quoteIdent(mart))
	if _, err := c.DB.ExecContext(ctx, analyst); err != nil {
		return fmt.Errorf("create analyst_snapshot: %w", err)
	}
	return nil
}

// UpsertOverviewDaily aggregates one row per fact date: coin count, summed
// market cap and volume, and the single top coin by market cap that day.
func (c *Client) UpsertOverviewDaily(ctx context.Context, mart, dw string) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %[1]s.overview_daily
		(DateKey, TotalCoins, TotalMarketCap, TotalVolume, Top1_Coin, Top1_MarketCap, CreateTS)
		SELECT
			d.DateKey,
			COUNT(f.CoinKey),
			SUM(f.MarketCap),
			SUM(f.Volume24h),
			(
				SELECT dc2.CoinName
				FROM %[2]s.fact_crypto_snapshot f2
				JOIN %[2]s.dim_coin dc2 ON dc2.CoinKey = f2.CoinKey
				WHERE f2.DateKey = d.DateKey
				ORDER BY f2.MarketCap DESC
				LIMIT 1
			),
			(
				SELECT f3.MarketCap
				FROM %[2]s.fact_crypto_snapshot f3
				WHERE f3.DateKey = d.DateKey
				ORDER BY f3.MarketCap DESC
				LIMIT 1
			),
			NOW()
		FROM %[2]s.fact_crypto_snapshot f
		JOIN %[2]s.dim_date d ON d.DateKey = f.DateKey
		GROUP BY d.DateKey
		ON DUPLICATE KEY UPDATE
			TotalCoins=VALUES(TotalCoins),
			TotalMarketCap=VALUES(TotalMarketCap),
			TotalVolume=VALUES(TotalVolume),
			Top1_Coin=VALUES(Top1_Coin),
			Top1_MarketCap=VALUES(Top1_MarketCap),
			CreateTS=VALUES(CreateTS)`,
		quoteIdent(mart), quoteIdent(dw))
	if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("upsert overview_daily: %w", err)
	}
	return nil
}

// UpsertAnalystSnapshot denormalizes one row per (coin, day) with calendar
// attributes joined in from the date dimension.
func (c *Client) UpsertAnalystSnapshot(ctx context.Context, mart, dw string) error {
	stmt := fmt.Sprintf(`
		INSERT INTO %[1]s.analyst_snapshot
		(CoinKey, DateKey, CoinName, Symbol, MarketCapRank, Price, MarketCap,
		 Volume24h, PctChange24h, Year, Month, DayOfWeek, CreateTS)
		SELECT
			f.CoinKey, f.DateKey,
			c.CoinName, c.Symbol,
			f.MarketCapRank, f.Price, f.MarketCap, f.Volume24h, f.PctChange24h,
			d.Year, d.Month, d.DayOfWeek, NOW()
		FROM %[2]s.fact_crypto_snapshot f
		JOIN %[2]s.dim_coin c ON f.CoinKey = c.CoinKey
		JOIN %[2]s.dim_date d ON f.DateKey = d.DateKey
		ON DUPLICATE KEY UPDATE
			MarketCapRank=VALUES(MarketCapRank),
			Price=VALUES(Price),
			MarketCap=VALUES(MarketCap),
			Volume24h=VALUES(Volume24h),
			PctChange24h=VALUES(PctChange24h),
			CreateTS=VALUES(CreateTS)`,
		quoteIdent(mart), quoteIdent(dw))
	if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("upsert analyst_snapshot: %w", err)
	}
	return nil
}

// CountAnalystSnapshot returns the total mart snapshot count after load.
func (c *Client) CountAnalystSnapshot(ctx context.Context, mart string) (int64, error) {
	var n int64
	stmt := "SELECT COUNT(*) FROM " + quoteIdent(mart) + ".analyst_snapshot"
	if err := c.DB.QueryRowContext(ctx, stmt).Scan(&n); err != nil {
		return 0, fmt.Errorf("count analyst_snapshot: %w", err)
	}
	return n, nil
}
