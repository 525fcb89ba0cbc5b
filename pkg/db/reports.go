package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Read-side queries backing the HTTP API. Rows come back as generic
// key/value maps mirroring the warehouse columns, which keeps the API
// contract stable when columns are added.

// OverviewDaily returns the latest N days of the market overview mart.
func (c *Client) OverviewDaily(ctx context.Context, mart string, days int) ([]map[string]any, error) {
	stmt := fmt.Sprintf(`
		SELECT DateKey, TotalCoins, TotalMarketCap, TotalVolume, Top1_Coin, Top1_MarketCap
		FROM %s.overview_daily
		ORDER BY DateKey DESC
		LIMIT ?`, quoteIdent(mart))
	rows, err := c.DB.QueryContext(ctx, stmt, days)
	if err != nil {
		return nil, fmt.Errorf("query overview_daily: %w", err)
	}
	return scanRowMaps(rows)
}

// TopCoins returns the top coins by market cap from the warehouse facts.
func (c *Client) TopCoins(ctx context.Context, dw string, limit int) ([]map[string]any, error) {
	stmt := fmt.Sprintf(`
		SELECT
			c.CoinName, c.Symbol,
			f.MarketCapRank, f.Price, f.MarketCap,
			f.Volume24h, f.PctChange24h
		FROM %[1]s.fact_crypto_snapshot f
		JOIN %[1]s.dim_coin c ON c.CoinKey = f.CoinKey
		ORDER BY f.MarketCap DESC
		LIMIT ?`, quoteIdent(dw))
	rows, err := c.DB.QueryContext(ctx, stmt, limit)
	if err != nil {
		return nil, fmt.Errorf("query top coins: %w", err)
	}
	return scanRowMaps(rows)
}

// AnalystSnapshots returns the latest snapshots for a symbol, or the latest
// across all symbols when symbol is empty.
func (c *Client) AnalystSnapshots(ctx context.Context, mart, symbol string, limit int) ([]map[string]any, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if symbol != "" {
		stmt := fmt.Sprintf(`
			SELECT * FROM %s.analyst_snapshot
			WHERE Symbol = ?
			ORDER BY DateKey DESC
			LIMIT ?`, quoteIdent(mart))
		rows, err = c.DB.QueryContext(ctx, stmt, symbol, limit)
	} else {
		stmt := fmt.Sprintf(`
			SELECT * FROM %s.analyst_snapshot
			ORDER BY DateKey DESC
			LIMIT ?`, quoteIdent(mart))
		rows, err = c.DB.QueryContext(ctx, stmt, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query analyst_snapshot: %w", err)
	}
	return scanRowMaps(rows)
}

// scanRowMaps converts a result set into ordered key/value maps, normalizing
// driver byte slices to strings for JSON encoding.
func scanRowMaps(rows *sql.Rows) ([]map[string]any, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			case time.Time:
				row[col] = v.Format(time.RFC3339)
			default:
				row[col] = v
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
