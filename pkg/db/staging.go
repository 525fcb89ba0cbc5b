package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// StagingColumns is the fixed column set of the staging table, in DDL order.
// The CSV loader routes recognized input columns here and discards the rest,
// so upstream API drift never fails a load.
var StagingColumns = []string{
	"id", "symbol", "name", "market_cap_rank",
	"current_price", "market_cap", "total_volume",
	"high_24h", "low_24h",
	"price_change_24h", "price_change_percentage_24h",
	"circulating_supply", "total_supply", "max_supply",
	"ath", "ath_change_percentage", "ath_date",
	"atl", "atl_change_percentage", "atl_date",
	"last_updated",
	"etl_ingest_ts", "etl_source",
}

var stagingColumnTypes = map[string]string{
	"id":                          "VARCHAR(64) NOT NULL",
	"symbol":                      "VARCHAR(32)",
	"name":                        "VARCHAR(128)",
	"market_cap_rank":             "INT",
	"current_price":               "DECIMAL(20,8)",
	"market_cap":                  "DECIMAL(30,2)",
	"total_volume":                "DECIMAL(30,2)",
	"high_24h":                    "DECIMAL(20,8)",
	"low_24h":                     "DECIMAL(20,8)",
	"price_change_24h":            "DECIMAL(20,8)",
	"price_change_percentage_24h": "DECIMAL(10,4)",
	"circulating_supply":          "DECIMAL(30,8)",
	"total_supply":                "DECIMAL(30,8)",
	"max_supply":                  "DECIMAL(30,8)",
	"ath":                         "DECIMAL(20,8)",
	"ath_change_percentage":       "DECIMAL(10,4)",
	"ath_date":                    "DATETIME NULL",
	"atl":                         "DECIMAL(20,8)",
	"atl_change_percentage":       "DECIMAL(10,4)",
	"atl_date":                    "DATETIME NULL",
	"last_updated":                "DATETIME NULL",
	"etl_ingest_ts":               "DATETIME NULL",
	"etl_source":                  "VARCHAR(64)",
}

// stagingDatetimeColumns get the zero-date fix-up after every load.
var stagingDatetimeColumns = []string{"ath_date", "atl_date", "last_updated", "etl_ingest_ts"}

// EnsureStagingTable creates the staging schema and table if absent.
func (c *Client) EnsureStagingTable(ctx context.Context, schema, table string) error {
	if _, err := c.DB.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(schema)); err != nil {
		return fmt.Errorf("create staging schema: %w", err)
	}

	cols := make([]string, 0, len(StagingColumns))
	for _, col := range StagingColumns {
		cols = append(cols, fmt.Sprintf("`%s` %s", col, stagingColumnTypes[col]))
	}

	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s,
			PRIMARY KEY (`+"`id`"+`)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		qualify(schema, table), strings.Join(cols, ",\n\t\t\t"))
	if _, err := c.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}
	return nil
}

// TruncateStaging empties the staging table (snapshot replace mode).
func (c *Client) TruncateStaging(ctx context.Context, schema, table string) error {
	if _, err := c.DB.ExecContext(ctx, "TRUNCATE TABLE "+qualify(schema, table)); err != nil {
		return fmt.Errorf("truncate staging: %w", err)
	}
	return nil
}

// BuildInfileStatement constructs the LOAD DATA LOCAL INFILE statement for
// the given CSV header. Recognized columns load into place, unknown columns
// are routed into throwaway user variables, and any expected column absent
// from the header is explicitly set to NULL so every staged row is
// structurally complete.
func BuildInfileStatement(schema, table, path string, header []string) string {
	known := make(map[string]bool, len(StagingColumns))
	for _, col := range StagingColumns {
		known[col] = true
	}

	loadCols := make([]string, 0, len(header))
	present := make(map[string]bool, len(header))
	dummy := 0
	for _, h := range header {
		h = strings.TrimSpace(h)
		if known[h] {
			loadCols = append(loadCols, "`"+h+"`")
			present[h] = true
		} else {
			dummy++
			loadCols = append(loadCols, fmt.Sprintf("@dummy%d", dummy))
		}
	}

	var missing []string
	for _, col := range StagingColumns {
		if !present[col] {
			missing = append(missing, "`"+col+"`=NULL")
		}
	}
	setClause := ""
	if len(missing) > 0 {
		setClause = "SET " + strings.Join(missing, ", ")
	}

	return fmt.Sprintf(`LOAD DATA LOCAL INFILE '%s'
		INTO TABLE %s
		CHARACTER SET utf8mb4
		FIELDS TERMINATED BY ',' ENCLOSED BY '"'
		LINES TERMINATED BY '\n'
		IGNORE 1 LINES
		(%s)
		%s`,
		strings.ReplaceAll(path, `\`, `/`), qualify(schema, table),
		strings.Join(loadCols, ", "), setClause)
}

// LoadStagingCSV bulk-loads the CSV at path into the staging table. The file
// is whitelisted with the driver so only this exact path may be streamed.
func (c *Client) LoadStagingCSV(ctx context.Context, schema, table, path string, header []string) error {
	mysql.RegisterLocalFile(path)
	defer mysql.DeregisterLocalFile(path)

	// Zero-date sentinels in the CSV must survive the load; they are
	// normalized to NULL afterwards.
	for _, mode := range []string{"NO_ZERO_DATE", "NO_ZERO_IN_DATE"} {
		stmt := fmt.Sprintf("SET SESSION sql_mode = REPLACE(@@sql_mode, '%s', '')", mode)
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			c.Logger.Warn("Failed to relax sql_mode: " + err.Error())
		}
	}

	if _, err := c.DB.ExecContext(ctx, BuildInfileStatement(schema, table, path, header)); err != nil {
		return fmt.Errorf("load data infile: %w", err)
	}
	return nil
}

// FixZeroDates normalizes MySQL zero-date sentinels to NULL across all
// datetime columns of the staging table.
func (c *Client) FixZeroDates(ctx context.Context, schema, table string) error {
	sets := make([]string, 0, len(stagingDatetimeColumns))
	for _, col := range stagingDatetimeColumns {
		sets = append(sets, fmt.Sprintf("`%s` = NULLIF(`%s`, '0000-00-00 00:00:00')", col, col))
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s", qualify(schema, table), strings.Join(sets, ", "))
	if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("fix zero dates: %w", err)
	}
	return nil
}

// CountStaging returns the number of rows currently staged.
func (c *Client) CountStaging(ctx context.Context, schema, table string) (int64, error) {
	var n int64
	err := c.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+qualify(schema, table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count staging: %w", err)
	}
	return n, nil
}
