package etl

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/coinforge/coindw/pkg/config"
	"github.com/coinforge/coindw/pkg/db"
	"github.com/coinforge/coindw/pkg/metadata"
	"github.com/coinforge/coindw/pkg/retry"
)

// KeepColumns is the allow-list projected out of the market API response.
// A column the API stopped sending is simply omitted from the extract; it is
// the staging loader's job to NULL-fill it downstream.
var KeepColumns = []string{
	"id", "symbol", "name", "market_cap_rank",
	"current_price", "market_cap", "total_volume",
	"high_24h", "low_24h",
	"price_change_24h", "price_change_percentage_24h",
	"circulating_supply", "total_supply", "max_supply",
	"ath", "ath_change_percentage", "ath_date",
	"atl", "atl_change_percentage", "atl_date",
	"last_updated",
}

const extractSource = "coingecko_coins_markets"

// PageFetcher pulls one page of market records. *market.Client satisfies it.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) ([]map[string]any, error)
}

// ExtractJob fetches paginated market data and persists two CSV artifacts:
// an immutable timestamped file and an overwritten "latest" pointer.
type ExtractJob struct {
	Logger  *zap.Logger
	Meta    *metadata.Meta
	Cfg     config.ExtractConfig
	Fetcher PageFetcher

	// Retry governs per-page fetches and file writes. Zero value means
	// retry.DefaultConfig.
	Retry retry.Config

	// Sleep overrides the inter-page delay; nil uses Cfg.SleepPage.
	Sleep func(time.Duration)

	rows int64
}

func (j *ExtractJob) Name() string      { return "extract" }
func (j *ExtractJob) LockScope() string { return j.Cfg.VsCurrency }
func (j *ExtractJob) LocalInfile() bool { return false }

// Execute pulls all configured pages, projects the allow-listed columns,
// appends the audit columns, and writes both CSV artifacts.
func (j *ExtractJob) Execute(ctx context.Context, _ *db.Client) (int64, error) {
	if err := os.MkdirAll(j.Cfg.OutDir, 0o755); err != nil {
		return 0, fmt.Errorf("create output dir: %w", err)
	}

	retryCfg := j.Retry
	if retryCfg.MaxRetries == 0 {
		retryCfg = retry.DefaultConfig()
	}
	sleep := j.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	pageDelay := time.Duration(j.Cfg.SleepPage * float64(time.Second))

	j.Logger.Info("Fetching market pages", zap.Int("pages", j.Cfg.Pages))
	var records []map[string]any
	for page := 1; page <= j.Cfg.Pages; page++ {
		var pageRecords []map[string]any
		err := retry.WithBackoff(ctx, retryCfg, j.Logger,
			fmt.Sprintf("fetch page %d", page),
			func() error {
				var fetchErr error
				pageRecords, fetchErr = j.Fetcher.FetchPage(ctx, page)
				return fetchErr
			})
		if err != nil {
			return 0, err
		}
		records = append(records, pageRecords...)
		// Fixed pacing between pages regardless of retry outcome.
		sleep(pageDelay)
	}

	header, table := j.project(records)

	stamp := time.Now()
	dated := filepath.Join(j.Cfg.OutDir, fmt.Sprintf("crypto_%s_%s_%s_%d.csv",
		j.Cfg.VsCurrency, stamp.Format("20060102_150405"), j.Meta.Host, j.Meta.PID))
	latest := filepath.Join(j.Cfg.OutDir, fmt.Sprintf("crypto_%s_latest.csv", j.Cfg.VsCurrency))

	for _, path := range []string{dated, latest} {
		writeErr := retry.WithBackoff(ctx, retryCfg, j.Logger, "write "+filepath.Base(path),
			func() error { return writeCSV(path, header, table) })
		if writeErr != nil {
			return 0, writeErr
		}
	}

	j.rows = int64(len(table))
	j.Logger.Info("Extract artifacts written",
		zap.String("latest", latest), zap.Int64("rows", j.rows))
	return j.rows, nil
}

// project flattens the record maps into a fixed-order table. Only allow-list
// columns observed in at least one record are kept, then the five audit
// columns are appended to every row.
func (j *ExtractJob) project(records []map[string]any) (header []string, table [][]string) {
	seen := make(map[string]bool)
	for _, rec := range records {
		for k := range rec {
			seen[k] = true
		}
	}

	var keep []string
	for _, col := range KeepColumns {
		if seen[col] {
			keep = append(keep, col)
		}
	}

	ingestTS := time.Now().Format("2006-01-02T15:04:05")
	header = append(append([]string{}, keep...),
		"etl_ingest_ts", "etl_source", "etl_session_id", "etl_run_by", "etl_host")

	table = make([][]string, 0, len(records))
	for _, rec := range records {
		row := make([]string, 0, len(header))
		for _, col := range keep {
			row = append(row, formatCell(rec[col]))
		}
		row = append(row, ingestTS, extractSource, j.Meta.SessionID, j.Meta.RunBy, j.Meta.Host)
		table = append(table, row)
	}
	return header, table
}

// formatCell renders a decoded JSON value for CSV. Whole floats drop the
// fractional part so ranks and counts round-trip as integers.
func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func writeCSV(path string, header []string, table [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(table); err != nil {
		_ = f.Close()
		return fmt.Errorf("write rows: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
