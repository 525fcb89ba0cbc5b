package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Loader supplies the flat key/value table from the control store.
// *db.Client satisfies it.
type Loader interface {
	LoadConfig(ctx context.Context) (map[string]string, error)
}

// Store caches the control-store configuration in-process. The cache is
// populated lazily on first access and treated as immutable afterwards;
// Reload exists for administrative use, not for mid-pipeline refresh.
type Store struct {
	loader Loader

	mu    sync.RWMutex
	cache map[string]string
}

// NewStore returns a Store backed by the given loader. Nothing is read until
// the first getter call.
func NewStore(loader Loader) *Store {
	return &Store{loader: loader}
}

func (s *Store) ensure(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.cache != nil
	s.mu.RUnlock()
	if loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cache != nil {
		return nil
	}

	cache, err := s.loader.LoadConfig(ctx)
	if err != nil {
		return fmt.Errorf("load config from control store: %w", err)
	}
	s.cache = cache
	return nil
}

// Reload clears the cache and repopulates it from the control store.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	s.cache = nil
	s.mu.Unlock()
	return s.ensure(ctx)
}

// Get returns the trimmed value for key, or def when the key is absent.
func (s *Store) Get(ctx context.Context, key, def string) (string, error) {
	if err := s.ensure(ctx); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.cache[key]; ok {
		return strings.TrimSpace(v), nil
	}
	return def, nil
}

// GetInt returns the integer value for key, falling back to def on a missing
// key or an unparsable value.
func (s *Store) GetInt(ctx context.Context, key string, def int) (int, error) {
	v, err := s.Get(ctx, key, strconv.Itoa(def))
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(v)
	if convErr != nil {
		return def, nil
	}
	return n, nil
}

// GetFloat returns the float value for key, falling back to def on a missing
// key or an unparsable value.
func (s *Store) GetFloat(ctx context.Context, key string, def float64) (float64, error) {
	v, err := s.Get(ctx, key, strconv.FormatFloat(def, 'f', -1, 64))
	if err != nil {
		return 0, err
	}
	f, convErr := strconv.ParseFloat(v, 64)
	if convErr != nil {
		return def, nil
	}
	return f, nil
}

// DBConfig is the database bundle: connection target plus the schema and
// table names every job interpolates into its statements.
type DBConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	Warehouse  string
	StgSchema  string
	StgTable   string
	MartSchema string
}

// DB returns the database configuration bundle.
func (s *Store) DB(ctx context.Context) (DBConfig, error) {
	var cfg DBConfig
	var err error
	if cfg.Host, err = s.Get(ctx, "DB_HOST", "localhost"); err != nil {
		return cfg, err
	}
	cfg.Port, _ = s.GetInt(ctx, "DB_PORT", 3306)
	cfg.User, _ = s.Get(ctx, "DB_USER", "root")
	cfg.Password, _ = s.Get(ctx, "DB_PASS", "")
	cfg.Warehouse, _ = s.Get(ctx, "DB_NAME", "dw")
	cfg.StgSchema, _ = s.Get(ctx, "STG_SCHEMA", "stg")
	cfg.StgTable, _ = s.Get(ctx, "STG_TABLE", "crypto_usd_snapshot")
	cfg.MartSchema, _ = s.Get(ctx, "DB_MART_SCHEMA", "data_mart")
	return cfg, nil
}

// StagingConfig controls the CSV bulk load.
type StagingConfig struct {
	CSVPath      string
	SnapshotMode string
}

// Staging returns the staging configuration bundle. Relative CSV paths are
// resolved against the working directory.
func (s *Store) Staging(ctx context.Context) (StagingConfig, error) {
	var cfg StagingConfig
	var err error
	if cfg.CSVPath, err = s.Get(ctx, "CSV_PATH", "warehouse-data/crypto_usd_latest.csv"); err != nil {
		return cfg, err
	}
	if !filepath.IsAbs(cfg.CSVPath) {
		if abs, absErr := filepath.Abs(cfg.CSVPath); absErr == nil {
			cfg.CSVPath = abs
		}
	}
	mode, _ := s.Get(ctx, "SNAPSHOT_MODE", "replace")
	cfg.SnapshotMode = strings.ToLower(mode)
	return cfg, nil
}

// ExtractConfig controls the market API extraction.
type ExtractConfig struct {
	VsCurrency string
	PerPage    int
	Pages      int
	SleepPage  float64
	OutDir     string
	BaseURL    string
	CoinsPath  string
}

// Extract returns the extraction configuration bundle.
func (s *Store) Extract(ctx context.Context) (ExtractConfig, error) {
	var cfg ExtractConfig
	var err error
	if cfg.VsCurrency, err = s.Get(ctx, "EXT_VS_CURRENCY", "usd"); err != nil {
		return cfg, err
	}
	cfg.PerPage, _ = s.GetInt(ctx, "EXT_PER_PAGE", 100)
	cfg.Pages, _ = s.GetInt(ctx, "EXT_PAGES", 3)
	cfg.SleepPage, _ = s.GetFloat(ctx, "EXT_SLEEP_PAGE", 1.2)
	cfg.OutDir, _ = s.Get(ctx, "EXT_OUT_DIR", "warehouse-data")
	cfg.BaseURL, _ = s.Get(ctx, "API_BASE_URL", "https://api.coingecko.com/api/v3")
	cfg.CoinsPath, _ = s.Get(ctx, "API_COINS_MARKETS_PATH", "/coins/markets")
	if !filepath.IsAbs(cfg.OutDir) {
		if abs, absErr := filepath.Abs(cfg.OutDir); absErr == nil {
			cfg.OutDir = abs
		}
	}
	return cfg, nil
}

// EmailConfig carries the outbound mail credentials and recipient.
type EmailConfig struct {
	User      string
	Password  string
	Recipient string
}

// Email returns the mail configuration bundle.
func (s *Store) Email(ctx context.Context) (EmailConfig, error) {
	var cfg EmailConfig
	var err error
	if cfg.User, err = s.Get(ctx, "EMAIL_USER", ""); err != nil {
		return cfg, err
	}
	cfg.Password, _ = s.Get(ctx, "EMAIL_PASS", "")
	cfg.Recipient, _ = s.Get(ctx, "SEND_USER", "")
	return cfg, nil
}

// PipelineConfig carries orchestration settings.
type PipelineConfig struct {
	CronSpec string
}

// Pipeline returns the orchestration configuration bundle.
func (s *Store) Pipeline(ctx context.Context) (PipelineConfig, error) {
	var cfg PipelineConfig
	var err error
	if cfg.CronSpec, err = s.Get(ctx, "PIPELINE_CRON", "0 0 * * * *"); err != nil {
		return cfg, err
	}
	return cfg, nil
}
