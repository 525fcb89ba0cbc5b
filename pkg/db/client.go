package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/coinforge/coindw/pkg/metadata"
)

// Client wraps a MySQL connection pool together with the process metadata
// that is attached to every run-history record.
type Client struct {
	DB     *sql.DB
	Logger *zap.Logger
	Meta   *metadata.Meta
}

// Options describe the connection target. LocalInfile is a per-job opt-in:
// only the staging loader needs LOAD DATA LOCAL INFILE enabled.
type Options struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	LocalInfile bool
}

// Open connects to MySQL and verifies the connection with a ping.
func Open(ctx context.Context, logger *zap.Logger, meta *metadata.Meta, opts Options) (*Client, error) {
	cfg := mysql.NewConfig()
	cfg.User = opts.User
	cfg.Passwd = opts.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	cfg.DBName = opts.Database
	cfg.ParseTime = true
	cfg.AllowNativePasswords = true
	cfg.AllowAllFiles = opts.LocalInfile
	cfg.Timeout = 10 * time.Second

	sqlDB, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	// One job owns one connection at a time; a small pool is plenty.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxIdleTime(time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping mysql %s: %w", cfg.Addr, err)
	}

	logger.Info("MySQL connection ready", zap.String("addr", cfg.Addr))
	return &Client{DB: sqlDB, Logger: logger, Meta: meta}, nil
}

// NewClient wraps an already-open pool. Used by tests and by callers that
// manage the pool themselves.
func NewClient(sqlDB *sql.DB, logger *zap.Logger, meta *metadata.Meta) *Client {
	return &Client{DB: sqlDB, Logger: logger, Meta: meta}
}

// Close terminates the underlying connection pool.
func (c *Client) Close() error {
	return c.DB.Close()
}

// quoteIdent backtick-quotes a schema or table identifier. Identifiers come
// from the control-store configuration, never from request input.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "") + "`"
}

// qualify returns a quoted schema.table reference.
func qualify(schema, table string) string {
	return quoteIdent(schema) + "." + quoteIdent(table)
}
