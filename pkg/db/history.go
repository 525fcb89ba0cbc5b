package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ControlSchema holds the config table and the append-only run history.
const ControlSchema = "control"

// HistoryRecord is one run attempt of one job: success, failure or skip.
// Rows are only ever appended; the pipeline never reads them back.
type HistoryRecord struct {
	Step       string
	StartedAt  time.Time
	FinishedAt time.Time
	RowCount   int64
	Status     string
	Message    string
}

// EnsureControlSchema creates the control schema and the log_history table.
func (c *Client) EnsureControlSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS `control`"); err != nil {
		return fmt.Errorf("create control schema: %w", err)
	}

	ddl := `
		CREATE TABLE IF NOT EXISTS control.log_history (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			step VARCHAR(32),
			started_at DATETIME,
			finished_at DATETIME,
			row_count BIGINT,
			status_txt VARCHAR(16),
			message TEXT,
			run_by VARCHAR(128),
			host_name VARCHAR(128),
			pid INT,
			session_id CHAR(36),
			script_path VARCHAR(512),
			vcs_revision VARCHAR(64),
			client_user VARCHAR(128),
			src_ip VARCHAR(64)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	if _, err := c.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create log_history: %w", err)
	}
	return nil
}

// WriteHistory appends a run-history record with the full session metadata
// plus the authenticated database user.
func (c *Client) WriteHistory(ctx context.Context, rec HistoryRecord) error {
	if err := c.EnsureControlSchema(ctx); err != nil {
		return err
	}

	var dbUser sql.NullString
	if err := c.DB.QueryRowContext(ctx, "SELECT CURRENT_USER()").Scan(&dbUser); err != nil {
		// Metadata only; the record is still worth writing.
		dbUser = sql.NullString{}
	}

	_, err := c.DB.ExecContext(ctx, `
		INSERT INTO control.log_history
		(step, started_at, finished_at, row_count, status_txt, message,
		 run_by, host_name, pid, session_id, script_path, vcs_revision, client_user, src_ip)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.Step, rec.StartedAt, rec.FinishedAt, rec.RowCount, rec.Status, rec.Message,
		c.Meta.RunBy, c.Meta.Host, c.Meta.PID, c.Meta.SessionID,
		c.Meta.ScriptPath, c.Meta.VCSRevision, dbUser, c.Meta.SourceIP,
	)
	if err != nil {
		return fmt.Errorf("write log_history: %w", err)
	}
	return nil
}
