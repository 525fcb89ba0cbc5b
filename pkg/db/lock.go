package db

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// MySQL named locks are owned by a session, so the lock must be taken and
// released on the same pinned connection. The pool alone gives no such
// guarantee; callers hold the *sql.Conn for the duration of the job.

// AcquireLock attempts to take the named lock on conn, waiting up to
// timeoutSec. It returns false when another session already holds the lock,
// which is not an error: it means a concurrent instance owns this job.
func (c *Client) AcquireLock(ctx context.Context, conn *sql.Conn, name string, timeoutSec int) (bool, error) {
	var got sql.NullInt64
	err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", name, timeoutSec).Scan(&got)
	if err != nil {
		return false, fmt.Errorf("acquire lock %q: %w", name, err)
	}
	return got.Valid && got.Int64 == 1, nil
}

// ReleaseLock releases the named lock. Best-effort: the session going away
// releases the lock anyway, so failures are only logged.
func (c *Client) ReleaseLock(ctx context.Context, conn *sql.Conn, name string) {
	if _, err := conn.ExecContext(ctx, "SELECT RELEASE_LOCK(?)", name); err != nil {
		c.Logger.Warn("Failed to release lock", zap.String("lock", name), zap.Error(err))
	}
}
