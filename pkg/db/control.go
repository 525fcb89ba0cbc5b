package db

import (
	"context"
	"fmt"
)

// EnsureConfigTable creates the control schema and key/value config table.
func (c *Client) EnsureConfigTable(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS `control`"); err != nil {
		return fmt.Errorf("create control schema: %w", err)
	}

	ddl := `
		CREATE TABLE IF NOT EXISTS control.config (
			config_key VARCHAR(128) PRIMARY KEY,
			config_value TEXT,
			description VARCHAR(255),
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
	if _, err := c.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create config table: %w", err)
	}
	return nil
}

// LoadConfig reads the whole config table. The pipeline treats it as
// read-only; mutation happens through external administration.
func (c *Client) LoadConfig(ctx context.Context) (map[string]string, error) {
	if err := c.EnsureConfigTable(ctx); err != nil {
		return nil, err
	}

	rows, err := c.DB.QueryContext(ctx, "SELECT config_key, config_value FROM control.config")
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan config row: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// ConfigDefault is one seedable configuration entry.
type ConfigDefault struct {
	Key         string
	Value       string
	Description string
}

// SeedConfig inserts the given defaults, leaving any existing keys untouched.
func (c *Client) SeedConfig(ctx context.Context, defaults []ConfigDefault) error {
	if err := c.EnsureConfigTable(ctx); err != nil {
		return err
	}

	for _, d := range defaults {
		_, err := c.DB.ExecContext(ctx, `
			INSERT IGNORE INTO control.config (config_key, config_value, description)
			VALUES (?,?,?)`,
			d.Key, d.Value, d.Description)
		if err != nil {
			return fmt.Errorf("seed config %s: %w", d.Key, err)
		}
	}
	return nil
}

// CountConfig returns the number of config entries, used by setup to verify
// the seed took effect.
func (c *Client) CountConfig(ctx context.Context) (int64, error) {
	var n int64
	if err := c.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM control.config").Scan(&n); err != nil {
		return 0, fmt.Errorf("count config: %w", err)
	}
	return n, nil
}
