// Package tests holds integration tests that run the full stack against a real PostgreSQL
// database. They are skipped unless DATABASE_URL is set.
package tests

import (
	"context"
	"database/sql"
	"fmt"
)

// TruncateTables clears every table this service owns, plus user_roles.
func TruncateTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		TRUNCATE TABLE wholesale_sessions, customer_credentials, otc_codes, user_roles
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}
	return nil
}
