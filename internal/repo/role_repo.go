package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// RoleRepo reads role grants written by the account directory
type RoleRepo interface {
	HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error)
	Grant(ctx context.Context, userID uuid.UUID, role string) error
}

type roleRepo struct {
	db *sql.DB
}

// NewRoleRepo creates a new RoleRepo instance
func NewRoleRepo(db *sql.DB) RoleRepo {
	return &roleRepo{db: db}
}

// HasRole reports whether the user holds the given role
func (r *roleRepo) HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2
		)
	`, userID, role).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("query role: %w", err)
	}
	return ok, nil
}

// Grant gives the user a role. Granting an existing role is a no-op.
func (r *roleRepo) Grant(ctx context.Context, userID uuid.UUID, role string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role) VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING
	`, userID, role)
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	return nil
}
