package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yusf-1/zagrosexpress-main/internal/model"
)

// CredentialRepo defines the interface for wholesale credential storage
type CredentialRepo interface {
	Create(ctx context.Context, password, ownerLabel string, isShared bool) (model.Credential, error)
	GetByID(ctx context.Context, id uuid.UUID) (model.Credential, error)
	GetByPassword(ctx context.Context, password string) (model.Credential, error)
	List(ctx context.Context) ([]model.Credential, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	ResetBinding(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClaimDevice(ctx context.Context, id uuid.UUID, deviceID string, at time.Time) (bool, error)
}

type credentialRepo struct {
	db *sql.DB
}

// NewCredentialRepo creates a new CredentialRepo instance
func NewCredentialRepo(db *sql.DB) CredentialRepo {
	return &credentialRepo{db: db}
}

const credentialColumns = `id, password, owner_label, is_shared, is_active, bound_device, last_used_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (model.Credential, error) {
	var c model.Credential
	err := row.Scan(
		&c.ID,
		&c.Password,
		&c.OwnerLabel,
		&c.IsShared,
		&c.IsActive,
		&c.BoundDevice,
		&c.LastUsedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// Create inserts a new credential. A password collision returns ErrDuplicatePassword.
func (r *credentialRepo) Create(ctx context.Context, password, ownerLabel string, isShared bool) (model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO customer_credentials (password, owner_label, is_shared)
		VALUES ($1, $2, $3)
		RETURNING `+credentialColumns,
		password, ownerLabel, isShared,
	)
	c, err := scanCredential(row)
	if err != nil {
		if isUniqueViolation(err) {
			return model.Credential{}, ErrDuplicatePassword
		}
		return model.Credential{}, fmt.Errorf("insert credential: %w", err)
	}
	return c, nil
}

// GetByID retrieves a credential by ID
func (r *credentialRepo) GetByID(ctx context.Context, id uuid.UUID) (model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+credentialColumns+`
		FROM customer_credentials
		WHERE id = $1
	`, id)
	c, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Credential{}, ErrNotFound
		}
		return model.Credential{}, fmt.Errorf("query credential: %w", err)
	}
	return c, nil
}

// GetByPassword retrieves a credential by exact password match, regardless of is_active
func (r *credentialRepo) GetByPassword(ctx context.Context, password string) (model.Credential, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+credentialColumns+`
		FROM customer_credentials
		WHERE password = $1
	`, password)
	c, err := scanCredential(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Credential{}, ErrNotFound
		}
		return model.Credential{}, fmt.Errorf("query credential: %w", err)
	}
	return c, nil
}

// List returns all credentials, newest first
func (r *credentialRepo) List(ctx context.Context) ([]model.Credential, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+credentialColumns+`
		FROM customer_credentials
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []model.Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return out, nil
}

// SetActive enables or disables a credential
func (r *credentialRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE customer_credentials
		SET is_active = $2, updated_at = now()
		WHERE id = $1
	`, id, active)
	if err != nil {
		return fmt.Errorf("set credential active: %w", err)
	}
	return expectOneRow(result)
}

// ResetBinding clears bound_device and last_used_at so another device may claim the credential.
// Sessions already issued are left alone.
func (r *credentialRepo) ResetBinding(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE customer_credentials
		SET bound_device = NULL, last_used_at = NULL, updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("reset credential binding: %w", err)
	}
	return expectOneRow(result)
}

// Delete removes a credential. Sessions keep their rows with credential_id set to NULL.
func (r *credentialRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM customer_credentials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	return expectOneRow(result)
}

// ClaimDevice binds an unbound exclusive credential to deviceID. The update is conditioned on
// bound_device IS NULL, so of two racing devices exactly one sees true.
func (r *credentialRepo) ClaimDevice(ctx context.Context, id uuid.UUID, deviceID string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE customer_credentials
		SET bound_device = $2, last_used_at = $3, updated_at = $3
		WHERE id = $1
		  AND is_shared = false
		  AND is_active = true
		  AND bound_device IS NULL
	`, id, deviceID, at)
	if err != nil {
		return false, fmt.Errorf("claim device: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim device: %w", err)
	}
	return n == 1, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
