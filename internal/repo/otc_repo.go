package repo

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yusf-1/zagrosexpress-main/internal/model"
)

// OneTimeCodeRepo defines the interface for phone verification code storage
type OneTimeCodeRepo interface {
	Replace(ctx context.Context, phone, codeHashHex string, expiresAt time.Time) (uuid.UUID, error)
	GetLatestUnverified(ctx context.Context, phone string) (model.OneTimeCode, error)
	IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error)
	MarkVerified(ctx context.Context, id uuid.UUID, maxAttempts int, now time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpiredUnverified(ctx context.Context, now time.Time) (int64, error)
}

type otcRepo struct {
	db *sql.DB
}

// NewOneTimeCodeRepo creates a new OneTimeCodeRepo instance
func NewOneTimeCodeRepo(db *sql.DB) OneTimeCodeRepo {
	return &otcRepo{db: db}
}

// Replace deletes every existing record for the phone and inserts a fresh one in a single
// transaction. An advisory lock serializes concurrent sends for the same phone.
func (r *otcRepo) Replace(ctx context.Context, phone, codeHashHex string, expiresAt time.Time) (uuid.UUID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(2, hashtext($1))`, phone); err != nil {
		return uuid.Nil, fmt.Errorf("advisory lock: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM otc_codes WHERE phone_number = $1`, phone); err != nil {
		return uuid.Nil, fmt.Errorf("delete previous codes: %w", err)
	}

	var id uuid.UUID
	err = tx.QueryRowContext(ctx, `
		INSERT INTO otc_codes (phone_number, code_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, phone, codeHashHex, expiresAt).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// GetLatestUnverified returns the newest unverified record for the phone, expired or not.
func (r *otcRepo) GetLatestUnverified(ctx context.Context, phone string) (model.OneTimeCode, error) {
	var c model.OneTimeCode
	var codeHashHex string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, phone_number, code_hash, expires_at, attempts, verified, created_at
		FROM otc_codes
		WHERE phone_number = $1 AND verified = false
		ORDER BY created_at DESC
		LIMIT 1
	`, phone).Scan(
		&c.ID,
		&c.PhoneNumber,
		&codeHashHex,
		&c.ExpiresAt,
		&c.Attempts,
		&c.Verified,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.OneTimeCode{}, ErrNotFound
		}
		return model.OneTimeCode{}, fmt.Errorf("query code: %w", err)
	}

	c.CodeHash, err = hex.DecodeString(codeHashHex)
	if err != nil {
		return model.OneTimeCode{}, fmt.Errorf("decode code_hash: %w", err)
	}
	return c, nil
}

// IncrementAttempts atomically bumps attempts and returns the new value
func (r *otcRepo) IncrementAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx, `
		UPDATE otc_codes
		SET attempts = attempts + 1
		WHERE id = $1 AND verified = false
		RETURNING attempts
	`, id).Scan(&attempts)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("increment attempts: %w", err)
	}
	return attempts, nil
}

// MarkVerified flips verified only while the record is still unexpired and under the attempt limit.
func (r *otcRepo) MarkVerified(ctx context.Context, id uuid.UUID, maxAttempts int, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE otc_codes
		SET verified = true
		WHERE id = $1
		  AND verified = false
		  AND attempts < $2
		  AND expires_at > $3
	`, id, maxAttempts, now)
	if err != nil {
		return false, fmt.Errorf("mark verified: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark verified: %w", err)
	}
	return n == 1, nil
}

// Delete removes a record. Deleting a missing record is not an error.
func (r *otcRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM otc_codes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete code: %w", err)
	}
	return nil
}

// DeleteExpiredUnverified removes unverified records whose expires_at <= now
func (r *otcRepo) DeleteExpiredUnverified(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM otc_codes
		WHERE verified = false AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired codes: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
