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

// SessionRepo defines the interface for wholesale session storage
type SessionRepo interface {
	Create(ctx context.Context, s model.Session) (model.Session, error)
	FindActiveByTokenHash(ctx context.Context, tokenHash string, now time.Time) (model.Session, error)
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByCredential(ctx context.Context, credentialID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo instance
func NewSessionRepo(db *sql.DB) SessionRepo {
	return &sessionRepo{db: db}
}

// Create inserts a new session row
func (r *sessionRepo) Create(ctx context.Context, s model.Session) (model.Session, error) {
	var credentialID uuid.NullUUID
	if s.CredentialID != nil {
		credentialID = uuid.NullUUID{UUID: *s.CredentialID, Valid: true}
	}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO wholesale_sessions (token_hash, device_id, credential_id, owner_label, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, s.TokenHash, s.DeviceID, credentialID, s.OwnerLabel, s.ExpiresAt).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return model.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

// FindActiveByTokenHash returns the session if it exists and expires_at > now
func (r *sessionRepo) FindActiveByTokenHash(ctx context.Context, tokenHash string, now time.Time) (model.Session, error) {
	var s model.Session
	var credentialID uuid.NullUUID
	err := r.db.QueryRowContext(ctx, `
		SELECT id, token_hash, device_id, credential_id, owner_label, expires_at, created_at
		FROM wholesale_sessions
		WHERE token_hash = $1 AND expires_at > $2
	`, tokenHash, now).Scan(
		&s.ID,
		&s.TokenHash,
		&s.DeviceID,
		&credentialID,
		&s.OwnerLabel,
		&s.ExpiresAt,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Session{}, ErrNotFound
		}
		return model.Session{}, fmt.Errorf("find session: %w", err)
	}
	if credentialID.Valid {
		id := credentialID.UUID
		s.CredentialID = &id
	}
	return s, nil
}

// DeleteByTokenHash removes the session. Deleting a missing session is not an error.
func (r *sessionRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM wholesale_sessions WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteByCredential removes every session issued under the credential
func (r *sessionRepo) DeleteByCredential(ctx context.Context, credentialID uuid.UUID) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM wholesale_sessions WHERE credential_id = $1`, credentialID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions for credential: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// DeleteExpired removes sessions whose expires_at <= now
func (r *sessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM wholesale_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
