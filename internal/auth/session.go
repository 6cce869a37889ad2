package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yusf-1/zagrosexpress-main/internal/metrics"
	"github.com/yusf-1/zagrosexpress-main/internal/model"
	"github.com/yusf-1/zagrosexpress-main/internal/repo"
)

// DefaultSessionTTL is used when no lifetime is configured
const DefaultSessionTTL = 7 * 24 * time.Hour

// IssuedSession is returned to the device after a successful password check
type IssuedSession struct {
	Token      string
	OwnerLabel string
	ExpiresAt  time.Time
}

// SessionService issues, validates and revokes wholesale catalog sessions
type SessionService struct {
	credentials repo.CredentialRepo
	sessions    repo.SessionRepo
	binder      *DeviceBinder
	ttl         time.Duration
	now         func() time.Time
	log         *zap.Logger
}

// NewSessionService creates a new session service
func NewSessionService(
	credentials repo.CredentialRepo,
	sessions repo.SessionRepo,
	binder *DeviceBinder,
	ttl time.Duration,
	log *zap.Logger,
) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		credentials: credentials,
		sessions:    sessions,
		binder:      binder,
		ttl:         ttl,
		now:         time.Now,
		log:         log,
	}
}

// CreateSession resolves the password, binds the device and mints a session token.
func (s *SessionService) CreateSession(ctx context.Context, deviceID, password string) (IssuedSession, error) {
	issued, err := s.createSession(ctx, deviceID, password)
	metrics.SessionIssuance.WithLabelValues(issuanceOutcome(err)).Inc()
	return issued, err
}

func (s *SessionService) createSession(ctx context.Context, deviceID, password string) (IssuedSession, error) {
	if deviceID == "" {
		return IssuedSession{}, ErrDeviceRequired
	}
	if password == "" {
		return IssuedSession{}, ErrInvalidCredential
	}

	cred, err := s.credentials.GetByPassword(ctx, password)
	if errors.Is(err, repo.ErrNotFound) {
		return IssuedSession{}, ErrInvalidCredential
	}
	if err != nil {
		return IssuedSession{}, fmt.Errorf("lookup credential: %w", err)
	}

	if err := s.binder.Bind(ctx, cred, deviceID); err != nil {
		return IssuedSession{}, err
	}

	token, hashHex, err := GenerateSessionToken()
	if err != nil {
		return IssuedSession{}, fmt.Errorf("generate token: %w", err)
	}

	credID := cred.ID
	session, err := s.sessions.Create(ctx, model.Session{
		TokenHash:    hashHex,
		DeviceID:     deviceID,
		CredentialID: &credID,
		OwnerLabel:   cred.OwnerLabel,
		ExpiresAt:    s.now().Add(s.ttl),
	})
	if err != nil {
		return IssuedSession{}, fmt.Errorf("store session: %w", err)
	}

	return IssuedSession{
		Token:      token,
		OwnerLabel: session.OwnerLabel,
		ExpiresAt:  session.ExpiresAt,
	}, nil
}

// ValidateSession returns the session iff the token exists and has not expired.
// Unknown and expired tokens both yield ErrInvalidSession. Validation never extends expiry.
func (s *SessionService) ValidateSession(ctx context.Context, token string) (model.Session, error) {
	if token == "" {
		metrics.SessionValidation.WithLabelValues("invalid").Inc()
		return model.Session{}, ErrInvalidSession
	}

	now := s.now()
	session, err := s.sessions.FindActiveByTokenHash(ctx, HashSessionToken(token), now)
	if errors.Is(err, repo.ErrNotFound) {
		metrics.SessionValidation.WithLabelValues("invalid").Inc()
		return model.Session{}, ErrInvalidSession
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("find session: %w", err)
	}
	if !now.Before(session.ExpiresAt) {
		metrics.SessionValidation.WithLabelValues("invalid").Inc()
		return model.Session{}, ErrInvalidSession
	}

	metrics.SessionValidation.WithLabelValues("valid").Inc()
	return session, nil
}

// Logout deletes the session. Unknown tokens are not an error.
func (s *SessionService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.DeleteByTokenHash(ctx, HashSessionToken(token)); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// RevokeCredentialSessions deletes every session issued under the credential.
func (s *SessionService) RevokeCredentialSessions(ctx context.Context, credentialID uuid.UUID) (int64, error) {
	n, err := s.sessions.DeleteByCredential(ctx, credentialID)
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	s.log.Info("revoked credential sessions",
		zap.String("credential_id", credentialID.String()),
		zap.Int64("count", n),
	)
	return n, nil
}

func issuanceOutcome(err error) string {
	switch {
	case err == nil:
		return "granted"
	case errors.Is(err, ErrInvalidCredential):
		return "invalid_credential"
	case errors.Is(err, ErrInactive):
		return "inactive"
	case errors.Is(err, ErrBoundToOtherDevice):
		return "bound_to_other_device"
	case errors.Is(err, ErrDeviceRequired):
		return "bad_request"
	default:
		return "error"
	}
}
