package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yusf-1/zagrosexpress-main/internal/model"
	"github.com/yusf-1/zagrosexpress-main/internal/repo"
)

const (
	// DefaultSharedLabel names a shared credential created without a label
	DefaultSharedLabel = "Promo password"
	// createAttempts is how many password candidates are tried before a collision surfaces
	createAttempts = 5
)

// CredentialService is the back-office side of the credential registry.
// Callers must already be authorized as administrators.
type CredentialService struct {
	credentials repo.CredentialRepo
	generate    func() (string, error)
	log         *zap.Logger
}

// NewCredentialService creates a new credential service
func NewCredentialService(credentials repo.CredentialRepo, log *zap.Logger) *CredentialService {
	return &CredentialService{
		credentials: credentials,
		generate:    GeneratePassword,
		log:         log,
	}
}

// CreateCredential issues a new password. A duplicate candidate is replaced by a fresh one;
// repo.ErrDuplicatePassword is returned only when every candidate collided.
func (s *CredentialService) CreateCredential(ctx context.Context, ownerLabel string, isShared bool) (model.Credential, error) {
	ownerLabel = strings.TrimSpace(ownerLabel)
	if ownerLabel == "" {
		if !isShared {
			return model.Credential{}, ErrLabelRequired
		}
		ownerLabel = DefaultSharedLabel
	}

	for attempt := 1; attempt <= createAttempts; attempt++ {
		password, err := s.generate()
		if err != nil {
			return model.Credential{}, fmt.Errorf("generate password: %w", err)
		}

		cred, err := s.credentials.Create(ctx, password, ownerLabel, isShared)
		if err == nil {
			s.log.Info("credential created",
				zap.String("credential_id", cred.ID.String()),
				zap.Bool("shared", isShared),
			)
			return cred, nil
		}
		if !errors.Is(err, repo.ErrDuplicatePassword) {
			return model.Credential{}, fmt.Errorf("create credential: %w", err)
		}
		s.log.Debug("password candidate collided, regenerating", zap.Int("attempt", attempt))
	}

	return model.Credential{}, repo.ErrDuplicatePassword
}

// ListCredentials returns the registry newest first
func (s *CredentialService) ListCredentials(ctx context.Context) ([]model.Credential, error) {
	creds, err := s.credentials.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	return creds, nil
}

// ResetCredential clears the device binding so a different device can claim it.
// Sessions issued to the previous device stay valid until they expire or are revoked.
func (s *CredentialService) ResetCredential(ctx context.Context, id uuid.UUID) error {
	if err := s.credentials.ResetBinding(ctx, id); err != nil {
		return fmt.Errorf("reset credential: %w", err)
	}
	s.log.Info("credential binding reset", zap.String("credential_id", id.String()))
	return nil
}

// ActivateCredential re-enables a disabled credential
func (s *CredentialService) ActivateCredential(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, true)
}

// DeactivateCredential disables a credential without deleting it
func (s *CredentialService) DeactivateCredential(ctx context.Context, id uuid.UUID) error {
	return s.setActive(ctx, id, false)
}

func (s *CredentialService) setActive(ctx context.Context, id uuid.UUID, active bool) error {
	if err := s.credentials.SetActive(ctx, id, active); err != nil {
		return fmt.Errorf("set credential active: %w", err)
	}
	s.log.Info("credential active flag changed",
		zap.String("credential_id", id.String()),
		zap.Bool("active", active),
	)
	return nil
}

// DeleteCredential removes a credential
func (s *CredentialService) DeleteCredential(ctx context.Context, id uuid.UUID) error {
	if err := s.credentials.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete credential: %w", err)
	}
	s.log.Info("credential deleted", zap.String("credential_id", id.String()))
	return nil
}
