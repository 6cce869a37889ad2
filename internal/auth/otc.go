package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yusf-1/zagrosexpress-main/internal/metrics"
	"github.com/yusf-1/zagrosexpress-main/internal/repo"
)

const (
	codeExpiry = 5 * time.Minute
	// MaxCodeAttempts is the number of wrong submissions a pending code tolerates
	MaxCodeAttempts = 5
	// DevCode is the fixed code used when developer mode is on
	DevCode = "123456"

	codeMessage = "Your ZAGROSS EXPRESS verification code is: %s\n\nThis code expires in 5 minutes."
)

// Sender delivers a short text message to a phone number
type Sender interface {
	Send(ctx context.Context, phone, body string) error
}

// CodeService issues and verifies phone one-time codes
type CodeService struct {
	codes   repo.OneTimeCodeRepo
	sender  Sender
	salt    string
	devMode bool
	now     func() time.Time
	newCode func() (string, error)
	log     *zap.Logger
}

// NewCodeService creates a new one-time-code service. In dev mode every code is DevCode.
func NewCodeService(codes repo.OneTimeCodeRepo, sender Sender, salt string, devMode bool, log *zap.Logger) *CodeService {
	s := &CodeService{
		codes:   codes,
		sender:  sender,
		salt:    salt,
		devMode: devMode,
		now:     time.Now,
		newCode: generateCode,
		log:     log,
	}
	if devMode {
		s.newCode = func() (string, error) { return DevCode, nil }
	}
	return s
}

// DevMode reports whether codes are fixed to DevCode
func (s *CodeService) DevMode() bool {
	return s.devMode
}

// SendCode replaces any previous code for the phone with a fresh one and delivers it.
// If delivery fails the new record is deleted and ErrDeliveryFailed is returned.
func (s *CodeService) SendCode(ctx context.Context, phone string) error {
	err := s.sendCode(ctx, phone)
	metrics.CodeSends.WithLabelValues(sendOutcome(err)).Inc()
	return err
}

func (s *CodeService) sendCode(ctx context.Context, phone string) error {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return err
	}

	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	id, err := s.codes.Replace(ctx, phone, hashCodeHex(phone, code, s.salt), s.now().Add(codeExpiry))
	if err != nil {
		return fmt.Errorf("store code: %w", err)
	}

	if err := s.sender.Send(ctx, phone, fmt.Sprintf(codeMessage, code)); err != nil {
		s.log.Warn("code delivery failed, rolling back",
			zap.String("phone", MaskPhone(phone)),
			zap.Error(err),
		)
		// The caller's context may already be done; the rollback must still land.
		if delErr := s.codes.Delete(context.WithoutCancel(ctx), id); delErr != nil {
			s.log.Error("failed to roll back undelivered code",
				zap.String("phone", MaskPhone(phone)),
				zap.Error(delErr),
			)
		}
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	s.log.Info("code sent", zap.String("phone", MaskPhone(phone)))
	return nil
}

// VerifyCode checks a submitted code against the pending record for the phone.
// It returns nil when verified, or one of ErrNoSuchCode, ErrCodeExpired, ErrCodeLocked
// or *MismatchError.
func (s *CodeService) VerifyCode(ctx context.Context, phone, code string) error {
	err := s.verifyCode(ctx, phone, code)
	metrics.CodeVerifications.WithLabelValues(verifyOutcome(err)).Inc()
	return err
}

func (s *CodeService) verifyCode(ctx context.Context, phone, code string) error {
	phone, err := NormalizePhone(phone)
	if err != nil {
		return err
	}

	record, err := s.codes.GetLatestUnverified(ctx, phone)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNoSuchCode
	}
	if err != nil {
		return fmt.Errorf("load code: %w", err)
	}

	now := s.now()
	if !now.Before(record.ExpiresAt) {
		if err := s.codes.Delete(ctx, record.ID); err != nil {
			return fmt.Errorf("delete expired code: %w", err)
		}
		return ErrCodeExpired
	}

	if record.Attempts >= MaxCodeAttempts {
		if err := s.codes.Delete(ctx, record.ID); err != nil {
			return fmt.Errorf("delete locked code: %w", err)
		}
		return ErrCodeLocked
	}

	if subtle.ConstantTimeCompare(hashCode(phone, code, s.salt), record.CodeHash) != 1 {
		attempts, err := s.codes.IncrementAttempts(ctx, record.ID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrNoSuchCode
		}
		if err != nil {
			return fmt.Errorf("record attempt: %w", err)
		}
		return &MismatchError{Remaining: max(MaxCodeAttempts-attempts, 0)}
	}

	verified, err := s.codes.MarkVerified(ctx, record.ID, MaxCodeAttempts, now)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if !verified {
		// Superseded by a new send, or a concurrent wrong attempt used the last slot.
		return ErrNoSuchCode
	}

	s.log.Info("phone verified", zap.String("phone", MaskPhone(phone)))
	return nil
}

// hashCodeHex returns SHA-256(phone:code:salt) as hex for DB storage
func hashCodeHex(phone, code, salt string) string {
	return hex.EncodeToString(hashCode(phone, code, salt))
}

func hashCode(phone, code, salt string) []byte {
	hash := sha256.Sum256([]byte(phone + ":" + code + ":" + salt))
	return hash[:]
}

func sendOutcome(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, ErrInvalidPhone):
		return "invalid_phone"
	case errors.Is(err, ErrDeliveryFailed):
		return "delivery_failed"
	default:
		return "error"
	}
}

func verifyOutcome(err error) string {
	var mismatch *MismatchError
	switch {
	case err == nil:
		return "verified"
	case errors.Is(err, ErrNoSuchCode):
		return "no_code"
	case errors.Is(err, ErrCodeExpired):
		return "expired"
	case errors.Is(err, ErrCodeLocked):
		return "locked"
	case errors.As(err, &mismatch):
		return "mismatch"
	case errors.Is(err, ErrInvalidPhone):
		return "invalid_phone"
	default:
		return "error"
	}
}
