package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/yusf-1/zagrosexpress-main/internal/metrics"
	"github.com/yusf-1/zagrosexpress-main/internal/model"
	"github.com/yusf-1/zagrosexpress-main/internal/repo"
)

// claimAttempts bounds how often Bind re-reads a credential whose state moved under it
// (e.g. an admin reset landing between the claim and the re-read).
const claimAttempts = 3

// DeviceBinder enforces exclusive credential binding
type DeviceBinder struct {
	credentials repo.CredentialRepo
	now         func() time.Time
	log         *zap.Logger
}

// NewDeviceBinder creates a new DeviceBinder
func NewDeviceBinder(credentials repo.CredentialRepo, log *zap.Logger) *DeviceBinder {
	return &DeviceBinder{
		credentials: credentials,
		now:         time.Now,
		log:         log,
	}
}

// Bind admits deviceID to the credential. Shared credentials always admit. An unbound
// exclusive credential is claimed with a compare-and-set on bound_device IS NULL; the
// device that already holds it is admitted again without mutation.
func (b *DeviceBinder) Bind(ctx context.Context, cred model.Credential, deviceID string) error {
	if deviceID == "" {
		return ErrDeviceRequired
	}

	for attempt := 0; attempt < claimAttempts; attempt++ {
		if attempt > 0 {
			current, err := b.credentials.GetByID(ctx, cred.ID)
			if errors.Is(err, repo.ErrNotFound) {
				return ErrInvalidCredential
			}
			if err != nil {
				return fmt.Errorf("reload credential: %w", err)
			}
			cred = current
		}

		switch {
		case !cred.IsActive:
			return ErrInactive
		case cred.IsShared:
			return nil
		case cred.BoundTo(deviceID):
			return nil
		case cred.IsBound():
			return ErrBoundToOtherDevice
		}

		claimed, err := b.credentials.ClaimDevice(ctx, cred.ID, deviceID, b.now())
		if err != nil {
			return fmt.Errorf("claim device: %w", err)
		}
		if claimed {
			metrics.DeviceClaims.WithLabelValues("claimed").Inc()
			b.log.Info("credential bound to device", zap.String("credential_id", cred.ID.String()))
			return nil
		}
		metrics.DeviceClaims.WithLabelValues("lost").Inc()
	}

	return fmt.Errorf("claim device: credential %s kept changing", cred.ID)
}
