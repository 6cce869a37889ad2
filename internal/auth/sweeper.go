package auth

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/yusf-1/zagrosexpress-main/internal/metrics"
	"github.com/yusf-1/zagrosexpress-main/internal/repo"
)

// DefaultSweepInterval is used when no interval is configured
const DefaultSweepInterval = 15 * time.Minute

// Sweeper periodically deletes expired sessions and expired unverified codes.
// It is storage hygiene only; validation re-checks expiry on every read.
type Sweeper struct {
	sessions repo.SessionRepo
	codes    repo.OneTimeCodeRepo
	interval time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewSweeper creates a new Sweeper
func NewSweeper(sessions repo.SessionRepo, codes repo.OneTimeCodeRepo, interval time.Duration, log *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		sessions: sessions,
		codes:    codes,
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("expiry sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce deletes everything that has expired as of now. Both deletes are attempted even
// if the first fails.
func (s *Sweeper) SweepOnce(ctx context.Context) (sessions, codes int64, err error) {
	now := s.now()

	sessions, sessErr := s.sessions.DeleteExpired(ctx, now)
	codes, codeErr := s.codes.DeleteExpiredUnverified(ctx, now)

	metrics.SweepDeleted.WithLabelValues("session").Add(float64(sessions))
	metrics.SweepDeleted.WithLabelValues("code").Add(float64(codes))

	if sessions > 0 || codes > 0 {
		s.log.Info("expiry sweep",
			zap.Int64("sessions", sessions),
			zap.Int64("codes", codes),
		)
	}
	return sessions, codes, errors.Join(sessErr, codeErr)
}
