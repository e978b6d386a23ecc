package session

import (
	"context"
	"time"

	"ledgerly/internal/log"
)

// ExpiredDeleter removes expired session rows in bulk.
type ExpiredDeleter interface {
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically removes expired sessions so the table does not
// accumulate dead rows between lazy deletions.
type Sweeper struct {
	repo     ExpiredDeleter
	interval time.Duration
	logger   *log.Logger
}

// NewSweeper creates a sweeper running at the given interval.
func NewSweeper(repo ExpiredDeleter, interval time.Duration, logger *log.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		interval: interval,
		logger:   logger.WithComponent(log.ComponentSession),
	}
}

// Run sweeps until the context is cancelled. It always returns nil so
// cancellation does not look like a failure to the caller's group.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("session sweeper started", "interval", s.interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session sweeper stopped")
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	swept, err := s.repo.DeleteExpiredSessions(ctx, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to sweep expired sessions", log.FieldError, err.Error())
		return
	}
	if swept > 0 {
		s.logger.Info("swept expired sessions", "count", swept)
	}
}
