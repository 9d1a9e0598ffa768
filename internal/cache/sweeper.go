package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultSweepInterval is used by RunSweeper when no interval is given.
const DefaultSweepInterval = 10 * time.Minute

// RunSweeper calls SweepExpired every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepExpired(); n > 0 {
				s.log.Info("removed expired cache entries", zap.Int("removed", n))
			}
		}
	}
}
