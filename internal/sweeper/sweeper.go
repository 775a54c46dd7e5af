package sweeper

import (
	"context"
	"time"

	"sore/internal/booking"
	"sore/internal/logger"
)

// Resolver is the slice of the booking service the sweep needs.
type Resolver interface {
	SweepExpirations(ctx context.Context, now time.Time) (*booking.SweepResult, error)
}

// Sweeper periodically auto-resolves overdue bookings: it expires
// pending ones past the acceptance window and completes accepted ones
// whose session has ended. Safe to run alongside live traffic; each
// booking is resolved under the same lock the API uses.
type Sweeper struct {
	resolver Resolver
	interval time.Duration
}

func New(resolver Resolver, interval time.Duration) *Sweeper {
	return &Sweeper{
		resolver: resolver,
		interval: interval,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	logger.Info("sweep worker started", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.run(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("sweep worker stopped")
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Sweeper) run(ctx context.Context) {
	if _, err := s.resolver.SweepExpirations(ctx, time.Now()); err != nil {
		logger.Error("sweep run failed", "error", err)
	}
}
