package claim

import (
	"context"
	"log/slog"
	"time"

	"pipeline-crm/internal/lead"
)

// Sweeper reclaims abandoned lead assignments: any pool-status lead assigned
// longer than TTL ago without a submitted outcome is unassigned and reset to
// Fresh. The sweep is idempotent and runs on a short fixed interval.
//
// The sweeper reads the wall clock directly, on purpose: assignment expiry is
// measured in real elapsed time and must not move with a test clock override
// injected elsewhere in the system.
type Sweeper struct {
	leads    lead.Repository
	ttl      time.Duration
	interval time.Duration
	log      *slog.Logger
}

const (
	DefaultAssignmentTTL = 30 * time.Minute
	DefaultSweepInterval = 10 * time.Second
)

func NewSweeper(leads lead.Repository, ttl, interval time.Duration, log *slog.Logger) *Sweeper {
	if ttl <= 0 {
		ttl = DefaultAssignmentTTL
	}
	if interval <= 0 || interval > DefaultSweepInterval {
		interval = DefaultSweepInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{leads: leads, ttl: ttl, interval: interval, log: log}
}

// SweepOnce runs a single reclaim pass and returns how many leads it reset.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.ttl)
	n, err := s.leads.ReclaimExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("reclaimed expired lead assignments", "count", n)
	}
	return n, nil
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				s.log.Error("assignment reclaim sweep failed", "err", err)
			}
		}
	}
}
