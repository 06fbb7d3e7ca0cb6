package hibernate

import (
	"context"
	"log/slog"
	"time"

	"pipeline-crm/internal/clock"
	"pipeline-crm/internal/lead"
)

const (
	// DefaultWindow is how long a lead stays hibernating before it is
	// returned to circulation.
	DefaultWindow = 30 * 24 * time.Hour

	DefaultReapInterval = time.Minute
)

// Reaper restores hibernating leads whose dormancy window has elapsed. A
// restored lead re-enters the pool as a callback with its attempt counters
// cleared, so the contact cycle starts over.
type Reaper struct {
	leads    lead.Repository
	window   time.Duration
	interval time.Duration
	clk      clock.Clock
	log      *slog.Logger
}

func NewReaper(leads lead.Repository, window, interval time.Duration, clk clock.Clock, log *slog.Logger) *Reaper {
	if window <= 0 {
		window = DefaultWindow
	}
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reaper{leads: leads, window: window, interval: interval, clk: clk, log: log}
}

// ReapOnce runs a single restore pass and returns how many leads woke up.
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {
	now := r.clk.Now()
	n, err := r.leads.RestoreHibernated(ctx, now.Add(-r.window), now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.log.Info("restored hibernated leads", "count", n)
	}
	return n, nil
}

// Run reaps on the configured interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ReapOnce(ctx); err != nil {
				r.log.Error("hibernation restore pass failed", "err", err)
			}
		}
	}
}
