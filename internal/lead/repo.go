package lead

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("lead: not found")

	// ErrClaimed means the conditional claim lost: the lead was already
	// assigned when the update ran. Expected under contention; never an error log.
	ErrClaimed = errors.New("lead: already claimed")

	// ErrNoneEligible means no unassigned, out-of-cooldown lead matched the
	// pool draw preference order.
	ErrNoneEligible = errors.New("lead: none eligible")

	// ErrRace means a guarded transition found the lead no longer in the
	// expected status/ownership (reassigned, reclaimed or already transitioned).
	ErrRace = errors.New("lead: concurrent modification")
)

// ValidationError rejects a submit-outcome payload before any mutation is
// computed. Always recoverable: the caller corrects input and retries.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("lead: invalid payload: %s %s", e.Field, e.Reason)
}

// PoolStatuses is the pool-draw preference order: first eligible match wins,
// no further ranking within a status.
var PoolStatuses = []Status{StatusFresh, StatusCallBack, StatusThinking}

// Repository is the persistence contract for leads.
//
// The conditional-update methods (Claim, AcquireNext, ApplyTransition,
// ReclaimExpired, RestoreHibernated) are the atomicity boundary: concurrent
// callers must observe exactly one winner per lead. Implementations express
// them as compare-and-set against the store; no client-side locking.
type Repository interface {
	Get(ctx context.Context, id string) (Lead, error)
	Insert(ctx context.Context, l Lead) error
	FindByPhone(ctx context.Context, normalizedPhone string) (Lead, bool, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]Lead, error)

	// Claim assigns a specific lead to an agent iff it is currently
	// unassigned and in a pool status whose cooldown has passed.
	Claim(ctx context.Context, id, agentID string, now time.Time) (Lead, error)

	// AcquireNext atomically claims the first eligible pool lead for the
	// agent, preferring statuses in PoolStatuses order.
	AcquireNext(ctx context.Context, agentID string, now time.Time) (Lead, error)

	// ApplyTransition persists a state-machine result iff the lead is still
	// in the expected status and assigned to the expected agent. Returns
	// ErrRace otherwise.
	ApplyTransition(ctx context.Context, updated Lead, expectStatus Status, expectAssignee string) error

	// CountActiveAssigned counts leads assigned to the agent excluding
	// StatusCallRescheduled (the one-active-lead invariant's scope).
	CountActiveAssigned(ctx context.Context, agentID string) (int, error)

	// CountSelfRescheduled counts rescheduled leads the agent kept assigned
	// to themselves; input to the self-assign policy.
	CountSelfRescheduled(ctx context.Context, agentID string) (int, error)

	// ReclaimExpired unassigns pool-status leads whose assignment is older
	// than cutoff and resets them to StatusFresh. Idempotent.
	ReclaimExpired(ctx context.Context, cutoff time.Time) (int, error)

	// RestoreHibernated moves hibernating leads whose last contact is at or
	// before cutoff back to StatusCallBack with counters reset. Idempotent:
	// the status guard makes a second pass a no-op.
	RestoreHibernated(ctx context.Context, cutoff, now time.Time) (int, error)
}
