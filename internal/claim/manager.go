package claim

import (
	"context"
	"errors"
	"time"

	"pipeline-crm/internal/appointment"
	"pipeline-crm/internal/clock"
	"pipeline-crm/internal/lead"
)

// Named claim outcomes. Contention results (ErrAlreadyClaimed, ErrAgentBusy,
// ErrNoneAvailable) are expected, frequent outcomes of concurrent claims:
// losing the race is a normal result value, never an error log. ErrNotHolder
// is a no-op from the caller's point of view and worth at most a diagnostic.
var (
	ErrAlreadyClaimed = errors.New("claim: item already claimed")
	ErrAgentBusy      = errors.New("claim: agent already holds an active item")
	ErrNoneAvailable  = errors.New("claim: no eligible item available")
	ErrNotHolder      = errors.New("claim: caller no longer holds the item")
)

// SessionLimiter is an optional fast-path guard for the one-call-per-agent
// invariant (redis-backed in production). The store's conditional update
// remains authoritative; the limiter only rejects obvious duplicates before
// a round-trip.
type SessionLimiter interface {
	Acquire(ctx context.Context, agentID string) (bool, error)
	Release(ctx context.Context, agentID string) error
}

// Manager enforces the exclusive-hold invariants on shared work items:
// one active lead per agent (excluding rescheduled callbacks), one appointment
// call session per agent system-wide, atomic claim-or-fail on pool items, and
// time-boxed auto-release of abandoned call sessions.
//
// Every operation is a single conditional request to the store; the store's
// compare-and-set semantics is the serialization point. No client-side locks.
type Manager struct {
	leads   lead.Repository
	appts   appointment.Repository
	limiter SessionLimiter
	clock   clock.Clock

	// grace is the abandonment window: after a session closes without an
	// explicit finish, the claim is auto-released once grace elapses,
	// compare-and-release only.
	grace time.Duration
}

const DefaultGrace = 60 * time.Second

func NewManager(leads lead.Repository, appts appointment.Repository, limiter SessionLimiter, clk clock.Clock, grace time.Duration) *Manager {
	if clk == nil {
		clk = clock.System{}
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Manager{leads: leads, appts: appts, limiter: limiter, clock: clk, grace: grace}
}

// AcquireNextLead draws the first eligible lead from the shared pool for the
// agent, preferring Fresh, then CallBack, then Thinking. Exactly one of two
// concurrent draws for the last eligible lead succeeds; the other gets
// ErrNoneAvailable.
func (m *Manager) AcquireNextLead(ctx context.Context, agentID string) (lead.Lead, error) {
	if agentID == "" {
		return lead.Lead{}, errors.New("claim: agent id required")
	}
	n, err := m.leads.CountActiveAssigned(ctx, agentID)
	if err != nil {
		return lead.Lead{}, err
	}
	if n > 0 {
		return lead.Lead{}, ErrAgentBusy
	}

	l, err := m.leads.AcquireNext(ctx, agentID, m.clock.Now())
	if errors.Is(err, lead.ErrNoneEligible) {
		return lead.Lead{}, ErrNoneAvailable
	}
	return l, err
}

// ClaimLead claims a specific pool lead. Fails with ErrAlreadyClaimed when a
// concurrent claimant won, ErrAgentBusy when the agent already holds an
// active lead.
func (m *Manager) ClaimLead(ctx context.Context, leadID, agentID string) (lead.Lead, error) {
	if leadID == "" || agentID == "" {
		return lead.Lead{}, errors.New("claim: lead id and agent id required")
	}
	n, err := m.leads.CountActiveAssigned(ctx, agentID)
	if err != nil {
		return lead.Lead{}, err
	}
	if n > 0 {
		return lead.Lead{}, ErrAgentBusy
	}

	l, err := m.leads.Claim(ctx, leadID, agentID, m.clock.Now())
	if errors.Is(err, lead.ErrClaimed) {
		return lead.Lead{}, ErrAlreadyClaimed
	}
	return l, err
}

// ClaimCall opens an exclusive call session on an appointment. One active
// call per agent, system-wide: fails with ErrAgentBusy if the agent already
// holds another session, ErrAlreadyClaimed if someone else holds this one.
func (m *Manager) ClaimCall(ctx context.Context, apptID, agentID string) (appointment.Appointment, error) {
	if apptID == "" || agentID == "" {
		return appointment.Appointment{}, errors.New("claim: appointment id and agent id required")
	}

	if _, held, err := m.appts.FindSessionByAgent(ctx, agentID); err != nil {
		return appointment.Appointment{}, err
	} else if held {
		return appointment.Appointment{}, ErrAgentBusy
	}

	if m.limiter != nil {
		ok, err := m.limiter.Acquire(ctx, agentID)
		if err != nil {
			return appointment.Appointment{}, err
		}
		if !ok {
			return appointment.Appointment{}, ErrAgentBusy
		}
	}

	a, err := m.appts.ClaimSession(ctx, apptID, agentID, m.clock.Now())
	if err != nil {
		if m.limiter != nil {
			_ = m.limiter.Release(ctx, agentID)
		}
		if errors.Is(err, appointment.ErrClaimed) {
			return appointment.Appointment{}, ErrAlreadyClaimed
		}
		return appointment.Appointment{}, err
	}
	return a, nil
}

// Heartbeat refreshes the liveness timestamp on a held call session. The
// manager is agnostic to the caller's interval. ErrNotHolder means the claim
// was already reassigned or expired.
func (m *Manager) Heartbeat(ctx context.Context, apptID, agentID string) error {
	err := m.appts.RefreshSession(ctx, apptID, agentID, m.clock.Now())
	if errors.Is(err, appointment.ErrNotHolder) {
		return ErrNotHolder
	}
	return err
}

// ReleaseCall explicitly ends a call session (finish or cancel).
// Compare-and-release: only the current holder's release takes effect.
func (m *Manager) ReleaseCall(ctx context.Context, apptID, agentID string) error {
	err := m.appts.ReleaseSession(ctx, apptID, agentID)
	if errors.Is(err, appointment.ErrNotHolder) {
		return ErrNotHolder
	}
	if err != nil {
		return err
	}
	if m.limiter != nil {
		_ = m.limiter.Release(ctx, agentID)
	}
	return nil
}

// CancelCall releases the caller's session and marks the appointment
// cancelled in one step. The release is still compare-and-release; the
// cancellation is only recorded when the caller actually held the claim.
func (m *Manager) CancelCall(ctx context.Context, apptID, agentID string) error {
	if err := m.ReleaseCall(ctx, apptID, agentID); err != nil {
		return err
	}
	return m.appts.SetConfirmation(ctx, apptID, appointment.ConfirmationCancelled, m.clock.Now())
}

// Abandon schedules an automatic release after the grace window. The release
// is a compare-and-release: if another process already reassigned the claim,
// nothing happens. The timer runs on the wall clock; abandonment recovery
// must work under a test clock override too.
func (m *Manager) Abandon(ctx context.Context, apptID, agentID string) {
	if apptID == "" || agentID == "" {
		return
	}
	// Detach from the caller: the request that reported the abandonment is
	// gone long before the grace window elapses.
	released := context.WithoutCancel(ctx)
	time.AfterFunc(m.grace, func() {
		// Errors (including ErrNotHolder) are deliberately dropped: a
		// failed auto-release means someone else owns the claim now.
		_ = m.ReleaseCall(released, apptID, agentID)
	})
}
