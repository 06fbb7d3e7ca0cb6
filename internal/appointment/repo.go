package appointment

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("appointment: not found")

	// ErrClaimed means the conditional call-session claim lost the race.
	ErrClaimed = errors.New("appointment: call session already claimed")

	// ErrNotHolder means a heartbeat or release ran for a party that no
	// longer holds the session.
	ErrNotHolder = errors.New("appointment: not the session holder")
)

// Repository is the persistence contract for appointments. The claim,
// refresh and release methods are single compare-and-set updates; the store
// serializes concurrent claimants per row.
type Repository interface {
	Get(ctx context.Context, id string) (Appointment, error)
	Insert(ctx context.Context, a Appointment) error
	ListByLead(ctx context.Context, leadID string) ([]Appointment, error)

	// ClaimSession sets ProcessingBy iff currently unclaimed.
	ClaimSession(ctx context.Context, id, agentID string, now time.Time) (Appointment, error)

	// RefreshSession bumps ProcessingAt iff agentID still holds the session.
	RefreshSession(ctx context.Context, id, agentID string, now time.Time) error

	// ReleaseSession clears ProcessingBy iff agentID still holds it
	// (compare-and-release, never an unconditional clear).
	ReleaseSession(ctx context.Context, id, agentID string) error

	// FindSessionByAgent returns the appointment whose session the agent
	// currently holds, if any; backs the one-call-per-agent invariant.
	FindSessionByAgent(ctx context.Context, agentID string) (Appointment, bool, error)

	// SetConfirmation and SetCheckIn record booking outcomes; they never
	// touch the session fields.
	SetConfirmation(ctx context.Context, id string, status ConfirmationStatus, now time.Time) error
	SetCheckIn(ctx context.Context, id string, status CheckInStatus, now time.Time) error
}
