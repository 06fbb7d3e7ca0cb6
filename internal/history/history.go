package history

import (
	"context"
	"errors"
	"time"

	"pipeline-crm/internal/clock"
	"pipeline-crm/internal/lead"

	"github.com/google/uuid"
)

// Entry is an immutable, append-only record of one lead status transition.
//
// Invariants:
// - Entries are never updated or deleted.
// - Recording is best-effort; callers must not block transitions on it.
type Entry struct {
	ID     string `json:"id" db:"id"`
	LeadID string `json:"lead_id" db:"lead_id"`

	FromStatus lead.Status `json:"from_status" db:"from_status"`
	ToStatus   lead.Status `json:"to_status" db:"to_status"`

	// ActorID is the agent who submitted the outcome; empty for background
	// sweeps (expiry reclaim, hibernation restore).
	ActorID string `json:"actor_id,omitempty" db:"actor_id"`
	Note    string `json:"note,omitempty" db:"note"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Repository is append-only by design; no Update/Delete methods exist.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	ListByLead(ctx context.Context, leadID string, limit int) ([]Entry, error)
}

var ErrInvalidEntry = errors.New("history: invalid entry")

// Service appends transition records. Satisfies lead.TransitionRecorder.
type Service struct {
	repo  Repository
	clock clock.Clock
}

func NewService(repo Repository, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{repo: repo, clock: clk}
}

func (s *Service) RecordTransition(ctx context.Context, leadID string, from, to lead.Status, actorID, note string) error {
	if leadID == "" || to == "" {
		return ErrInvalidEntry
	}
	return s.repo.Append(ctx, Entry{
		ID:         uuid.NewString(),
		LeadID:     leadID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Note:       note,
		CreatedAt:  s.clock.Now(),
	})
}

func (s *Service) ListByLead(ctx context.Context, leadID string, limit int) ([]Entry, error) {
	if leadID == "" {
		return nil, ErrInvalidEntry
	}
	return s.repo.ListByLead(ctx, leadID, limit)
}
