package appointment

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and early development.
// The single mutex gives the conditional updates the same one-winner
// guarantee the SQL implementation gets from compare-and-set.
type MemoryRepo struct {
	mu    sync.Mutex
	appts map[string]Appointment
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{appts: map[string]Appointment{}}
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return Appointment{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, a Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appts[a.ID] = a
	return nil
}

func (r *MemoryRepo) ListByLead(ctx context.Context, leadID string) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Appointment, 0)
	for _, a := range r.appts {
		if a.LeadID == leadID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ClaimSession(ctx context.Context, id, agentID string, now time.Time) (Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return Appointment{}, ErrNotFound
	}
	if a.ProcessingBy != "" {
		return Appointment{}, ErrClaimed
	}
	a.ProcessingBy = agentID
	a.ProcessingAt = now
	a.UpdatedAt = now
	r.appts[id] = a
	return a, nil
}

func (r *MemoryRepo) RefreshSession(ctx context.Context, id, agentID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return ErrNotFound
	}
	if a.ProcessingBy != agentID {
		return ErrNotHolder
	}
	a.ProcessingAt = now
	r.appts[id] = a
	return nil
}

func (r *MemoryRepo) ReleaseSession(ctx context.Context, id, agentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return ErrNotFound
	}
	if a.ProcessingBy != agentID {
		return ErrNotHolder
	}
	a.ProcessingBy = ""
	a.ProcessingAt = time.Time{}
	r.appts[id] = a
	return nil
}

func (r *MemoryRepo) FindSessionByAgent(ctx context.Context, agentID string) (Appointment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appts {
		if a.ProcessingBy == agentID {
			return a, true, nil
		}
	}
	return Appointment{}, false, nil
}

func (r *MemoryRepo) SetConfirmation(ctx context.Context, id string, status ConfirmationStatus, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return ErrNotFound
	}
	a.ConfirmationStatus = status
	a.UpdatedAt = now
	r.appts[id] = a
	return nil
}

func (r *MemoryRepo) SetCheckIn(ctx context.Context, id string, status CheckInStatus, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appts[id]
	if !ok {
		return ErrNotFound
	}
	a.CheckInStatus = status
	a.UpdatedAt = now
	r.appts[id] = a
	return nil
}
