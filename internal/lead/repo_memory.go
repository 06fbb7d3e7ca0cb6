package lead

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and early development.
// All conditional updates run under one mutex, which gives the same
// exactly-one-winner guarantee the SQL implementation gets from
// conditional UPDATEs.
type MemoryRepo struct {
	mu    sync.Mutex
	leads map[string]Lead
	order []string // insertion order, stable pool scans
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{leads: map[string]Lead{}}
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return l, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, l Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.leads[l.ID]; exists {
		return ErrRace
	}
	r.leads[l.ID] = l
	r.order = append(r.order, l.ID)
	return nil
}

func (r *MemoryRepo) FindByPhone(ctx context.Context, normalizedPhone string) (Lead, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		l := r.leads[id]
		if l.Phone == normalizedPhone {
			return l, true, nil
		}
	}
	return Lead{}, false, nil
}

func (r *MemoryRepo) ListByStatus(ctx context.Context, status Status, limit int) ([]Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Lead, 0)
	for _, id := range r.order {
		l := r.leads[id]
		if l.Status != status {
			continue
		}
		out = append(out, l)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepo) eligible(l Lead, now time.Time) bool {
	if l.AssignedTo != "" {
		return false
	}
	if !l.CooldownUntil.IsZero() && l.CooldownUntil.After(now) {
		return false
	}
	return true
}

func (r *MemoryRepo) Claim(ctx context.Context, id, agentID string, now time.Time) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	inPool := false
	for _, s := range PoolStatuses {
		if l.Status == s {
			inPool = true
			break
		}
	}
	if !inPool || !r.eligible(l, now) {
		return Lead{}, ErrClaimed
	}

	l.AssignedTo = agentID
	l.AssignedAt = now
	l.UpdatedAt = now
	r.leads[id] = l
	return l, nil
}

func (r *MemoryRepo) AcquireNext(ctx context.Context, agentID string, now time.Time) (Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, status := range PoolStatuses {
		for _, id := range r.order {
			l := r.leads[id]
			if l.Status != status || !r.eligible(l, now) {
				continue
			}
			l.AssignedTo = agentID
			l.AssignedAt = now
			l.UpdatedAt = now
			r.leads[id] = l
			return l, nil
		}
	}
	return Lead{}, ErrNoneEligible
}

func (r *MemoryRepo) ApplyTransition(ctx context.Context, updated Lead, expectStatus Status, expectAssignee string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.leads[updated.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != expectStatus || cur.AssignedTo != expectAssignee {
		return ErrRace
	}
	r.leads[updated.ID] = updated
	return nil
}

func (r *MemoryRepo) CountActiveAssigned(ctx context.Context, agentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.leads {
		if l.AssignedTo == agentID && l.Status != StatusCallRescheduled {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) CountSelfRescheduled(ctx context.Context, agentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, l := range r.leads {
		if l.AssignedTo == agentID && l.Status == StatusCallRescheduled {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) ReclaimExpired(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, l := range r.leads {
		if l.AssignedTo == "" || l.AssignedAt.After(cutoff) {
			continue
		}
		inPool := false
		for _, s := range PoolStatuses {
			if l.Status == s {
				inPool = true
				break
			}
		}
		if !inPool {
			continue
		}
		l.AssignedTo = ""
		l.AssignedAt = time.Time{}
		l.Status = StatusFresh
		r.leads[id] = l
		n++
	}
	return n, nil
}

func (r *MemoryRepo) RestoreHibernated(ctx context.Context, cutoff, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, l := range r.leads {
		if l.Status != StatusHibernating {
			continue
		}
		if l.LastContactAt.After(cutoff) {
			continue
		}
		l.Status = StatusCallBack
		l.ResetCounters()
		l.CooldownUntil = time.Time{}
		l.AssignedTo = ""
		l.AssignedAt = time.Time{}
		l.UpdatedAt = now
		r.leads[id] = l
		n++
	}
	return n, nil
}

// Snapshot returns all leads sorted by ID; test helper.
func (r *MemoryRepo) Snapshot() []Lead {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Lead, 0, len(r.leads))
	for _, l := range r.leads {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
