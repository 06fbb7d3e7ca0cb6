package branch

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests and early development.
type MemoryRepo struct {
	mu       sync.Mutex
	branches map[string]Branch
	slots    map[string]Slot
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{branches: map[string]Branch{}, slots: map[string]Slot{}}
}

func (r *MemoryRepo) GetBranch(ctx context.Context, id string) (Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.branches[id]
	if !ok {
		return Branch{}, ErrNotFound
	}
	return b, nil
}

func (r *MemoryRepo) InsertBranch(ctx context.Context, b Branch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.branches[b.ID] = b
	return nil
}

func (r *MemoryRepo) ListBranches(ctx context.Context) ([]Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Branch, 0, len(r.branches))
	for _, b := range r.branches {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) GetSlot(ctx context.Context, id string) (Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return Slot{}, ErrNotFound
	}
	return s, nil
}

func (r *MemoryRepo) InsertSlot(ctx context.Context, s Slot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots[s.ID] = s
	return nil
}

func (r *MemoryRepo) ListSlots(ctx context.Context, branchID string) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Slot, 0)
	for _, s := range r.slots {
		if s.BranchID == branchID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (r *MemoryRepo) DecrementSlot(ctx context.Context, branchID, slotID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[slotID]
	if !ok || s.BranchID != branchID {
		return ErrNotFound
	}
	if s.Remaining <= 0 {
		return ErrSlotFull
	}
	s.Remaining--
	r.slots[slotID] = s
	return nil
}
