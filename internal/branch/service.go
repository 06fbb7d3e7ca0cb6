package branch

import (
	"context"
	"errors"

	"pipeline-crm/internal/clock"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("branch: not found")

	// ErrSlotFull means the conditional capacity decrement found no
	// remaining capacity. Expected under contention on popular slots.
	ErrSlotFull = errors.New("branch: slot full")

	ErrInvalidBranch = errors.New("branch: invalid request")
)

// Repository is the persistence contract for branches and slots.
type Repository interface {
	GetBranch(ctx context.Context, id string) (Branch, error)
	InsertBranch(ctx context.Context, b Branch) error
	ListBranches(ctx context.Context) ([]Branch, error)

	GetSlot(ctx context.Context, id string) (Slot, error)
	InsertSlot(ctx context.Context, s Slot) error
	ListSlots(ctx context.Context, branchID string) ([]Slot, error)

	// DecrementSlot reduces Remaining by one iff the slot belongs to the
	// branch and Remaining > 0. Returns ErrSlotFull otherwise.
	DecrementSlot(ctx context.Context, branchID, slotID string) error
}

// Service administers branches and time slots and hands out slot capacity to
// the appointment service.
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

func (s *Service) CreateBranch(ctx context.Context, name, city string) (Branch, error) {
	if name == "" {
		return Branch{}, ErrInvalidBranch
	}
	now := s.clock.Now()
	b := Branch{
		ID:        uuid.NewString(),
		Name:      name,
		City:      city,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertBranch(ctx, b); err != nil {
		return Branch{}, err
	}
	return b, nil
}

func (s *Service) ListBranches(ctx context.Context) ([]Branch, error) {
	return s.repo.ListBranches(ctx)
}

func (s *Service) CreateSlot(ctx context.Context, branchID string, slot Slot) (Slot, error) {
	if branchID == "" || slot.StartsAt.IsZero() || !slot.EndsAt.After(slot.StartsAt) || slot.Capacity <= 0 {
		return Slot{}, ErrInvalidBranch
	}
	if _, err := s.repo.GetBranch(ctx, branchID); err != nil {
		return Slot{}, err
	}
	now := s.clock.Now()
	slot.ID = uuid.NewString()
	slot.BranchID = branchID
	slot.Remaining = slot.Capacity
	slot.CreatedAt = now
	slot.UpdatedAt = now
	if err := s.repo.InsertSlot(ctx, slot); err != nil {
		return Slot{}, err
	}
	return slot, nil
}

func (s *Service) ListSlots(ctx context.Context, branchID string) ([]Slot, error) {
	return s.repo.ListSlots(ctx, branchID)
}

// ReserveSlot satisfies appointment.SlotReserver.
func (s *Service) ReserveSlot(ctx context.Context, branchID, slotID string) error {
	if branchID == "" || slotID == "" {
		return ErrInvalidBranch
	}
	return s.repo.DecrementSlot(ctx, branchID, slotID)
}
