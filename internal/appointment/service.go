package appointment

import (
	"context"
	"errors"

	"pipeline-crm/internal/clock"
	"pipeline-crm/internal/lead"

	"github.com/google/uuid"
)

// SlotReserver conditionally decrements remaining capacity on a time slot.
// Implemented by the branch service.
type SlotReserver interface {
	ReserveSlot(ctx context.Context, branchID, slotID string) error
}

var ErrInvalidBooking = errors.New("appointment: invalid booking request")

// Service books appointments and records confirmation/check-in outcomes.
// It satisfies lead.Booker, so the state machine creates appointments through
// it when a lead moves to AppointmentSet.
type Service struct {
	repo  Repository
	slots SlotReserver
	clock clock.Clock
}

func NewService(repo Repository, slots SlotReserver, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{repo: repo, slots: slots, clock: clk}
}

// Book reserves slot capacity and creates the appointment record.
// Slot reservation runs first: a full slot must fail the booking before any
// appointment row exists.
func (s *Service) Book(ctx context.Context, req lead.BookingRequest) (string, error) {
	if req.LeadID == "" || req.BranchID == "" || req.SlotID == "" {
		return "", ErrInvalidBooking
	}
	switch req.Kind {
	case lead.BookingKindConsultation, lead.BookingKindFollowUp:
	default:
		return "", ErrInvalidBooking
	}

	if err := s.slots.ReserveSlot(ctx, req.BranchID, req.SlotID); err != nil {
		return "", err
	}

	now := s.clock.Now()
	a := Appointment{
		ID:                 uuid.NewString(),
		LeadID:             req.LeadID,
		BranchID:           req.BranchID,
		SlotID:             req.SlotID,
		Kind:               req.Kind,
		ServiceInterest:    req.ServiceInterest,
		FollowUpReason:     req.FollowUpReason,
		BookedBy:           req.AgentID,
		Note:               req.Note,
		ConfirmationStatus: ConfirmationPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.repo.Insert(ctx, a); err != nil {
		return "", err
	}
	return a.ID, nil
}

func (s *Service) Get(ctx context.Context, id string) (Appointment, error) {
	return s.repo.Get(ctx, id)
}

// Confirm records the pre-visit confirmation outcome.
func (s *Service) Confirm(ctx context.Context, id string, status ConfirmationStatus) error {
	if !status.Valid() {
		return ErrInvalidBooking
	}
	return s.repo.SetConfirmation(ctx, id, status, s.clock.Now())
}

// CheckIn records the post-visit outcome, set the day after the appointment
// or later.
func (s *Service) CheckIn(ctx context.Context, id string, status CheckInStatus) error {
	if !status.Valid() {
		return ErrInvalidBooking
	}
	return s.repo.SetCheckIn(ctx, id, status, s.clock.Now())
}
