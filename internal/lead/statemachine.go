package lead

import (
	"context"
	"errors"
	"time"

	"pipeline-crm/internal/clock"
)

// Booker creates the appointment record (and reserves slot capacity) when a
// lead transitions to StatusAppointmentSet. Implemented by the appointment
// service; kept as an interface so this package stays persistence-free.
type Booker interface {
	Book(ctx context.Context, req BookingRequest) (appointmentID string, err error)
}

type BookingRequest struct {
	LeadID  string
	AgentID string

	BranchID string
	SlotID   string

	// Kind selects which detail fields are required.
	Kind            string // "consultation" or "follow_up"
	ServiceInterest string // consultation detail
	FollowUpReason  string // follow-up detail

	Note string
}

const (
	BookingKindConsultation = "consultation"
	BookingKindFollowUp     = "follow_up"
)

// SettingsSource supplies admin-tunable numeric settings.
type SettingsSource interface {
	// ThinkingCooldownHours must return a value > 0.
	ThinkingCooldownHours(ctx context.Context) (float64, error)
}

// TransitionRecorder appends to the status transition log. Best-effort:
// failures never block a transition.
type TransitionRecorder interface {
	RecordTransition(ctx context.Context, leadID string, from, to Status, actorID, note string) error
}

// Outcome is the payload of a submitted call outcome. Required fields depend
// on the target status and are validated before any mutation is computed.
type Outcome struct {
	Target Status `json:"target"`

	// CallRescheduled: agreed future callback moment, and whether the agent
	// keeps the lead assigned to themselves instead of the team pool.
	CallbackAt   time.Time `json:"callback_at,omitempty"`
	KeepAssigned bool      `json:"keep_assigned,omitempty"`

	// AppointmentSet: booking details.
	BranchID        string `json:"branch_id,omitempty"`
	SlotID          string `json:"slot_id,omitempty"`
	Kind            string `json:"kind,omitempty"`
	ServiceInterest string `json:"service_interest,omitempty"`
	FollowUpReason  string `json:"follow_up_reason,omitempty"`

	Note string `json:"note,omitempty"`
}

// Result reports the side effects of a transition alongside the updated lead.
type Result struct {
	Lead          Lead   `json:"lead"`
	AppointmentID string `json:"appointment_id,omitempty"`
	// Hibernated is set when a CallBack outcome hit the total-attempt cap and
	// the lead was forced to StatusHibernating instead.
	Hibernated bool `json:"hibernated,omitempty"`
	// ReturnedToPool is set when a reschedule was forced to the team pool by
	// the self-assign policy.
	ReturnedToPool bool `json:"returned_to_pool,omitempty"`
}

// Service is the lead state machine. It is the only mutation path for
// status, assignment and contact counters; everything else goes through the
// claim manager.
type Service struct {
	repo     Repository
	booker   Booker
	settings SettingsSource
	history  TransitionRecorder
	clock    clock.Clock
}

func NewService(repo Repository, booker Booker, settings SettingsSource, history TransitionRecorder, clk clock.Clock) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	return &Service{repo: repo, booker: booker, settings: settings, history: history, clock: clk}
}

// SubmitOutcome applies one call outcome to a lead held by agentID.
//
// Rejections:
//   - *ValidationError for missing/invalid payload fields or a period counter
//     already at the cap; never retried automatically.
//   - ErrRace when the lead is no longer assigned to agentID (expired and
//     reclaimed, or concurrently transitioned).
//
// Fatal store errors propagate unchanged; no silent retry.
func (s *Service) SubmitOutcome(ctx context.Context, agentID, leadID string, out Outcome) (Result, error) {
	if agentID == "" || leadID == "" {
		return Result{}, &ValidationError{Field: "agent_id/lead_id", Reason: "required"}
	}
	if !out.Target.OutcomeTarget() {
		return Result{}, &ValidationError{Field: "target", Reason: "must be a non-fresh pipeline status"}
	}

	now := s.clock.Now()
	if err := validateOutcome(out, now); err != nil {
		return Result{}, err
	}

	l, err := s.repo.Get(ctx, leadID)
	if err != nil {
		return Result{}, err
	}
	if l.AssignedTo != agentID {
		return Result{}, ErrRace
	}

	prevStatus := l.Status
	res := Result{}

	switch out.Target {
	case StatusCallBack:
		hibernated, verr := applyCallBack(&l, now)
		if verr != nil {
			return Result{}, verr
		}
		res.Hibernated = hibernated

	case StatusCallRescheduled:
		keep := out.KeepAssigned
		if keep {
			n, err := s.repo.CountSelfRescheduled(ctx, agentID)
			if err != nil {
				return Result{}, err
			}
			if !CanSelfAssign(n) {
				keep = false
				res.ReturnedToPool = true
			}
		}
		l.Status = StatusCallRescheduled
		l.CallbackAt = out.CallbackAt
		l.CooldownUntil = time.Time{}
		if keep {
			l.AssignedAt = now
		} else {
			l.AssignedTo = ""
			l.AssignedAt = time.Time{}
		}

	case StatusThinking:
		hours, err := s.settings.ThinkingCooldownHours(ctx)
		if err != nil {
			return Result{}, err
		}
		l.Status = StatusThinking
		l.CooldownUntil = now.Add(time.Duration(hours * float64(time.Hour)))
		l.AssignedTo = ""
		l.AssignedAt = time.Time{}

	case StatusAppointmentSet:
		apptID, err := s.booker.Book(ctx, BookingRequest{
			LeadID:          l.ID,
			AgentID:         agentID,
			BranchID:        out.BranchID,
			SlotID:          out.SlotID,
			Kind:            out.Kind,
			ServiceInterest: out.ServiceInterest,
			FollowUpReason:  out.FollowUpReason,
			Note:            out.Note,
		})
		if err != nil {
			return Result{}, err
		}
		// Ownership moves to the appointment.
		l.Status = StatusAppointmentSet
		l.AssignedTo = ""
		l.AssignedAt = time.Time{}
		l.CooldownUntil = time.Time{}
		res.AppointmentID = apptID

	case StatusHibernating:
		l.Status = StatusHibernating
		l.LastContactAt = now
		l.AssignedTo = ""
		l.AssignedAt = time.Time{}
		l.CooldownUntil = time.Time{}

	default: // Cancelled, Blacklisted
		l.Status = out.Target
		l.AssignedTo = ""
		l.AssignedAt = time.Time{}
		l.CooldownUntil = time.Time{}
	}

	if out.Note != "" {
		l.Note = out.Note
	}
	l.UpdatedAt = now

	if err := s.repo.ApplyTransition(ctx, l, prevStatus, agentID); err != nil {
		return Result{}, err
	}

	if s.history != nil {
		// Best-effort; the transition is already durable.
		_ = s.history.RecordTransition(ctx, l.ID, prevStatus, l.Status, agentID, out.Note)
	}

	res.Lead = l
	return res, nil
}

// applyCallBack mutates l for a contact-attempt outcome. On the final allowed
// attempt the lead is forced to hibernation: assignment cleared, last-contact
// stamped, cooldown skipped.
func applyCallBack(l *Lead, now time.Time) (hibernated bool, err error) {
	current := PeriodOf(now)
	bucket := current
	if bucket == PeriodNone {
		// After-hours contacts count toward the Period 3 bucket.
		bucket = Period3
	}

	if l.PeriodAttempts(bucket) >= MaxAttemptsPerPeriod {
		return false, &ValidationError{Field: "period_attempts", Reason: "cap reached for current contact period"}
	}
	if l.TotalAttempts >= MaxTotalAttempts {
		return false, &ValidationError{Field: "total_attempts", Reason: "contact attempt budget exhausted"}
	}

	// Cooldown is derived from the previous contact's period; first-ever
	// contact falls back to the current period.
	cooldown := NextEligibleTime(current, l.LastContactPeriod, now)

	l.addPeriodAttempt(bucket)
	l.TotalAttempts++
	l.LastContactPeriod = bucket
	l.LastContactAt = now
	l.AssignedTo = ""
	l.AssignedAt = time.Time{}

	if l.TotalAttempts >= MaxTotalAttempts {
		l.Status = StatusHibernating
		l.CooldownUntil = time.Time{}
		return true, nil
	}

	l.Status = StatusCallBack
	l.CooldownUntil = cooldown
	return false, nil
}

// validateOutcome enforces the per-target required payload fields before any
// mutation is computed.
func validateOutcome(out Outcome, now time.Time) error {
	switch out.Target {
	case StatusCallRescheduled:
		if out.CallbackAt.IsZero() {
			return &ValidationError{Field: "callback_at", Reason: "required"}
		}
		if !out.CallbackAt.After(now) {
			return &ValidationError{Field: "callback_at", Reason: "must be in the future"}
		}
	case StatusAppointmentSet:
		if out.BranchID == "" {
			return &ValidationError{Field: "branch_id", Reason: "required"}
		}
		if out.SlotID == "" {
			return &ValidationError{Field: "slot_id", Reason: "required"}
		}
		switch out.Kind {
		case BookingKindConsultation:
			if out.ServiceInterest == "" {
				return &ValidationError{Field: "service_interest", Reason: "required for consultation bookings"}
			}
		case BookingKindFollowUp:
			if out.FollowUpReason == "" {
				return &ValidationError{Field: "follow_up_reason", Reason: "required for follow-up bookings"}
			}
		default:
			return &ValidationError{Field: "kind", Reason: "must be consultation or follow_up"}
		}
	}
	return nil
}

// IsValidation reports whether err is a payload rejection.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
