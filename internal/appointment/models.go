package appointment

import "time"

// Appointment is a scheduled meeting tied to one lead.
//
// Invariants:
// - At most one agent holds ProcessingBy at any time (optimistic claim).
// - An agent holds ProcessingBy on at most one appointment system-wide.
// - ProcessingBy/ProcessingAt cycle through claim -> heartbeat -> release
//   (finish, abandonment timeout, or cancel) each call session and are written
//   only by the claim manager.
type Appointment struct {
	ID     string `json:"id" db:"id"`
	LeadID string `json:"lead_id" db:"lead_id"`

	BranchID string `json:"branch_id" db:"branch_id"`
	SlotID   string `json:"slot_id" db:"slot_id"`

	// Kind is the booking sub-type; it decides which detail field is set.
	Kind            string `json:"kind" db:"kind"`
	ServiceInterest string `json:"service_interest,omitempty" db:"service_interest"`
	FollowUpReason  string `json:"follow_up_reason,omitempty" db:"follow_up_reason"`

	BookedBy string `json:"booked_by" db:"booked_by"`
	Note     string `json:"note,omitempty" db:"note"`

	ConfirmationStatus ConfirmationStatus `json:"confirmation_status" db:"confirmation_status"`

	// CheckInStatus is the post-visit outcome, set the day after the
	// appointment or later; independent of ConfirmationStatus.
	CheckInStatus CheckInStatus `json:"check_in_status,omitempty" db:"check_in_status"`

	// Call-session claim. Empty ProcessingBy means unclaimed; ProcessingAt is
	// the heartbeat liveness timestamp while held.
	ProcessingBy string    `json:"processing_by,omitempty" db:"processing_by"`
	ProcessingAt time.Time `json:"processing_at,omitempty" db:"processing_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type ConfirmationStatus string

const (
	ConfirmationPending   ConfirmationStatus = "pending"
	ConfirmationConfirmed ConfirmationStatus = "confirmed"
	ConfirmationCancelled ConfirmationStatus = "cancelled"
	ConfirmationNoShow    ConfirmationStatus = "no_show"
)

func (s ConfirmationStatus) Valid() bool {
	switch s {
	case ConfirmationPending, ConfirmationConfirmed, ConfirmationCancelled, ConfirmationNoShow:
		return true
	default:
		return false
	}
}

type CheckInStatus string

const (
	CheckInNone        CheckInStatus = ""
	CheckInCompleted   CheckInStatus = "completed"
	CheckInRescheduled CheckInStatus = "rescheduled"
	CheckInNoShow      CheckInStatus = "no_show"
)

func (s CheckInStatus) Valid() bool {
	switch s {
	case CheckInCompleted, CheckInRescheduled, CheckInNoShow:
		return true
	default:
		return false
	}
}
