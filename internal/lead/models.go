package lead

import "time"

// Lead is a prospective customer moving through the qualification pipeline.
//
// Invariants:
// - An agent holds at most one actively-assigned lead outside StatusCallRescheduled.
// - Per-period contact counters never exceed MaxAttemptsPerPeriod; total CallBack
//   attempts never exceed MaxTotalAttempts. At the cap the lead deterministically
//   becomes Hibernating.
// - Status, AssignedTo and the counters are mutated only through the state
//   machine (Service.SubmitOutcome) and the claim manager. No other code path
//   may write these fields.
type Lead struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	// Phone is the normalized comparable key (see internal/phone).
	Phone  string `json:"phone" db:"phone"`
	Source string `json:"source,omitempty" db:"source"`

	Status Status `json:"status" db:"status"`

	// AssignedTo is the agent currently holding this lead; empty means
	// the lead sits in the shared pool. AssignedAt drives expiry reclaim.
	AssignedTo string    `json:"assigned_to,omitempty" db:"assigned_to"`
	AssignedAt time.Time `json:"assigned_at,omitempty" db:"assigned_at"`

	// CooldownUntil makes the lead ineligible for pool draws until it passes.
	CooldownUntil time.Time `json:"cooldown_until,omitempty" db:"cooldown_until"`

	// CallBack (L1) contact throttling state.
	TotalAttempts     int       `json:"total_attempts" db:"total_attempts"`
	Period1Attempts   int       `json:"period1_attempts" db:"period1_attempts"`
	Period2Attempts   int       `json:"period2_attempts" db:"period2_attempts"`
	Period3Attempts   int       `json:"period3_attempts" db:"period3_attempts"`
	LastContactPeriod Period    `json:"last_contact_period" db:"last_contact_period"`
	LastContactAt     time.Time `json:"last_contact_at,omitempty" db:"last_contact_at"`

	// CallbackAt is the agreed future callback moment (StatusCallRescheduled).
	CallbackAt time.Time `json:"callback_at,omitempty" db:"callback_at"`

	// Duplicate flags are informational only; they never block creation.
	IsDuplicate bool   `json:"is_duplicate" db:"is_duplicate"`
	DuplicateOf string `json:"duplicate_of,omitempty" db:"duplicate_of"`

	Note string `json:"note,omitempty" db:"note"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	// StatusFresh is entered only at creation or by the expiry reclaim sweep;
	// it is never a submit-outcome target.
	StatusFresh           Status = "fresh"
	StatusCallBack        Status = "call_back"
	StatusCallRescheduled Status = "call_rescheduled"
	StatusCancelled       Status = "cancelled"
	StatusBlacklisted     Status = "blacklisted"
	StatusThinking        Status = "thinking"
	StatusAppointmentSet  Status = "appointment_set"
	StatusHibernating     Status = "hibernating"
)

// OutcomeTargets are the statuses reachable via a submitted call outcome.
var OutcomeTargets = []Status{
	StatusCallBack,
	StatusCallRescheduled,
	StatusCancelled,
	StatusBlacklisted,
	StatusThinking,
	StatusAppointmentSet,
	StatusHibernating,
}

func (s Status) Valid() bool {
	switch s {
	case StatusFresh, StatusCallBack, StatusCallRescheduled, StatusCancelled,
		StatusBlacklisted, StatusThinking, StatusAppointmentSet, StatusHibernating:
		return true
	default:
		return false
	}
}

// OutcomeTarget reports whether s may be the target of a submitted call outcome.
func (s Status) OutcomeTarget() bool {
	return s.Valid() && s != StatusFresh
}

const (
	MaxAttemptsPerPeriod = 2
	MaxTotalAttempts     = 6
)

// PeriodAttempts returns the attempt counter for a contact period bucket.
// Period 0 (outside calling windows) is attributed to the Period 3 bucket.
func (l Lead) PeriodAttempts(p Period) int {
	switch p {
	case Period1:
		return l.Period1Attempts
	case Period2:
		return l.Period2Attempts
	default:
		return l.Period3Attempts
	}
}

func (l *Lead) addPeriodAttempt(p Period) {
	switch p {
	case Period1:
		l.Period1Attempts++
	case Period2:
		l.Period2Attempts++
	default:
		l.Period3Attempts++
	}
}

// ResetCounters clears all contact throttling state. Used by the hibernation
// reaper when restoring a dormant lead.
func (l *Lead) ResetCounters() {
	l.TotalAttempts = 0
	l.Period1Attempts = 0
	l.Period2Attempts = 0
	l.Period3Attempts = 0
	l.LastContactPeriod = PeriodNone
}
