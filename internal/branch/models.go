package branch

import "time"

// Branch is a physical office leads are booked into.
type Branch struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	City string `json:"city,omitempty" db:"city"`

	Active bool `json:"active" db:"active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Slot is a bookable time window at a branch. Remaining capacity is the
// shared resource decremented when an appointment is set; the decrement is a
// conditional update so concurrent bookings cannot oversell the slot.
type Slot struct {
	ID       string `json:"id" db:"id"`
	BranchID string `json:"branch_id" db:"branch_id"`

	StartsAt time.Time `json:"starts_at" db:"starts_at"`
	EndsAt   time.Time `json:"ends_at" db:"ends_at"`

	Capacity  int `json:"capacity" db:"capacity"`
	Remaining int `json:"remaining" db:"remaining"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
