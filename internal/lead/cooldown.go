package lead

import "time"

// Contact periods partition the calling day:
//
//	Period 1: 09:30 – 12:00
//	Period 2: 12:01 – 17:00
//	Period 3: 17:01 – 18:30
//
// A timestamp outside all three windows classifies as PeriodNone; such
// contacts are attributed to the Period 3 bucket for cap counting.
// Classification is derived from the clock and never persisted.
type Period int

const (
	PeriodNone Period = 0
	Period1    Period = 1
	Period2    Period = 2
	Period3    Period = 3
)

// PeriodOf classifies t into a contact period using t's location.
func PeriodOf(t time.Time) Period {
	m := t.Hour()*60 + t.Minute()
	switch {
	case m >= 9*60+30 && m <= 12*60:
		return Period1
	case m >= 12*60+1 && m <= 17*60:
		return Period2
	case m >= 17*60+1 && m <= 18*60+30:
		return Period3
	default:
		return PeriodNone
	}
}

// periodStart returns the wall-clock start of a period on the day of t.
func periodStart(p Period, t time.Time) time.Time {
	var h, min int
	switch p {
	case Period1:
		h, min = 9, 30
	case Period2:
		h, min = 12, 1
	default:
		h, min = 17, 1
	}
	return time.Date(t.Year(), t.Month(), t.Day(), h, min, 0, 0, t.Location())
}

// NextEligibleTime computes when a lead contacted now becomes eligible for the
// shared pool again. One full period is always skipped:
//
//	contact in P1 -> eligible at next P3 start (17:01)
//	contact in P2 -> eligible at next P1 start (09:30, next day)
//	contact in P3 -> eligible at next P2 start (12:01, next day)
//
// lastContactPeriod is the period of the previous contact; PeriodNone means
// first-ever contact, in which case currentPeriod takes its place. An
// after-hours previous contact (bucketed as Period 3) maps like Period 3.
//
// Pure function: no storage access, no side effects; deterministic for a
// given now.
func NextEligibleTime(currentPeriod, lastContactPeriod Period, now time.Time) time.Time {
	ref := lastContactPeriod
	if ref == PeriodNone {
		ref = currentPeriod
	}

	var target Period
	switch ref {
	case Period1:
		target = Period3
	case Period2:
		target = Period1
	default:
		// Period3 and after-hours contacts both skip to Period 2.
		target = Period2
	}

	eligible := periodStart(target, now)
	if !eligible.After(now) {
		eligible = eligible.AddDate(0, 0, 1)
	}
	return eligible
}
