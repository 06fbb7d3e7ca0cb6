package lead

import (
	"testing"
	"time"
)

func at(h, m int) time.Time {
	return time.Date(2025, 4, 7, h, m, 0, 0, time.UTC)
}

func TestPeriodOf(t *testing.T) {
	cases := []struct {
		t    time.Time
		want Period
	}{
		{at(9, 29), PeriodNone},
		{at(9, 30), Period1},
		{at(12, 0), Period1},
		{at(12, 1), Period2},
		{at(17, 0), Period2},
		{at(17, 1), Period3},
		{at(18, 30), Period3},
		{at(18, 31), PeriodNone},
		{at(7, 0), PeriodNone},
		{at(22, 45), PeriodNone},
	}
	for _, c := range cases {
		if got := PeriodOf(c.t); got != c.want {
			t.Errorf("PeriodOf(%s) = %d, want %d", c.t.Format("15:04"), got, c.want)
		}
	}
}

func TestNextEligibleTime(t *testing.T) {
	day := func(d, h, m int) time.Time {
		return time.Date(2025, 4, d, h, m, 0, 0, time.UTC)
	}

	cases := []struct {
		name    string
		current Period
		last    Period
		now     time.Time
		want    time.Time
	}{
		// First-ever contact uses currentPeriod.
		{"p1 first contact", Period1, PeriodNone, day(7, 10, 0), day(7, 17, 1)},
		{"p2 first contact", Period2, PeriodNone, day(7, 13, 0), day(8, 9, 30)},
		{"p3 first contact", Period3, PeriodNone, day(7, 17, 30), day(8, 12, 1)},

		// Historical period drives the mapping when present.
		{"last p1, target start still ahead", Period3, Period1, day(7, 16, 0), day(7, 17, 1)},
		{"last p1, target start already passed", Period3, Period1, day(7, 18, 0), day(8, 17, 1)},
		{"last p2 rolls to next morning", Period1, Period2, day(7, 10, 0), day(8, 9, 30)},

		// After-hours contact is bucketed as period 3: skip to period 2.
		{"after hours first contact", PeriodNone, PeriodNone, day(7, 20, 0), day(8, 12, 1)},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := NextEligibleTime(c.current, c.last, c.now)
			if !got.Equal(c.want) {
				t.Fatalf("got %v, want %v", got, c.want)
			}
		})
	}
}

func TestNextEligibleTimeIsDeterministic(t *testing.T) {
	now := at(10, 15)
	a := NextEligibleTime(Period1, Period2, now)
	b := NextEligibleTime(Period1, Period2, now)
	if !a.Equal(b) {
		t.Fatalf("expected deterministic result, got %v and %v", a, b)
	}
}
