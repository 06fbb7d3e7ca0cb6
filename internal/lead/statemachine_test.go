package lead

import (
	"context"
	"errors"
	"testing"
	"time"

	"pipeline-crm/internal/clock"
)

type stubBooker struct {
	id   string
	err  error
	last BookingRequest
}

func (b *stubBooker) Book(ctx context.Context, req BookingRequest) (string, error) {
	b.last = req
	return b.id, b.err
}

type stubSettings struct {
	hours float64
	err   error
}

func (s stubSettings) ThinkingCooldownHours(ctx context.Context) (float64, error) {
	return s.hours, s.err
}

func newTestService(repo Repository, clk clock.Clock) (*Service, *stubBooker) {
	b := &stubBooker{id: "appt-1"}
	return NewService(repo, b, stubSettings{hours: 48}, nil, clk), b
}

func seedAssigned(t *testing.T, repo *MemoryRepo, id, agent string, status Status, at time.Time) Lead {
	t.Helper()
	l := Lead{
		ID:         id,
		Name:       "Ada",
		Phone:      "+905321234567",
		Status:     status,
		AssignedTo: agent,
		AssignedAt: at,
		CreatedAt:  at,
	}
	if err := repo.Insert(context.Background(), l); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return l
}

func TestSubmitOutcome_CallBackSetsCooldownAndReturnsToPool(t *testing.T) {
	// Period 1 contact, first ever: eligible again at 17:01 same day.
	now := time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC)
	clk := clock.NewManual(now)
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, clk)
	seedAssigned(t, repo, "l1", "agent-a", StatusFresh, now.Add(-time.Minute))

	res, err := svc.SubmitOutcome(context.Background(), "agent-a", "l1", Outcome{Target: StatusCallBack})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	l := res.Lead
	if l.Status != StatusCallBack {
		t.Fatalf("status = %q", l.Status)
	}
	if l.AssignedTo != "" {
		t.Fatalf("expected lead back in pool, assigned to %q", l.AssignedTo)
	}
	if l.Period1Attempts != 1 || l.TotalAttempts != 1 {
		t.Fatalf("counters = p1:%d total:%d", l.Period1Attempts, l.TotalAttempts)
	}
	want := time.Date(2025, 4, 7, 17, 1, 0, 0, time.UTC)
	if !l.CooldownUntil.Equal(want) {
		t.Fatalf("cooldown = %v, want %v", l.CooldownUntil, want)
	}

	// Not claimable before the cooldown passes, claimable after.
	if _, err := repo.AcquireNext(context.Background(), "agent-b", now.Add(time.Hour)); !errors.Is(err, ErrNoneEligible) {
		t.Fatalf("expected ErrNoneEligible before cooldown, got %v", err)
	}
	if _, err := repo.AcquireNext(context.Background(), "agent-b", want.Add(time.Minute)); err != nil {
		t.Fatalf("expected claimable after cooldown, got %v", err)
	}
}

func TestSubmitOutcome_CallBackRejectsAtPeriodCap(t *testing.T) {
	now := time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, clock.NewManual(now))
	l := seedAssigned(t, repo, "l1", "agent-a", StatusCallBack, now.Add(-time.Minute))
	l.Period1Attempts = MaxAttemptsPerPeriod
	l.Period2Attempts = 1
	l.TotalAttempts = 3
	if err := repo.ApplyTransition(context.Background(), l, StatusCallBack, "agent-a"); err != nil {
		t.Fatal(err)
	}

	_, err := svc.SubmitOutcome(context.Background(), "agent-a", "l1", Outcome{Target: StatusCallBack})
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError at period cap, got %v", err)
	}

	// Reject, do not silently cap: counters unchanged.
	got, _ := repo.Get(context.Background(), "l1")
	if got.Period1Attempts != MaxAttemptsPerPeriod || got.TotalAttempts != 3 {
		t.Fatalf("counters mutated on rejection: %+v", got)
	}
}

func TestSubmitOutcome_SixthAttemptForcesHibernation(t *testing.T) {
	now := time.Date(2025, 4, 7, 13, 0, 0, 0, time.UTC) // period 2
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, clock.NewManual(now))
	l := seedAssigned(t, repo, "l1", "agent-a", StatusCallBack, now.Add(-time.Minute))
	l.TotalAttempts = 5
	l.Period1Attempts = 2
	l.Period2Attempts = 1
	l.Period3Attempts = 2
	l.LastContactPeriod = Period3
	if err := repo.ApplyTransition(context.Background(), l, StatusCallBack, "agent-a"); err != nil {
		t.Fatal(err)
	}

	res, err := svc.SubmitOutcome(context.Background(), "agent-a", "l1", Outcome{Target: StatusCallBack})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.Hibernated {
		t.Fatalf("expected forced hibernation")
	}
	got := res.Lead
	if got.Status != StatusHibernating {
		t.Fatalf("status = %q", got.Status)
	}
	if got.AssignedTo != "" {
		t.Fatalf("assignment not cleared")
	}
	if !got.CooldownUntil.IsZero() {
		t.Fatalf("cooldown should be skipped on hibernation")
	}
	if got.LastContactAt.IsZero() {
		t.Fatalf("last contact not stamped")
	}
	// Final counters retained until the reaper resets them.
	if got.TotalAttempts != MaxTotalAttempts || got.Period2Attempts != 2 {
		t.Fatalf("counters = %+v", got)
	}
}

func TestSubmitOutcome_RescheduleSelfDeniedAtCap(t *testing.T) {
	now := time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, clock.NewManual(now))

	// Agent already keeps five self-assigned rescheduled leads.
	for i := 0; i < MaxSelfRescheduled; i++ {
		l := seedAssigned(t, repo, "r"+string(rune('0'+i)), "agent-a", StatusCallRescheduled, now)
		_ = l
	}
	seedAssigned(t, repo, "l1", "agent-a", StatusFresh, now.Add(-time.Minute))

	res, err := svc.SubmitOutcome(context.Background(), "agent-a", "l1", Outcome{
		Target:       StatusCallRescheduled,
		CallbackAt:   now.Add(24 * time.Hour),
		KeepAssigned: true,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if !res.ReturnedToPool {
		t.Fatalf("expected forced return to team pool")
	}
	if res.Lead.AssignedTo != "" {
		t.Fatalf("lead should be unassigned, got %q", res.Lead.AssignedTo)
	}
}

func TestSubmitOutcome_RescheduleKeepSelfBelowCap(t *testing.T) {
	now := time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, clock.NewManual(now))
	seedAssigned(t, repo, "l1", "agent-a", StatusFresh, now.Add(-time.Minute))

	res, err := svc.SubmitOutcome(context.Background(), "agent-a", "l1", Outcome{
		Target:       StatusCallRescheduled,
		CallbackAt:   now.Add(24 * time.Hour),
		KeepAssigned: true,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Lead.AssignedTo != "agent-a" {
		t.Fatalf("expected lead kept by agent, got %q", res.Lead.AssignedTo)
	}
	if res.ReturnedToPool {
		t.Fatalf("unexpected forced pool return")
	}
}

func TestSubmitOutcome_RescheduleRequiresFutureCallback(t *testing.T) {
	now := time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, clock.NewManual(now))
	seedAssigned(t, repo, "l1", "agent-a", StatusFresh, now.Add(-time.Minute))

	_, err := svc.SubmitOutcome(context.Background(), "agent-a", "l1", Outcome{
		Target:     StatusCallRescheduled,
		CallbackAt: now.Add(-time.Hour),
	})
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError for past callback, got %v", err)
	}

	_, err = svc.SubmitOutcome(context.Background(), "agent-a", "l1", Outcome{Target: StatusCallRescheduled})
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError for missing callback, got %v", err)
	}
}

func TestSubmitOutcome_ThinkingAppliesConfiguredCooldown(t *testing.T) {
	now := time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, clock.NewManual(now))
	seedAssigned(t, repo, "l1", "agent-a", StatusFresh, now.Add(-time.Minute))

	res, err := svc.SubmitOutcome(context.Background(), "agent-a", "l1", Outcome{Target: StatusThinking})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := now.Add(48 * time.Hour)
	if !res.Lead.CooldownUntil.Equal(want) {
		t.Fatalf("cooldown = %v, want %v", res.Lead.CooldownUntil, want)
	}
	if res.Lead.AssignedTo != "" {
		t.Fatalf("thinking lead should return to pool")
	}
}

func TestSubmitOutcome_AppointmentSetBooksAndUnassigns(t *testing.T) {
	now := time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	svc, booker := newTestService(repo, clock.NewManual(now))
	seedAssigned(t, repo, "l1", "agent-a", StatusThinking, now.Add(-time.Minute))

	res, err := svc.SubmitOutcome(context.Background(), "agent-a", "l1", Outcome{
		Target:          StatusAppointmentSet,
		BranchID:        "br-1",
		SlotID:          "slot-1",
		Kind:            BookingKindConsultation,
		ServiceInterest: "implant",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.AppointmentID != "appt-1" {
		t.Fatalf("appointment id = %q", res.AppointmentID)
	}
	if booker.last.LeadID != "l1" || booker.last.SlotID != "slot-1" {
		t.Fatalf("booker got %+v", booker.last)
	}
	if res.Lead.AssignedTo != "" {
		t.Fatalf("ownership should move to the appointment")
	}
}

func TestSubmitOutcome_AppointmentSetValidatesPerKind(t *testing.T) {
	now := time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, clock.NewManual(now))
	seedAssigned(t, repo, "l1", "agent-a", StatusFresh, now.Add(-time.Minute))

	cases := []Outcome{
		{Target: StatusAppointmentSet, SlotID: "s", Kind: BookingKindConsultation, ServiceInterest: "x"}, // missing branch
		{Target: StatusAppointmentSet, BranchID: "b", Kind: BookingKindConsultation, ServiceInterest: "x"}, // missing slot
		{Target: StatusAppointmentSet, BranchID: "b", SlotID: "s"},                                         // missing kind
		{Target: StatusAppointmentSet, BranchID: "b", SlotID: "s", Kind: BookingKindConsultation},          // missing detail
		{Target: StatusAppointmentSet, BranchID: "b", SlotID: "s", Kind: BookingKindFollowUp},              // missing detail
	}
	for i, out := range cases {
		if _, err := svc.SubmitOutcome(context.Background(), "agent-a", "l1", out); !IsValidation(err) {
			t.Errorf("case %d: expected ValidationError, got %v", i, err)
		}
	}
}

func TestSubmitOutcome_CancelClearsAssignmentAndCooldown(t *testing.T) {
	now := time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, clock.NewManual(now))
	l := seedAssigned(t, repo, "l1", "agent-a", StatusCallBack, now.Add(-time.Minute))
	l.CooldownUntil = now.Add(time.Hour)
	if err := repo.ApplyTransition(context.Background(), l, StatusCallBack, "agent-a"); err != nil {
		t.Fatal(err)
	}

	res, err := svc.SubmitOutcome(context.Background(), "agent-a", "l1", Outcome{Target: StatusCancelled})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if res.Lead.AssignedTo != "" || !res.Lead.CooldownUntil.IsZero() {
		t.Fatalf("expected cleared assignment and cooldown: %+v", res.Lead)
	}
}

func TestSubmitOutcome_RejectsNonHolder(t *testing.T) {
	now := time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, clock.NewManual(now))
	seedAssigned(t, repo, "l1", "agent-a", StatusFresh, now.Add(-time.Minute))

	_, err := svc.SubmitOutcome(context.Background(), "agent-b", "l1", Outcome{Target: StatusCancelled})
	if !errors.Is(err, ErrRace) {
		t.Fatalf("expected ErrRace for non-holder, got %v", err)
	}
}

func TestSubmitOutcome_RejectsFreshTarget(t *testing.T) {
	now := time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC)
	repo := NewMemoryRepo()
	svc, _ := newTestService(repo, clock.NewManual(now))
	seedAssigned(t, repo, "l1", "agent-a", StatusCallBack, now.Add(-time.Minute))

	_, err := svc.SubmitOutcome(context.Background(), "agent-a", "l1", Outcome{Target: StatusFresh})
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError for fresh target, got %v", err)
	}
}
