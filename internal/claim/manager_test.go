package claim

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pipeline-crm/internal/appointment"
	"pipeline-crm/internal/clock"
	"pipeline-crm/internal/lead"
)

func newManager(t *testing.T) (*Manager, *lead.MemoryRepo, *appointment.MemoryRepo, *clock.Manual) {
	t.Helper()
	leads := lead.NewMemoryRepo()
	appts := appointment.NewMemoryRepo()
	clk := clock.NewManual(time.Date(2025, 4, 7, 10, 0, 0, 0, time.UTC))
	return NewManager(leads, appts, nil, clk, 20*time.Millisecond), leads, appts, clk
}

func seedLead(t *testing.T, repo *lead.MemoryRepo, id string, status lead.Status) {
	t.Helper()
	err := repo.Insert(context.Background(), lead.Lead{
		ID:     id,
		Name:   "n-" + id,
		Phone:  "+90532000" + id,
		Status: status,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func seedAppt(t *testing.T, repo *appointment.MemoryRepo, id string) {
	t.Helper()
	err := repo.Insert(context.Background(), appointment.Appointment{
		ID:                 id,
		LeadID:             "lead-" + id,
		BranchID:           "br-1",
		SlotID:             "slot-1",
		ConfirmationStatus: appointment.ConfirmationPending,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestAcquireNextPrefersFreshThenCallBackThenThinking(t *testing.T) {
	m, leads, _, _ := newManager(t)
	seedLead(t, leads, "thinking", lead.StatusThinking)
	seedLead(t, leads, "callback", lead.StatusCallBack)
	seedLead(t, leads, "fresh", lead.StatusFresh)

	order := []string{"fresh", "callback", "thinking"}
	for i, want := range order {
		agent := string(rune('a' + i))
		l, err := m.AcquireNextLead(context.Background(), agent)
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		if l.ID != want {
			t.Fatalf("draw %d: got %q, want %q", i, l.ID, want)
		}
	}
	if _, err := m.AcquireNextLead(context.Background(), "z"); !errors.Is(err, ErrNoneAvailable) {
		t.Fatalf("expected ErrNoneAvailable on empty pool, got %v", err)
	}
}

func TestAcquireNextRejectsBusyAgent(t *testing.T) {
	m, leads, _, _ := newManager(t)
	seedLead(t, leads, "l1", lead.StatusFresh)
	seedLead(t, leads, "l2", lead.StatusFresh)

	if _, err := m.AcquireNextLead(context.Background(), "agent-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AcquireNextLead(context.Background(), "agent-a"); !errors.Is(err, ErrAgentBusy) {
		t.Fatalf("expected ErrAgentBusy, got %v", err)
	}
}

func TestAcquireNextConcurrentSingleWinner(t *testing.T) {
	m, leads, _, _ := newManager(t)
	seedLead(t, leads, "only", lead.StatusFresh)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			agent := []string{"agent-a", "agent-b"}[i]
			_, results[i] = m.AcquireNextLead(context.Background(), agent)
		}(i)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrNoneAvailable):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins=%d losses=%d", wins, losses)
	}
}

func TestSkipsCooldownAndAssigned(t *testing.T) {
	m, leads, _, clk := newManager(t)
	now := clk.Now()

	seedLead(t, leads, "cooling", lead.StatusCallBack)
	l, _ := leads.Get(context.Background(), "cooling")
	l.CooldownUntil = now.Add(2 * time.Hour)
	if err := leads.ApplyTransition(context.Background(), l, lead.StatusCallBack, ""); err != nil {
		t.Fatal(err)
	}

	if _, err := m.AcquireNextLead(context.Background(), "agent-a"); !errors.Is(err, ErrNoneAvailable) {
		t.Fatalf("expected cooldown lead skipped, got %v", err)
	}

	clk.Advance(3 * time.Hour)
	if _, err := m.AcquireNextLead(context.Background(), "agent-a"); err != nil {
		t.Fatalf("expected claimable after cooldown, got %v", err)
	}
}

func TestClaimLeadAlreadyClaimed(t *testing.T) {
	m, leads, _, _ := newManager(t)
	seedLead(t, leads, "l1", lead.StatusFresh)

	if _, err := m.ClaimLead(context.Background(), "l1", "agent-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ClaimLead(context.Background(), "l1", "agent-b"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
}

func TestClaimCallSecondClaimantLoses(t *testing.T) {
	m, _, appts, _ := newManager(t)
	seedAppt(t, appts, "a1")

	if _, err := m.ClaimCall(context.Background(), "a1", "agent-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ClaimCall(context.Background(), "a1", "agent-b"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("expected ErrAlreadyClaimed, got %v", err)
	}
	a, _ := appts.Get(context.Background(), "a1")
	if a.ProcessingBy != "agent-a" {
		t.Fatalf("processing_by = %q", a.ProcessingBy)
	}
}

func TestClaimCallOneSessionPerAgent(t *testing.T) {
	m, _, appts, _ := newManager(t)
	seedAppt(t, appts, "a1")
	seedAppt(t, appts, "a2")

	if _, err := m.ClaimCall(context.Background(), "a1", "agent-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ClaimCall(context.Background(), "a2", "agent-a"); !errors.Is(err, ErrAgentBusy) {
		t.Fatalf("expected ErrAgentBusy for second session, got %v", err)
	}

	// After release the agent can claim again.
	if err := m.ReleaseCall(context.Background(), "a1", "agent-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ClaimCall(context.Background(), "a2", "agent-a"); err != nil {
		t.Fatalf("expected claim after release, got %v", err)
	}
}

func TestHeartbeatRefreshesOnlyForHolder(t *testing.T) {
	m, _, appts, clk := newManager(t)
	seedAppt(t, appts, "a1")

	if _, err := m.ClaimCall(context.Background(), "a1", "agent-a"); err != nil {
		t.Fatal(err)
	}
	first, _ := appts.Get(context.Background(), "a1")

	clk.Advance(30 * time.Second)
	if err := m.Heartbeat(context.Background(), "a1", "agent-a"); err != nil {
		t.Fatal(err)
	}
	after, _ := appts.Get(context.Background(), "a1")
	if !after.ProcessingAt.After(first.ProcessingAt) {
		t.Fatalf("heartbeat did not advance liveness timestamp")
	}

	if err := m.Heartbeat(context.Background(), "a1", "agent-b"); !errors.Is(err, ErrNotHolder) {
		t.Fatalf("expected ErrNotHolder, got %v", err)
	}
}

func TestAbandonReleasesAfterGraceOnlyIfStillHolder(t *testing.T) {
	m, _, appts, _ := newManager(t)
	seedAppt(t, appts, "a1")

	if _, err := m.ClaimCall(context.Background(), "a1", "agent-a"); err != nil {
		t.Fatal(err)
	}
	m.Abandon(context.Background(), "a1", "agent-a")

	time.Sleep(80 * time.Millisecond)
	a, _ := appts.Get(context.Background(), "a1")
	if a.ProcessingBy != "" {
		t.Fatalf("expected auto-release after grace, held by %q", a.ProcessingBy)
	}
}

func TestAbandonDoesNotReleaseReassignedClaim(t *testing.T) {
	m, _, appts, _ := newManager(t)
	seedAppt(t, appts, "a1")

	if _, err := m.ClaimCall(context.Background(), "a1", "agent-a"); err != nil {
		t.Fatal(err)
	}
	m.Abandon(context.Background(), "a1", "agent-a")

	// Another process releases and reassigns before the grace elapses.
	if err := appts.ReleaseSession(context.Background(), "a1", "agent-a"); err != nil {
		t.Fatal(err)
	}
	if _, err := appts.ClaimSession(context.Background(), "a1", "agent-b", time.Now()); err != nil {
		t.Fatal(err)
	}

	time.Sleep(80 * time.Millisecond)
	a, _ := appts.Get(context.Background(), "a1")
	if a.ProcessingBy != "agent-b" {
		t.Fatalf("compare-and-release must not clear the new holder; got %q", a.ProcessingBy)
	}
}

func TestCancelCallReleasesAndMarksCancelled(t *testing.T) {
	m, _, appts, _ := newManager(t)
	seedAppt(t, appts, "a1")

	if _, err := m.ClaimCall(context.Background(), "a1", "agent-a"); err != nil {
		t.Fatal(err)
	}
	if err := m.CancelCall(context.Background(), "a1", "agent-a"); err != nil {
		t.Fatal(err)
	}
	a, _ := appts.Get(context.Background(), "a1")
	if a.ProcessingBy != "" {
		t.Fatalf("session must be released, held by %q", a.ProcessingBy)
	}
	if a.ConfirmationStatus != appointment.ConfirmationCancelled {
		t.Fatalf("confirmation = %s, want %s", a.ConfirmationStatus, appointment.ConfirmationCancelled)
	}

	// A non-holder cancel must not touch the record.
	seedAppt(t, appts, "a2")
	if _, err := m.ClaimCall(context.Background(), "a2", "agent-b"); err != nil {
		t.Fatal(err)
	}
	if err := m.CancelCall(context.Background(), "a2", "agent-c"); !errors.Is(err, ErrNotHolder) {
		t.Fatalf("err = %v, want ErrNotHolder", err)
	}
	a2, _ := appts.Get(context.Background(), "a2")
	if a2.ConfirmationStatus == appointment.ConfirmationCancelled {
		t.Fatal("non-holder cancel must not mark the appointment cancelled")
	}
}
