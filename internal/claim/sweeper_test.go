package claim

import (
	"context"
	"testing"
	"time"

	"pipeline-crm/internal/lead"
)

func TestSweepReclaimsStaleAssignments(t *testing.T) {
	leads := lead.NewMemoryRepo()
	s := NewSweeper(leads, 30*time.Minute, time.Second, nil)

	// Assigned 31 real-world minutes ago, no outcome submitted since.
	stale := lead.Lead{
		ID:         "stale",
		Phone:      "+905320000001",
		Status:     lead.StatusCallBack,
		AssignedTo: "agent-a",
		AssignedAt: time.Now().Add(-31 * time.Minute),
	}
	// Assigned recently; must be left alone.
	fresh := lead.Lead{
		ID:         "recent",
		Phone:      "+905320000002",
		Status:     lead.StatusFresh,
		AssignedTo: "agent-b",
		AssignedAt: time.Now().Add(-5 * time.Minute),
	}
	// Rescheduled leads keep their assignment: an outcome was submitted.
	kept := lead.Lead{
		ID:         "kept",
		Phone:      "+905320000003",
		Status:     lead.StatusCallRescheduled,
		AssignedTo: "agent-c",
		AssignedAt: time.Now().Add(-2 * time.Hour),
	}
	for _, l := range []lead.Lead{stale, fresh, kept} {
		if err := leads.Insert(context.Background(), l); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("reclaimed = %d, want 1", n)
	}

	got, _ := leads.Get(context.Background(), "stale")
	if got.AssignedTo != "" || got.Status != lead.StatusFresh {
		t.Fatalf("stale lead not reset: %+v", got)
	}
	if got, _ := leads.Get(context.Background(), "recent"); got.AssignedTo != "agent-b" {
		t.Fatalf("recent assignment must survive")
	}
	if got, _ := leads.Get(context.Background(), "kept"); got.AssignedTo != "agent-c" {
		t.Fatalf("rescheduled assignment must survive")
	}

	// Idempotent: a second pass with no new work reclaims nothing.
	n, err = s.SweepOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("second sweep reclaimed %d, want 0", n)
	}
}
