package hibernate

import (
	"context"
	"testing"
	"time"

	"pipeline-crm/internal/clock"
	"pipeline-crm/internal/lead"
)

func TestReapRestoresDormantLeads(t *testing.T) {
	leads := lead.NewMemoryRepo()
	clk := clock.NewManual(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	r := NewReaper(leads, 30*24*time.Hour, time.Minute, clk, nil)

	dormant := lead.Lead{
		ID:              "dormant",
		Phone:           "+905320000001",
		Status:          lead.StatusHibernating,
		TotalAttempts:   6,
		Period1Attempts: 2,
		Period2Attempts: 2,
		Period3Attempts: 2,
		LastContactAt:   clk.Now().Add(-31 * 24 * time.Hour),
	}
	sleeping := lead.Lead{
		ID:            "sleeping",
		Phone:         "+905320000002",
		Status:        lead.StatusHibernating,
		TotalAttempts: 6,
		LastContactAt: clk.Now().Add(-10 * 24 * time.Hour),
	}
	active := lead.Lead{
		ID:            "active",
		Phone:         "+905320000003",
		Status:        lead.StatusThinking,
		LastContactAt: clk.Now().Add(-60 * 24 * time.Hour),
	}
	for _, l := range []lead.Lead{dormant, sleeping, active} {
		if err := leads.Insert(context.Background(), l); err != nil {
			t.Fatal(err)
		}
	}

	n, err := r.ReapOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("restored = %d, want 1", n)
	}

	got, _ := leads.Get(context.Background(), "dormant")
	if got.Status != lead.StatusCallBack {
		t.Fatalf("status = %s, want %s", got.Status, lead.StatusCallBack)
	}
	if got.TotalAttempts != 0 || got.Period1Attempts != 0 || got.Period2Attempts != 0 || got.Period3Attempts != 0 {
		t.Fatalf("counters not reset: %+v", got)
	}
	if got.AssignedTo != "" || !got.CooldownUntil.IsZero() {
		t.Fatalf("restored lead must be fully eligible: %+v", got)
	}

	if got, _ := leads.Get(context.Background(), "sleeping"); got.Status != lead.StatusHibernating {
		t.Fatalf("lead inside the window must stay hibernating")
	}
	if got, _ := leads.Get(context.Background(), "active"); got.Status != lead.StatusThinking {
		t.Fatalf("non-hibernating lead must be untouched")
	}

	// Nothing left to restore on the next pass.
	if n, _ := r.ReapOnce(context.Background()); n != 0 {
		t.Fatalf("second reap restored %d, want 0", n)
	}

	// The remaining lead crosses the window once enough time passes.
	clk.Advance(21 * 24 * time.Hour)
	if n, _ := r.ReapOnce(context.Background()); n != 1 {
		t.Fatalf("reap after advancing clock restored %d, want 1", n)
	}
}
