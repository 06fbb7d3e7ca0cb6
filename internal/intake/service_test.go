package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"pipeline-crm/internal/clock"
	"pipeline-crm/internal/lead"
	"pipeline-crm/internal/phone"
)

func newService(t *testing.T) (*Service, *lead.MemoryRepo) {
	t.Helper()
	repo := lead.NewMemoryRepo()
	clk := clock.NewManual(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	return NewService(repo, clk, nil), repo
}

func TestCreateNormalizesPhone(t *testing.T) {
	svc, _ := newService(t)

	l, err := svc.Create(context.Background(), CreateRequest{
		Name:  "Ada",
		Phone: "0090 (532) 123-45-67",
	})
	if err != nil {
		t.Fatal(err)
	}
	if l.Phone != "+905321234567" {
		t.Fatalf("phone = %q, want +905321234567", l.Phone)
	}
	if l.Status != lead.StatusFresh {
		t.Fatalf("status = %s, want %s", l.Status, lead.StatusFresh)
	}
	if l.ID == "" {
		t.Fatal("lead must get an ID")
	}
}

func TestCreateRejectsBadInput(t *testing.T) {
	svc, _ := newService(t)

	if _, err := svc.Create(context.Background(), CreateRequest{Name: "  ", Phone: "+905321234567"}); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("err = %v, want ErrEmptyName", err)
	}
	if _, err := svc.Create(context.Background(), CreateRequest{Name: "Ada", Phone: "12"}); !errors.Is(err, phone.ErrInvalidPhone) {
		t.Fatalf("err = %v, want ErrInvalidPhone", err)
	}
}

func TestCreateFlagsDuplicateButStillCreates(t *testing.T) {
	svc, repo := newService(t)

	first, err := svc.Create(context.Background(), CreateRequest{Name: "Ada", Phone: "+905321234567"})
	if err != nil {
		t.Fatal(err)
	}
	// Same number, different formatting.
	second, err := svc.Create(context.Background(), CreateRequest{Name: "Ada L.", Phone: "00905321234567"})
	if err != nil {
		t.Fatal(err)
	}
	if !second.IsDuplicate || second.DuplicateOf != first.ID {
		t.Fatalf("duplicate flags wrong: %+v", second)
	}
	if first.IsDuplicate {
		t.Fatal("original must not be flagged")
	}
	if len(repo.Snapshot()) != 2 {
		t.Fatal("duplicate must still be stored")
	}
}

func TestCreateBatchContinuesPastBadRows(t *testing.T) {
	svc, repo := newService(t)

	res, err := svc.CreateBatch(context.Background(), []CreateRequest{
		{Name: "A", Phone: "+905321110001"},
		{Name: "", Phone: "+905321110002"},
		{Name: "C", Phone: "garbage"},
		{Name: "D", Phone: "+905321110001"}, // duplicate of row 0
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 2 || res.Failed != 2 {
		t.Fatalf("created=%d failed=%d, want 2/2", res.Created, res.Failed)
	}
	if res.Rows[1].Error == "" || res.Rows[2].Error == "" {
		t.Fatal("failed rows must report an error")
	}
	if res.Rows[0].LeadID == "" || res.Rows[3].LeadID == "" {
		t.Fatal("created rows must report the lead ID")
	}

	leads := repo.Snapshot()
	if len(leads) != 2 {
		t.Fatalf("stored = %d, want 2", len(leads))
	}
	dupes := 0
	for _, l := range leads {
		if l.IsDuplicate {
			dupes++
		}
	}
	if dupes != 1 {
		t.Fatalf("duplicates flagged = %d, want 1", dupes)
	}
}
