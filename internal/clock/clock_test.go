package clock

import (
	"testing"
	"time"
)

func TestManualAdvancePropagates(t *testing.T) {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	c := NewManual(start)

	if !c.Now().Equal(start) {
		t.Fatalf("expected %v, got %v", start, c.Now())
	}

	c.Advance(90 * time.Minute)
	want := start.Add(90 * time.Minute)
	if !c.Now().Equal(want) {
		t.Fatalf("expected %v, got %v", want, c.Now())
	}

	// Every consumer holding the same Clock must see the new value.
	var asClock Clock = c
	if !asClock.Now().Equal(want) {
		t.Fatalf("interface consumer saw stale time")
	}
}

func TestManualSet(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	at := time.Date(2025, 6, 15, 17, 1, 0, 0, time.UTC)
	c.Set(at)
	if !c.Now().Equal(at) {
		t.Fatalf("expected %v, got %v", at, c.Now())
	}
}
