package core

import (
	"testing"
	"time"
)

func TestDateKey_RoundTrip(t *testing.T) {
	d, err := ParseDateKey("2026-03-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2026-03-15" {
		t.Fatalf("expected round-trip string, got %s", d.String())
	}
}

func TestParseDateKey_Invalid(t *testing.T) {
	_, err := ParseDateKey("15/03/2026")
	if err == nil || !IsKind(err, KindValidationError) {
		t.Fatalf("expected validation error for malformed date, got %v", err)
	}
}

func TestDateKey_AddDaysAndDaysSince(t *testing.T) {
	d1, _ := ParseDateKey("2026-01-01")
	d2 := d1.AddDays(10)
	if d2.String() != "2026-01-11" {
		t.Fatalf("expected 2026-01-11, got %s", d2.String())
	}
	if got := d2.DaysSince(d1); got != 10 {
		t.Fatalf("expected 10 days since, got %d", got)
	}
	if !d2.After(d1) || d1.After(d2) {
		t.Fatalf("expected d2 after d1")
	}
}

func TestWorkingDateAt_RollsBackBeforeRolloverHour(t *testing.T) {
	// 01:30 local on the 15th belongs to the 14th's working day.
	early := time.Date(2026, 3, 15, 1, 30, 0, 0, time.UTC)
	got := WorkingDateAt(early)
	if got.String() != "2026-03-14" {
		t.Fatalf("expected working date to roll back to 2026-03-14, got %s", got.String())
	}

	// 02:30 local on the 15th belongs to the 15th.
	afterRollover := time.Date(2026, 3, 15, 2, 30, 0, 0, time.UTC)
	got = WorkingDateAt(afterRollover)
	if got.String() != "2026-03-15" {
		t.Fatalf("expected working date to stay on 2026-03-15, got %s", got.String())
	}
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2026, 6, 1, 3, 0, 0, 0, time.UTC)
	c := FixedClock{At: at}
	if !c.Now().Equal(at) {
		t.Fatalf("expected FixedClock.Now() to return the pinned instant")
	}
	if c.WorkingDate().String() != "2026-06-01" {
		t.Fatalf("expected working date 2026-06-01, got %s", c.WorkingDate().String())
	}
}
