package core

import "time"

// workingDayRolloverHour is the wall-clock hour at which the calendar day
// rolls over for accounting purposes, per spec.md §3/§4.7: an event at 01:30
// belongs to the previous day.
const workingDayRolloverHour = 2

// Clock supplies "now" and the derived working-date, so tests can pin time
// and so a future per-tenant timezone extension (spec.md §4.7 notes this is
// a single platform timezone today) has a single seam to extend.
type Clock interface {
	Now() time.Time
	WorkingDate() DateKey
}

// SystemClock is the default Clock, backed by time.Now and a fixed location.
type SystemClock struct {
	Location *time.Location
}

// NewSystemClock returns a Clock using loc (or UTC if nil).
func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return &SystemClock{Location: loc}
}

func (c *SystemClock) Now() time.Time { return time.Now().In(c.Location) }

func (c *SystemClock) WorkingDate() DateKey {
	return WorkingDateAt(c.Now())
}

// WorkingDateAt computes the working-day date for an arbitrary instant:
// shift the wall clock back by the rollover hour, then take the calendar
// day. A FixedClock in tests can call this directly to avoid relying on
// wall-clock time at all.
func WorkingDateAt(now time.Time) DateKey {
	return NewDateKey(now.Add(-workingDayRolloverHour * time.Hour))
}

// FixedClock is a Clock that always returns the same instant; used in tests.
type FixedClock struct {
	At time.Time
}

func (c FixedClock) Now() time.Time    { return c.At }
func (c FixedClock) WorkingDate() DateKey { return WorkingDateAt(c.At) }
