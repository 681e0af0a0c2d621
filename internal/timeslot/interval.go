package timeslot

import "time"

// Interval represents a half-open time range [Start, End): the start instant
// is included, the end instant is not.
type Interval struct {
	Start time.Time
	End   time.Time
}

// IsValid reports whether the interval has strictly positive length.
func (i Interval) IsValid() bool {
	return i.Start.Before(i.End)
}

// Overlaps reports whether two half-open intervals share at least one
// instant. An interval ending at 10:00 does not overlap one starting at
// 10:00; the predicate is symmetric.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Contains reports whether the instant falls inside the half-open range.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}
