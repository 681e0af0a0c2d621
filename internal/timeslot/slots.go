package timeslot

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned when slot generation is attempted with a
// configuration that cannot produce a sensible schedule.
var ErrInvalidConfig = errors.New("timeslot: invalid configuration")

// Config describes the working-hours window used to derive bookable slots.
// The last slot of a day starts at WorkEndHour; its end may spill one
// duration past the hour.
type Config struct {
	WorkStartHour       int
	WorkEndHour         int
	SlotDurationMinutes int
}

// DefaultConfig returns the standard hourly 09:00-17:00 window.
func DefaultConfig() Config {
	return Config{WorkStartHour: 9, WorkEndHour: 17, SlotDurationMinutes: 60}
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.SlotDurationMinutes <= 0 {
		return fmt.Errorf("%w: slot duration must be positive, got %d", ErrInvalidConfig, c.SlotDurationMinutes)
	}
	if c.WorkStartHour < 0 || c.WorkStartHour > 23 {
		return fmt.Errorf("%w: work start hour %d out of range", ErrInvalidConfig, c.WorkStartHour)
	}
	if c.WorkEndHour < 0 || c.WorkEndHour > 23 {
		return fmt.Errorf("%w: work end hour %d out of range", ErrInvalidConfig, c.WorkEndHour)
	}
	if c.WorkEndHour < c.WorkStartHour {
		return fmt.Errorf("%w: work end hour %d precedes start hour %d", ErrInvalidConfig, c.WorkEndHour, c.WorkStartHour)
	}
	return nil
}

// Duration returns the slot length.
func (c Config) Duration() time.Duration {
	return time.Duration(c.SlotDurationMinutes) * time.Minute
}

// Slot is a candidate bookable window derived from the working-hours
// configuration. It is never persisted; Occupied is annotated on demand
// from the confirmed bookings of a room-day.
type Slot struct {
	Interval
	Occupied bool
}

// SlotsForDay produces the ordered sequence of candidate slots for the
// calendar day containing date, interpreted in loc. The cursor starts at
// WorkStartHour and advances by the slot duration until it passes
// WorkEndHour; the slot starting exactly at WorkEndHour is included. The
// output depends only on the arguments, so repeated calls with identical
// inputs yield identical slots.
func (c Config) SlotsForDay(date time.Time, loc *time.Location) ([]Slot, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}

	day := date.In(loc)
	cursor := time.Date(day.Year(), day.Month(), day.Day(), c.WorkStartHour, 0, 0, 0, loc)
	lastStart := time.Date(day.Year(), day.Month(), day.Day(), c.WorkEndHour, 0, 0, 0, loc)
	step := c.Duration()

	slots := make([]Slot, 0, (c.WorkEndHour-c.WorkStartHour)*60/c.SlotDurationMinutes+1)
	for !cursor.After(lastStart) {
		slots = append(slots, Slot{Interval: Interval{Start: cursor, End: cursor.Add(step)}})
		cursor = cursor.Add(step)
	}

	return slots, nil
}

// DayWindow returns the interval spanned by the slots of a day, from the
// first slot's start to the last slot's end. Useful for bounding booking
// queries when annotating occupancy.
func (c Config) DayWindow(date time.Time, loc *time.Location) (Interval, error) {
	slots, err := c.SlotsForDay(date, loc)
	if err != nil {
		return Interval{}, err
	}
	if len(slots) == 0 {
		return Interval{}, nil
	}
	return Interval{Start: slots[0].Start, End: slots[len(slots)-1].End}, nil
}
