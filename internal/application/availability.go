package application

import "github.com/example/roombook/internal/timeslot"

// conflictsWith reports whether the candidate interval overlaps any
// non-cancelled booking. Cancelled rows are retained in storage, so the
// checker filters them here rather than trusting every repository query to.
func conflictsWith(candidate timeslot.Interval, bookings []Booking) bool {
	for _, booking := range bookings {
		if booking.Status == BookingStatusCancelled {
			continue
		}
		if candidate.Overlaps(booking.Interval()) {
			return true
		}
	}
	return false
}

// annotateSlots marks each generated slot as occupied when it overlaps a
// non-cancelled booking. The input slice is not modified.
func annotateSlots(slots []timeslot.Slot, bookings []Booking) []timeslot.Slot {
	annotated := make([]timeslot.Slot, len(slots))
	copy(annotated, slots)
	for i := range annotated {
		annotated[i].Occupied = conflictsWith(annotated[i].Interval, bookings)
	}
	return annotated
}
