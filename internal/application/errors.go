package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting principal lacks permission
	// for an operation, including cancelling a booking it does not own.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a uniqueness rule rejects a write.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflictingReferences is returned when deleting a resource that is
	// still referenced, such as a room with bookings.
	ErrConflictingReferences = errors.New("application: conflicting references")

	// ErrInvalidInterval is returned when a booking request does not describe
	// a strictly positive half-open interval.
	ErrInvalidInterval = errors.New("application: invalid interval")
	// ErrPastBooking is returned when a booking would start before now.
	ErrPastBooking = errors.New("application: booking starts in the past")
	// ErrSlotConflict is returned when the requested interval overlaps an
	// existing confirmed booking for the same room.
	ErrSlotConflict = errors.New("application: slot conflict")
	// ErrAlreadyCancelled is returned when cancelling a booking that is no
	// longer confirmed, including when a concurrent cancel won the race.
	ErrAlreadyCancelled = errors.New("application: booking already cancelled")
	// ErrAlreadyPassed is returned when cancelling a booking whose start
	// instant is not in the future.
	ErrAlreadyPassed = errors.New("application: booking already passed")

	// ErrInvalidCredentials is returned for any authentication failure.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session token is past its TTL.
	ErrSessionExpired = errors.New("application: session expired")
	// ErrSessionRevoked is returned when a session token was revoked.
	ErrSessionRevoked = errors.New("application: session revoked")

	// ErrStorage wraps persistence failures that are not business rejections.
	// Callers may retry; the services themselves never do.
	ErrStorage = errors.New("application: storage failure")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
