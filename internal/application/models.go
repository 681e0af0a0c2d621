package application

import (
	"time"

	"github.com/example/roombook/internal/timeslot"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// BookingStatus mirrors the persisted lifecycle states exposed to callers.
type BookingStatus string

const (
	// BookingStatusConfirmed is the initial state of every persisted booking.
	BookingStatusConfirmed BookingStatus = "confirmed"
	// BookingStatusCancelled is terminal; the row is retained for history.
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking represents a persisted reservation of a room for a half-open
// time interval.
type Booking struct {
	ID        string
	RoomID    string
	UserID    string
	Start     time.Time
	End       time.Time
	Status    BookingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Interval returns the booking's half-open time range.
func (b Booking) Interval() timeslot.Interval {
	return timeslot.Interval{Start: b.Start, End: b.End}
}

// BookingInput captures caller provided reservation fields.
type BookingInput struct {
	RoomID string
	Start  time.Time
	End    time.Time
}

// CreateBookingParams wraps the data required to create a booking.
type CreateBookingParams struct {
	Principal Principal
	Input     BookingInput
}

// CancelBookingParams wraps the data required to cancel a booking. The
// principal must own the booking unless it carries the admin role.
type CancelBookingParams struct {
	Principal Principal
	BookingID string
}

// DaySlotsParams identifies the room-day whose annotated slots are requested.
type DaySlotsParams struct {
	Principal Principal
	RoomID    string
	Date      time.Time
}

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name      string
	Capacity  int
	Equipment *string
}

// Room represents a catalog entry for a bookable room.
type Room struct {
	ID        string
	Name      string
	Capacity  int
	Equipment *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update a room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// User represents a registered account exposed by the application services.
type User struct {
	ID        string
	Username  string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RegisterUserInput captures the self-service registration fields.
type RegisterUserInput struct {
	Username string
	Email    string
	Password string
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}

// LoginParams captures the data required to authenticate a user.
type LoginParams struct {
	Username string
	Password string
}

// LoginResult captures the outcome of a successful login attempt.
type LoginResult struct {
	User    User
	Session Session
}
