package persistence

import (
	"context"
	"time"
)

// UserRepository exposes CRUD operations for user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// RoomRepository exposes CRUD operations for the room catalog.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// BookingRepository stores reservations. Implementations never update a
// booking in place except through the conditional status transition.
type BookingRepository interface {
	InsertBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	// FindBookingsForRoom returns bookings for the room whose [start, end)
	// interval overlaps the half-open window [from, to), regardless of status.
	FindBookingsForRoom(ctx context.Context, roomID string, from, to time.Time) ([]Booking, error)
	// ListBookingsForUser returns the user's bookings ordered by start time
	// descending, newest first.
	ListBookingsForUser(ctx context.Context, userID string) ([]Booking, error)
	// ListBookings returns every booking ordered by start time descending.
	ListBookings(ctx context.Context) ([]Booking, error)
	// UpdateBookingStatus transitions the booking from expected to next and
	// stamps updatedAt. It reports false without error when the stored status
	// no longer matches expected, so concurrent transitions resolve to a
	// single winner.
	UpdateBookingStatus(ctx context.Context, id string, expected, next BookingStatus, updatedAt time.Time) (bool, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	GetSessionByToken(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) error
	// DeleteExpiredSessions removes sessions whose expiry is at or before
	// the reference instant and reports how many rows were removed.
	DeleteExpiredSessions(ctx context.Context, reference time.Time) (int64, error)
}
