package persistence

import "time"

// BookingStatus enumerates the lifecycle states of a persisted booking.
type BookingStatus string

const (
	// BookingStatusConfirmed is the only state a booking is created in.
	BookingStatusConfirmed BookingStatus = "confirmed"
	// BookingStatusCancelled is terminal; cancelled rows are retained for
	// history rather than removed.
	BookingStatusCancelled BookingStatus = "cancelled"
)

// User represents a registered account in the reservation domain.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Room represents a bookable room catalog entry.
type Room struct {
	ID        string
	Name      string
	Capacity  int
	Equipment *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Booking represents a reservation stored in persistence. Start and End
// describe a half-open interval; Start is strictly before End.
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

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	RevokedAt *time.Time
}
