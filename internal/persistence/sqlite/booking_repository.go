package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/roombook/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewBookingRepository creates a new SQLite booking repository.
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

// InsertBooking stores a new booking row.
func (r *BookingRepository) InsertBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO bookings (id, room_id, user_id, start_time, end_time, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	return r.retry.WithRetry(ctx, func() error {
		_, err := r.helper.Exec(ctx, query,
			booking.ID,
			booking.RoomID,
			booking.UserID,
			formatTime(booking.Start),
			formatTime(booking.End),
			string(booking.Status),
			formatTime(booking.CreatedAt),
			formatTime(booking.UpdatedAt),
		)
		return err
	})
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, room_id, user_id, start_time, end_time, status, created_at, updated_at
		FROM bookings
		WHERE id = ?
	`

	booking, err := scanBooking(r.helper.QueryRow(ctx, query, id))
	if err != nil {
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	return booking, nil
}

// FindBookingsForRoom returns every booking whose interval overlaps the
// half-open window [from, to). An existing booking [a, b) overlaps iff
// a < to and b > from, which excludes abutting intervals.
func (r *BookingRepository) FindBookingsForRoom(ctx context.Context, roomID string, from, to time.Time) ([]persistence.Booking, error) {
	query := `
		SELECT id, room_id, user_id, start_time, end_time, status, created_at, updated_at
		FROM bookings
		WHERE room_id = ? AND start_time < ? AND end_time > ?
		ORDER BY start_time ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, roomID, formatTime(to), formatTime(from))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// ListBookingsForUser returns the user's bookings, newest start first.
func (r *BookingRepository) ListBookingsForUser(ctx context.Context, userID string) ([]persistence.Booking, error) {
	query := `
		SELECT id, room_id, user_id, start_time, end_time, status, created_at, updated_at
		FROM bookings
		WHERE user_id = ?
		ORDER BY start_time DESC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, userID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// ListBookings returns every booking, newest start first.
func (r *BookingRepository) ListBookings(ctx context.Context) ([]persistence.Booking, error) {
	query := `
		SELECT id, room_id, user_id, start_time, end_time, status, created_at, updated_at
		FROM bookings
		ORDER BY start_time DESC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// UpdateBookingStatus performs the conditional status transition. The WHERE
// clause carries the expected status, so of any number of concurrent
// transitions exactly one observes an affected row.
func (r *BookingRepository) UpdateBookingStatus(ctx context.Context, id string, expected, next persistence.BookingStatus, updatedAt time.Time) (bool, error) {
	query := `
		UPDATE bookings
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	var affected int64
	err := r.retry.WithRetry(ctx, func() error {
		result, execErr := r.helper.Exec(ctx, query,
			string(next),
			formatTime(updatedAt),
			id,
			string(expected),
		)
		if execErr != nil {
			return execErr
		}
		var raErr error
		affected, raErr = result.RowsAffected()
		return raErr
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var status string
	var startStr, endStr, createdAtStr, updatedAtStr string

	if err := row.Scan(
		&booking.ID,
		&booking.RoomID,
		&booking.UserID,
		&startStr,
		&endStr,
		&status,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return persistence.Booking{}, err
	}

	var err error
	if booking.Start, err = parseTime(startStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("invalid start_time for booking %s: %w", booking.ID, err)
	}
	if booking.End, err = parseTime(endStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("invalid end_time for booking %s: %w", booking.ID, err)
	}
	if booking.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("invalid created_at for booking %s: %w", booking.ID, err)
	}
	if booking.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("invalid updated_at for booking %s: %w", booking.ID, err)
	}
	booking.Status = persistence.BookingStatus(status)

	return booking, nil
}

func collectBookings(rows *sql.Rows) ([]persistence.Booking, error) {
	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

// Stored timestamps use the fixed-width RFC3339 UTC form so the string
// comparisons in overlap queries follow chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

var _ persistence.BookingRepository = (*BookingRepository)(nil)
