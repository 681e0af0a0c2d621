package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/roombook/internal/persistence"
)

func insertTestBooking(t *testing.T, repo *BookingRepository, id, roomID, userID string, start, end time.Time, status persistence.BookingStatus) {
	t.Helper()
	err := repo.InsertBooking(context.Background(), persistence.Booking{
		ID:        id,
		RoomID:    roomID,
		UserID:    userID,
		Start:     start,
		End:       end,
		Status:    status,
		CreatedAt: testBase,
		UpdatedAt: testBase,
	})
	if err != nil {
		t.Fatalf("failed to insert booking %s: %v", id, err)
	}
}

func TestBookingRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	seedTestUser(t, pool, "user-1", "tanaka")
	seedTestRoom(t, pool, "room-1", "会議室A")
	repo := NewBookingRepository(pool)

	insertTestBooking(t, repo, "b-1", "room-1", "user-1", testBase, testBase.Add(time.Hour), persistence.BookingStatusConfirmed)

	got, err := repo.GetBooking(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("GetBooking returned error: %v", err)
	}
	if got.RoomID != "room-1" || got.UserID != "user-1" {
		t.Fatalf("unexpected booking: %+v", got)
	}
	if !got.Start.Equal(testBase) || !got.End.Equal(testBase.Add(time.Hour)) {
		t.Fatalf("timestamps did not round-trip: %+v", got)
	}
	if got.Status != persistence.BookingStatusConfirmed {
		t.Fatalf("unexpected status: %q", got.Status)
	}

	if _, err := repo.GetBooking(context.Background(), "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingRepositoryRejectsInvalidRows(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	seedTestUser(t, pool, "user-1", "tanaka")
	seedTestRoom(t, pool, "room-1", "会議室A")
	repo := NewBookingRepository(pool)

	// Inverted interval violates the table check constraint.
	err := repo.InsertBooking(context.Background(), persistence.Booking{
		ID:        "b-bad",
		RoomID:    "room-1",
		UserID:    "user-1",
		Start:     testBase.Add(time.Hour),
		End:       testBase,
		Status:    persistence.BookingStatusConfirmed,
		CreatedAt: testBase,
		UpdatedAt: testBase,
	})
	if !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}

	// Unknown room violates the foreign key.
	err = repo.InsertBooking(context.Background(), persistence.Booking{
		ID:        "b-fk",
		RoomID:    "room-missing",
		UserID:    "user-1",
		Start:     testBase,
		End:       testBase.Add(time.Hour),
		Status:    persistence.BookingStatusConfirmed,
		CreatedAt: testBase,
		UpdatedAt: testBase,
	})
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}

	insertTestBooking(t, repo, "b-1", "room-1", "user-1", testBase, testBase.Add(time.Hour), persistence.BookingStatusConfirmed)
	err = repo.InsertBooking(context.Background(), persistence.Booking{
		ID:        "b-1",
		RoomID:    "room-1",
		UserID:    "user-1",
		Start:     testBase.Add(2 * time.Hour),
		End:       testBase.Add(3 * time.Hour),
		Status:    persistence.BookingStatusConfirmed,
		CreatedAt: testBase,
		UpdatedAt: testBase,
	})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused id, got %v", err)
	}
}

func TestFindBookingsForRoomOverlapWindow(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	seedTestUser(t, pool, "user-1", "tanaka")
	seedTestRoom(t, pool, "room-1", "会議室A")
	seedTestRoom(t, pool, "room-2", "会議室B")
	repo := NewBookingRepository(pool)

	// Room 1: [09:00,10:00), [10:00,11:00), [12:00,13:00).
	insertTestBooking(t, repo, "b-9", "room-1", "user-1", testBase, testBase.Add(time.Hour), persistence.BookingStatusConfirmed)
	insertTestBooking(t, repo, "b-10", "room-1", "user-1", testBase.Add(time.Hour), testBase.Add(2*time.Hour), persistence.BookingStatusConfirmed)
	insertTestBooking(t, repo, "b-12", "room-1", "user-1", testBase.Add(3*time.Hour), testBase.Add(4*time.Hour), persistence.BookingStatusCancelled)
	// Room 2 booking must never appear for room 1.
	insertTestBooking(t, repo, "b-other", "room-2", "user-1", testBase, testBase.Add(time.Hour), persistence.BookingStatusConfirmed)

	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want []string
	}{
		{
			name: "window covering the whole day",
			from: testBase,
			to:   testBase.Add(8 * time.Hour),
			want: []string{"b-9", "b-10", "b-12"},
		},
		{
			name: "window overlapping one booking",
			from: testBase.Add(30 * time.Minute),
			to:   testBase.Add(time.Hour),
			want: []string{"b-9"},
		},
		{
			name: "abutting window matches nothing",
			from: testBase.Add(2 * time.Hour),
			to:   testBase.Add(3 * time.Hour),
			want: nil,
		},
		{
			name: "cancelled bookings are still returned",
			from: testBase.Add(3 * time.Hour),
			to:   testBase.Add(4 * time.Hour),
			want: []string{"b-12"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := repo.FindBookingsForRoom(context.Background(), "room-1", tc.from, tc.to)
			if err != nil {
				t.Fatalf("FindBookingsForRoom returned error: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %d bookings, got %d", len(tc.want), len(got))
			}
			for i, id := range tc.want {
				if got[i].ID != id {
					t.Fatalf("expected booking %q at index %d, got %q", id, i, got[i].ID)
				}
			}
		})
	}
}

func TestListBookingsOrdering(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	seedTestUser(t, pool, "user-1", "tanaka")
	seedTestUser(t, pool, "user-2", "suzuki")
	seedTestRoom(t, pool, "room-1", "会議室A")
	repo := NewBookingRepository(pool)

	insertTestBooking(t, repo, "b-early", "room-1", "user-1", testBase, testBase.Add(time.Hour), persistence.BookingStatusConfirmed)
	insertTestBooking(t, repo, "b-late", "room-1", "user-1", testBase.Add(5*time.Hour), testBase.Add(6*time.Hour), persistence.BookingStatusConfirmed)
	insertTestBooking(t, repo, "b-other", "room-1", "user-2", testBase.Add(2*time.Hour), testBase.Add(3*time.Hour), persistence.BookingStatusConfirmed)

	mine, err := repo.ListBookingsForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListBookingsForUser returned error: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != "b-late" || mine[1].ID != "b-early" {
		t.Fatalf("expected newest-first user bookings, got %+v", mine)
	}

	all, err := repo.ListBookings(context.Background())
	if err != nil {
		t.Fatalf("ListBookings returned error: %v", err)
	}
	if len(all) != 3 || all[0].ID != "b-late" || all[1].ID != "b-other" || all[2].ID != "b-early" {
		t.Fatalf("expected newest-first all bookings, got %+v", all)
	}
}

func TestUpdateBookingStatusConditionalTransition(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	seedTestUser(t, pool, "user-1", "tanaka")
	seedTestRoom(t, pool, "room-1", "会議室A")
	repo := NewBookingRepository(pool)

	insertTestBooking(t, repo, "b-1", "room-1", "user-1", testBase, testBase.Add(time.Hour), persistence.BookingStatusConfirmed)

	cancelledAt := testBase.Add(time.Minute)
	ok, err := repo.UpdateBookingStatus(context.Background(), "b-1", persistence.BookingStatusConfirmed, persistence.BookingStatusCancelled, cancelledAt)
	if err != nil {
		t.Fatalf("UpdateBookingStatus returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected first transition to win")
	}

	// The stored row reflects the transition.
	got, err := repo.GetBooking(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("GetBooking returned error: %v", err)
	}
	if got.Status != persistence.BookingStatusCancelled {
		t.Fatalf("expected cancelled status, got %q", got.Status)
	}
	if !got.UpdatedAt.Equal(cancelledAt) {
		t.Fatalf("expected updated_at %s, got %s", cancelledAt, got.UpdatedAt)
	}

	// A second identical transition finds no matching row.
	ok, err = repo.UpdateBookingStatus(context.Background(), "b-1", persistence.BookingStatusConfirmed, persistence.BookingStatusCancelled, cancelledAt.Add(time.Minute))
	if err != nil {
		t.Fatalf("UpdateBookingStatus returned error: %v", err)
	}
	if ok {
		t.Fatalf("repeated transition must report false")
	}
}
