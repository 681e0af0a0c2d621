package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/roombook/internal/persistence"
)

func TestRoomRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewRoomRepository(pool)

	equipment := "プロジェクター、ホワイトボード"
	room := persistence.Room{
		ID:        "room-1",
		Name:      "第一会議室",
		Capacity:  8,
		Equipment: &equipment,
		CreatedAt: testBase,
		UpdatedAt: testBase,
	}
	if err := repo.CreateRoom(context.Background(), room); err != nil {
		t.Fatalf("CreateRoom returned error: %v", err)
	}

	got, err := repo.GetRoom(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("GetRoom returned error: %v", err)
	}
	if got.Name != room.Name || got.Capacity != room.Capacity {
		t.Fatalf("unexpected room: %+v", got)
	}
	if got.Equipment == nil || *got.Equipment != equipment {
		t.Fatalf("equipment did not round-trip: %+v", got.Equipment)
	}

	if _, err := repo.GetRoom(context.Background(), "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoomRepositoryNilEquipment(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewRoomRepository(pool)

	seedTestRoom(t, pool, "room-1", "会議室A")

	got, err := repo.GetRoom(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("GetRoom returned error: %v", err)
	}
	if got.Equipment != nil {
		t.Fatalf("expected nil equipment, got %q", *got.Equipment)
	}
}

func TestRoomRepositoryUpdate(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewRoomRepository(pool)
	seedTestRoom(t, pool, "room-1", "会議室A")

	updatedAt := testBase.Add(time.Hour)
	err := repo.UpdateRoom(context.Background(), persistence.Room{
		ID:        "room-1",
		Name:      "大会議室",
		Capacity:  20,
		UpdatedAt: updatedAt,
	})
	if err != nil {
		t.Fatalf("UpdateRoom returned error: %v", err)
	}

	got, err := repo.GetRoom(context.Background(), "room-1")
	if err != nil {
		t.Fatalf("GetRoom returned error: %v", err)
	}
	if got.Name != "大会議室" || got.Capacity != 20 {
		t.Fatalf("update not applied: %+v", got)
	}
	if !got.UpdatedAt.Equal(updatedAt) {
		t.Fatalf("expected updated_at %s, got %s", updatedAt, got.UpdatedAt)
	}

	err = repo.UpdateRoom(context.Background(), persistence.Room{ID: "missing", Name: "x", Capacity: 1, UpdatedAt: updatedAt})
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoomRepositoryListOrdering(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	repo := NewRoomRepository(pool)
	seedTestRoom(t, pool, "room-1", "beta")
	seedTestRoom(t, pool, "room-2", "Alpha")
	seedTestRoom(t, pool, "room-3", "gamma")

	rooms, err := repo.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms returned error: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(rooms))
	}
	if rooms[0].Name != "Alpha" || rooms[1].Name != "beta" || rooms[2].Name != "gamma" {
		t.Fatalf("expected case-insensitive name order, got %+v", rooms)
	}
}

func TestDeleteRoomIsBlockedByBookings(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	seedTestUser(t, pool, "user-1", "tanaka")
	seedTestRoom(t, pool, "room-1", "会議室A")
	rooms := NewRoomRepository(pool)
	bookings := NewBookingRepository(pool)

	insertTestBooking(t, bookings, "b-1", "room-1", "user-1", testBase, testBase.Add(time.Hour), persistence.BookingStatusConfirmed)

	err := rooms.DeleteRoom(context.Background(), "room-1")
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation while bookings exist, got %v", err)
	}

	ok, err := bookings.UpdateBookingStatus(context.Background(), "b-1", persistence.BookingStatusConfirmed, persistence.BookingStatusCancelled, testBase.Add(time.Minute))
	if err != nil || !ok {
		t.Fatalf("failed to cancel booking: ok=%v err=%v", ok, err)
	}

	// Cancelled bookings still reference the room; deletion stays blocked.
	err = rooms.DeleteRoom(context.Background(), "room-1")
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation for retained bookings, got %v", err)
	}

	if err := rooms.DeleteRoom(context.Background(), "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
