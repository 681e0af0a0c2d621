package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/roombook/internal/timeslot"
)

type memoryBookingRepository struct {
	mu       sync.Mutex
	bookings map[string]Booking

	insertErr error
	findErr   error
	listErr   error
}

func newMemoryBookingRepository() *memoryBookingRepository {
	return &memoryBookingRepository{bookings: make(map[string]Booking)}
}

func (m *memoryBookingRepository) InsertBooking(_ context.Context, booking Booking) (Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return Booking{}, m.insertErr
	}
	m.bookings[booking.ID] = booking
	return booking, nil
}

func (m *memoryBookingRepository) GetBooking(_ context.Context, id string) (Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return Booking{}, ErrNotFound
	}
	return booking, nil
}

func (m *memoryBookingRepository) FindBookingsForRoom(_ context.Context, roomID string, from, to time.Time) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	window := timeslot.Interval{Start: from, End: to}
	var found []Booking
	for _, booking := range m.bookings {
		if booking.RoomID == roomID && booking.Interval().Overlaps(window) {
			found = append(found, booking)
		}
	}
	return found, nil
}

func (m *memoryBookingRepository) ListBookingsForUser(_ context.Context, userID string) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var found []Booking
	for _, booking := range m.bookings {
		if booking.UserID == userID {
			found = append(found, booking)
		}
	}
	return found, nil
}

func (m *memoryBookingRepository) ListBookings(_ context.Context) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	found := make([]Booking, 0, len(m.bookings))
	for _, booking := range m.bookings {
		found = append(found, booking)
	}
	return found, nil
}

func (m *memoryBookingRepository) UpdateBookingStatus(_ context.Context, id string, expected, next BookingStatus, updatedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	booking, ok := m.bookings[id]
	if !ok {
		return false, ErrNotFound
	}
	if booking.Status != expected {
		return false, nil
	}
	booking.Status = next
	booking.UpdatedAt = updatedAt
	m.bookings[id] = booking
	return true, nil
}

func (m *memoryBookingRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

type stubRoomCatalog struct {
	existing map[string]bool
	err      error
}

func (s *stubRoomCatalog) RoomExists(_ context.Context, id string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.existing[id], nil
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	counter := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter)
	}
}

var bookingTestNow = time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

func newTestBookingService(repo *memoryBookingRepository, rooms RoomCatalog) *BookingService {
	return NewBookingService(repo, rooms, timeslot.DefaultConfig(), time.UTC, sequentialIDs("booking"), func() time.Time { return bookingTestNow })
}

func hourSlot(hour int) (time.Time, time.Time) {
	start := time.Date(2026, time.March, 2, hour, 0, 0, 0, time.UTC)
	return start, start.Add(time.Hour)
}

func TestCreateBookingPersistsConfirmedBooking(t *testing.T) {
	t.Parallel()

	repo := newMemoryBookingRepository()
	service := newTestBookingService(repo, &stubRoomCatalog{existing: map[string]bool{"room-1": true}})

	start, end := hourSlot(10)
	booking, err := service.CreateBooking(context.Background(), CreateBookingParams{
		Principal: Principal{UserID: "user-1"},
		Input:     BookingInput{RoomID: "room-1", Start: start, End: end},
	})
	if err != nil {
		t.Fatalf("CreateBooking returned error: %v", err)
	}
	if booking.ID == "" {
		t.Fatalf("expected generated booking ID")
	}
	if booking.Status != BookingStatusConfirmed {
		t.Fatalf("expected confirmed status, got %q", booking.Status)
	}
	if booking.UserID != "user-1" || booking.RoomID != "room-1" {
		t.Fatalf("unexpected ownership: %+v", booking)
	}
	if repo.count() != 1 {
		t.Fatalf("expected 1 persisted booking, got %d", repo.count())
	}
}

func TestCreateBookingRejectsInvalidIntervals(t *testing.T) {
	t.Parallel()

	start, end := hourSlot(10)

	tests := []struct {
		name  string
		input BookingInput
		want  error
	}{
		{
			name:  "zero length",
			input: BookingInput{RoomID: "room-1", Start: start, End: start},
			want:  ErrInvalidInterval,
		},
		{
			name:  "inverted",
			input: BookingInput{RoomID: "room-1", Start: end, End: start},
			want:  ErrInvalidInterval,
		},
		{
			name:  "starts in the past",
			input: BookingInput{RoomID: "room-1", Start: bookingTestNow.Add(-time.Hour), End: bookingTestNow},
			want:  ErrPastBooking,
		},
		{
			name:  "unknown room",
			input: BookingInput{RoomID: "room-missing", Start: start, End: end},
			want:  ErrNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := newMemoryBookingRepository()
			service := newTestBookingService(repo, &stubRoomCatalog{existing: map[string]bool{"room-1": true}})

			_, err := service.CreateBooking(context.Background(), CreateBookingParams{
				Principal: Principal{UserID: "user-1"},
				Input:     tc.input,
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if repo.count() != 0 {
				t.Fatalf("rejected booking must not be persisted")
			}
		})
	}
}

func TestCreateBookingRejectsOverlapAllowsAbutment(t *testing.T) {
	t.Parallel()

	repo := newMemoryBookingRepository()
	service := newTestBookingService(repo, &stubRoomCatalog{existing: map[string]bool{"room-1": true}})
	principal := Principal{UserID: "user-1"}

	nineStart, nineEnd := hourSlot(9)
	if _, err := service.CreateBooking(context.Background(), CreateBookingParams{
		Principal: principal,
		Input:     BookingInput{RoomID: "room-1", Start: nineStart, End: nineEnd},
	}); err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}

	// Overlapping the existing [09:00,10:00) booking must conflict.
	_, err := service.CreateBooking(context.Background(), CreateBookingParams{
		Principal: Principal{UserID: "user-2"},
		Input:     BookingInput{RoomID: "room-1", Start: nineStart.Add(30 * time.Minute), End: nineEnd.Add(30 * time.Minute)},
	})
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("expected ErrSlotConflict, got %v", err)
	}

	// A booking that starts exactly at the existing end does not conflict.
	tenStart, tenEnd := hourSlot(10)
	if _, err := service.CreateBooking(context.Background(), CreateBookingParams{
		Principal: Principal{UserID: "user-2"},
		Input:     BookingInput{RoomID: "room-1", Start: tenStart, End: tenEnd},
	}); err != nil {
		t.Fatalf("abutting booking should succeed: %v", err)
	}

	// Same interval in a different room never conflicts.
	otherService := newTestBookingService(repo, &stubRoomCatalog{existing: map[string]bool{"room-1": true, "room-2": true}})
	if _, err := otherService.CreateBooking(context.Background(), CreateBookingParams{
		Principal: principal,
		Input:     BookingInput{RoomID: "room-2", Start: nineStart, End: nineEnd},
	}); err != nil {
		t.Fatalf("booking in another room should succeed: %v", err)
	}
}

func TestCreateBookingIgnoresCancelledBookings(t *testing.T) {
	t.Parallel()

	repo := newMemoryBookingRepository()
	start, end := hourSlot(11)
	repo.bookings["cancelled-1"] = Booking{
		ID:     "cancelled-1",
		RoomID: "room-1",
		UserID: "user-2",
		Start:  start,
		End:    end,
		Status: BookingStatusCancelled,
	}

	service := newTestBookingService(repo, &stubRoomCatalog{existing: map[string]bool{"room-1": true}})
	if _, err := service.CreateBooking(context.Background(), CreateBookingParams{
		Principal: Principal{UserID: "user-1"},
		Input:     BookingInput{RoomID: "room-1", Start: start, End: end},
	}); err != nil {
		t.Fatalf("cancelled booking must not block the slot: %v", err)
	}
}

func TestCreateBookingConcurrentOverlapAdmitsExactlyOne(t *testing.T) {
	t.Parallel()

	repo := newMemoryBookingRepository()
	service := newTestBookingService(repo, &stubRoomCatalog{existing: map[string]bool{"room-1": true}})

	start, end := hourSlot(14)
	const attempts = 16

	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := service.CreateBooking(context.Background(), CreateBookingParams{
				Principal: Principal{UserID: fmt.Sprintf("user-%d", i)},
				Input:     BookingInput{RoomID: "room-1", Start: start, End: end},
			})
			results[i] = err
		}(i)
	}
	wg.Wait()

	success := 0
	conflicts := 0
	for _, err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrSlotConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful booking, got %d", success)
	}
	if conflicts != attempts-1 {
		t.Fatalf("expected %d conflicts, got %d", attempts-1, conflicts)
	}
	if repo.count() != 1 {
		t.Fatalf("expected 1 persisted booking, got %d", repo.count())
	}
}

func TestCreateBookingWrapsStorageFailures(t *testing.T) {
	t.Parallel()

	repo := newMemoryBookingRepository()
	repo.findErr = errors.New("disk is on fire")
	service := newTestBookingService(repo, &stubRoomCatalog{existing: map[string]bool{"room-1": true}})

	start, end := hourSlot(10)
	_, err := service.CreateBooking(context.Background(), CreateBookingParams{
		Principal: Principal{UserID: "user-1"},
		Input:     BookingInput{RoomID: "room-1", Start: start, End: end},
	})
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	if !errors.Is(err, repo.findErr) {
		t.Fatalf("wrapped error should retain the cause, got %v", err)
	}
}

func TestCancelBookingTransitions(t *testing.T) {
	t.Parallel()

	future := bookingTestNow.Add(2 * time.Hour)

	tests := []struct {
		name      string
		booking   Booking
		principal Principal
		want      error
	}{
		{
			name:      "owner cancels future booking",
			booking:   Booking{ID: "b-1", RoomID: "room-1", UserID: "user-1", Start: future, End: future.Add(time.Hour), Status: BookingStatusConfirmed},
			principal: Principal{UserID: "user-1"},
			want:      nil,
		},
		{
			name:      "admin cancels another user's booking",
			booking:   Booking{ID: "b-1", RoomID: "room-1", UserID: "user-2", Start: future, End: future.Add(time.Hour), Status: BookingStatusConfirmed},
			principal: Principal{UserID: "admin-1", IsAdmin: true},
			want:      nil,
		},
		{
			name:      "non-owner is rejected",
			booking:   Booking{ID: "b-1", RoomID: "room-1", UserID: "user-2", Start: future, End: future.Add(time.Hour), Status: BookingStatusConfirmed},
			principal: Principal{UserID: "user-1"},
			want:      ErrUnauthorized,
		},
		{
			name:      "already cancelled",
			booking:   Booking{ID: "b-1", RoomID: "room-1", UserID: "user-1", Start: future, End: future.Add(time.Hour), Status: BookingStatusCancelled},
			principal: Principal{UserID: "user-1"},
			want:      ErrAlreadyCancelled,
		},
		{
			name:      "start already passed",
			booking:   Booking{ID: "b-1", RoomID: "room-1", UserID: "user-1", Start: bookingTestNow.Add(-time.Hour), End: bookingTestNow, Status: BookingStatusConfirmed},
			principal: Principal{UserID: "user-1"},
			want:      ErrAlreadyPassed,
		},
		{
			name:      "start equals now",
			booking:   Booking{ID: "b-1", RoomID: "room-1", UserID: "user-1", Start: bookingTestNow, End: bookingTestNow.Add(time.Hour), Status: BookingStatusConfirmed},
			principal: Principal{UserID: "user-1"},
			want:      ErrAlreadyPassed,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			repo := newMemoryBookingRepository()
			repo.bookings[tc.booking.ID] = tc.booking
			service := newTestBookingService(repo, nil)

			err := service.CancelBooking(context.Background(), CancelBookingParams{Principal: tc.principal, BookingID: tc.booking.ID})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}

			stored := repo.bookings[tc.booking.ID]
			if tc.want == nil {
				if stored.Status != BookingStatusCancelled {
					t.Fatalf("expected cancelled status, got %q", stored.Status)
				}
			} else if stored.Status != tc.booking.Status {
				t.Fatalf("status must be unchanged on rejection, got %q", stored.Status)
			}
		})
	}
}

func TestAdminCancelBookingRequiresAdmin(t *testing.T) {
	t.Parallel()

	future := bookingTestNow.Add(2 * time.Hour)
	booking := Booking{ID: "b-1", RoomID: "room-1", UserID: "user-2", Start: future, End: future.Add(time.Hour), Status: BookingStatusConfirmed}

	repo := newMemoryBookingRepository()
	repo.bookings[booking.ID] = booking
	service := newTestBookingService(repo, nil)

	err := service.AdminCancelBooking(context.Background(), Principal{UserID: "user-1"}, booking.ID)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin, got %v", err)
	}
	if repo.bookings[booking.ID].Status != BookingStatusConfirmed {
		t.Fatalf("booking must be unchanged on rejection")
	}

	if err := service.AdminCancelBooking(context.Background(), Principal{UserID: "admin-1", IsAdmin: true}, booking.ID); err != nil {
		t.Fatalf("admin cancellation returned error: %v", err)
	}
	if repo.bookings[booking.ID].Status != BookingStatusCancelled {
		t.Fatalf("expected cancelled status after admin cancellation")
	}
}

func TestCancelBookingUnknownID(t *testing.T) {
	t.Parallel()

	service := newTestBookingService(newMemoryBookingRepository(), nil)
	err := service.CancelBooking(context.Background(), CancelBookingParams{Principal: Principal{UserID: "user-1"}, BookingID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCancelBookingConcurrentDoubleCancel(t *testing.T) {
	t.Parallel()

	repo := newMemoryBookingRepository()
	future := bookingTestNow.Add(2 * time.Hour)
	repo.bookings["b-1"] = Booking{
		ID:     "b-1",
		RoomID: "room-1",
		UserID: "user-1",
		Start:  future,
		End:    future.Add(time.Hour),
		Status: BookingStatusConfirmed,
	}
	service := newTestBookingService(repo, nil)

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = service.CancelBooking(context.Background(), CancelBookingParams{
				Principal: Principal{UserID: "user-1"},
				BookingID: "b-1",
			})
		}(i)
	}
	wg.Wait()

	success := 0
	alreadyCancelled := 0
	for _, err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrAlreadyCancelled):
			alreadyCancelled++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful cancel, got %d", success)
	}
	if alreadyCancelled != attempts-1 {
		t.Fatalf("expected %d ErrAlreadyCancelled, got %d", attempts-1, alreadyCancelled)
	}
}

func TestListBookingsForUserOrdering(t *testing.T) {
	t.Parallel()

	repo := newMemoryBookingRepository()
	early, _ := hourSlot(9)
	late, _ := hourSlot(15)
	repo.bookings["b-early"] = Booking{ID: "b-early", RoomID: "room-1", UserID: "user-1", Start: early, End: early.Add(time.Hour), Status: BookingStatusConfirmed}
	repo.bookings["b-late"] = Booking{ID: "b-late", RoomID: "room-1", UserID: "user-1", Start: late, End: late.Add(time.Hour), Status: BookingStatusConfirmed}
	repo.bookings["b-other"] = Booking{ID: "b-other", RoomID: "room-1", UserID: "user-2", Start: late, End: late.Add(time.Hour), Status: BookingStatusConfirmed}

	service := newTestBookingService(repo, nil)
	bookings, err := service.ListBookingsForUser(context.Background(), Principal{UserID: "user-1"}, "")
	if err != nil {
		t.Fatalf("ListBookingsForUser returned error: %v", err)
	}
	if len(bookings) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(bookings))
	}
	if bookings[0].ID != "b-late" || bookings[1].ID != "b-early" {
		t.Fatalf("expected newest first, got %q then %q", bookings[0].ID, bookings[1].ID)
	}
}

func TestListBookingsForUserAuthorization(t *testing.T) {
	t.Parallel()

	repo := newMemoryBookingRepository()
	service := newTestBookingService(repo, nil)

	if _, err := service.ListBookingsForUser(context.Background(), Principal{UserID: "user-1"}, "user-2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("non-admin listing another user should fail, got %v", err)
	}
	if _, err := service.ListBookingsForUser(context.Background(), Principal{UserID: "admin-1", IsAdmin: true}, "user-2"); err != nil {
		t.Fatalf("admin listing another user should succeed, got %v", err)
	}
}

func TestListAllBookingsRequiresAdmin(t *testing.T) {
	t.Parallel()

	service := newTestBookingService(newMemoryBookingRepository(), nil)
	if _, err := service.ListAllBookings(context.Background(), Principal{UserID: "user-1"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := service.ListAllBookings(context.Background(), Principal{UserID: "admin-1", IsAdmin: true}); err != nil {
		t.Fatalf("admin listing should succeed, got %v", err)
	}
}

func TestDaySlotsAnnotatesOccupancy(t *testing.T) {
	t.Parallel()

	repo := newMemoryBookingRepository()
	tenStart, tenEnd := hourSlot(10)
	repo.bookings["b-1"] = Booking{ID: "b-1", RoomID: "room-1", UserID: "user-1", Start: tenStart, End: tenEnd, Status: BookingStatusConfirmed}
	twelveStart, twelveEnd := hourSlot(12)
	repo.bookings["b-2"] = Booking{ID: "b-2", RoomID: "room-1", UserID: "user-2", Start: twelveStart, End: twelveEnd, Status: BookingStatusCancelled}

	service := newTestBookingService(repo, &stubRoomCatalog{existing: map[string]bool{"room-1": true}})
	slots, err := service.DaySlots(context.Background(), DaySlotsParams{
		Principal: Principal{UserID: "user-1"},
		RoomID:    "room-1",
		Date:      time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("DaySlots returned error: %v", err)
	}
	if len(slots) != 9 {
		t.Fatalf("expected 9 hourly slots, got %d", len(slots))
	}
	for _, slot := range slots {
		occupied := slot.Start.Equal(tenStart)
		if slot.Occupied != occupied {
			t.Fatalf("slot %s occupancy = %v, want %v", slot.Start, slot.Occupied, occupied)
		}
	}
}

func TestDaySlotsNonUTCLocale(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}

	repo := newMemoryBookingRepository()
	service := NewBookingService(repo, &stubRoomCatalog{existing: map[string]bool{"room-1": true}}, timeslot.DefaultConfig(), loc, sequentialIDs("booking"), func() time.Time { return bookingTestNow })

	// Midnight in the service's locale, the way the transport parses dates.
	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, loc)
	slots, err := service.DaySlots(context.Background(), DaySlotsParams{
		Principal: Principal{UserID: "user-1"},
		RoomID:    "room-1",
		Date:      date,
	})
	if err != nil {
		t.Fatalf("DaySlots returned error: %v", err)
	}
	if len(slots) == 0 {
		t.Fatalf("expected slots for the requested day")
	}

	first := slots[0].Start.In(loc)
	if first.Year() != 2026 || first.Month() != time.March || first.Day() != 2 || first.Hour() != 9 {
		t.Fatalf("first slot must start 09:00 on the requested calendar day, got %v", first)
	}
}

func TestDaySlotsCacheInvalidatedByCreate(t *testing.T) {
	t.Parallel()

	repo := newMemoryBookingRepository()
	service := newTestBookingService(repo, &stubRoomCatalog{existing: map[string]bool{"room-1": true}})
	date := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	params := DaySlotsParams{Principal: Principal{UserID: "user-1"}, RoomID: "room-1", Date: date}

	before, err := service.DaySlots(context.Background(), params)
	if err != nil {
		t.Fatalf("DaySlots returned error: %v", err)
	}
	for _, slot := range before {
		if slot.Occupied {
			t.Fatalf("expected all slots free before booking")
		}
	}

	start, end := hourSlot(13)
	if _, err := service.CreateBooking(context.Background(), CreateBookingParams{
		Principal: Principal{UserID: "user-1"},
		Input:     BookingInput{RoomID: "room-1", Start: start, End: end},
	}); err != nil {
		t.Fatalf("CreateBooking returned error: %v", err)
	}

	after, err := service.DaySlots(context.Background(), params)
	if err != nil {
		t.Fatalf("DaySlots returned error: %v", err)
	}
	occupied := 0
	for _, slot := range after {
		if slot.Occupied {
			occupied++
			if !slot.Start.Equal(start) {
				t.Fatalf("unexpected occupied slot at %s", slot.Start)
			}
		}
	}
	if occupied != 1 {
		t.Fatalf("expected 1 occupied slot after booking, got %d", occupied)
	}
}

func TestDaySlotsUnknownRoom(t *testing.T) {
	t.Parallel()

	service := newTestBookingService(newMemoryBookingRepository(), &stubRoomCatalog{})
	_, err := service.DaySlots(context.Background(), DaySlotsParams{
		Principal: Principal{UserID: "user-1"},
		RoomID:    "room-missing",
		Date:      time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
