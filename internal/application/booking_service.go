package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/example/roombook/internal/persistence"
	"github.com/example/roombook/internal/timeslot"
)

// BookingRepository captures the persistence interactions needed by the service.
type BookingRepository interface {
	InsertBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	FindBookingsForRoom(ctx context.Context, roomID string, from, to time.Time) ([]Booking, error)
	ListBookingsForUser(ctx context.Context, userID string) ([]Booking, error)
	ListBookings(ctx context.Context) ([]Booking, error)
	UpdateBookingStatus(ctx context.Context, id string, expected, next BookingStatus, updatedAt time.Time) (bool, error)
}

// RoomCatalog exposes room lookup operations.
type RoomCatalog interface {
	RoomExists(ctx context.Context, id string) (bool, error)
}

// BookingService orchestrates validation, conflict detection, and persistence
// for reservations. The validate-then-insert sequence of CreateBooking is
// serialized per room, so concurrent requests for overlapping intervals in
// the same room resolve to a single confirmed booking.
type BookingService struct {
	bookings    BookingRepository
	rooms       RoomCatalog
	slots       timeslot.Config
	location    *time.Location
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	locks       *roomLocks
	dayCache    *slotCache
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(bookings BookingRepository, rooms RoomCatalog, slots timeslot.Config, location *time.Location, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(bookings, rooms, slots, location, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(bookings BookingRepository, rooms RoomCatalog, slots timeslot.Config, location *time.Location, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	return &BookingService{
		bookings:    bookings,
		rooms:       rooms,
		slots:       slots,
		location:    location,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		locks:       newRoomLocks(),
		dayCache:    newSlotCache(30*time.Second, 256, now),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// CreateBooking validates the requested interval and persists a new confirmed
// booking when the room is free. Validation rejections are returned as typed
// errors before any write; the availability check and the insert run under
// the room's lock so no two overlapping bookings can both commit.
func (s *BookingService) CreateBooking(ctx context.Context, params CreateBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	input := params.Input
	roomID := strings.TrimSpace(input.RoomID)

	logger := s.loggerWith(ctx, "CreateBooking",
		"principal_id", params.Principal.UserID,
		"room_id", roomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "booking created")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	if roomID == "" {
		err = ErrNotFound
		return
	}

	candidate := timeslot.Interval{Start: input.Start, End: input.End}
	if !candidate.IsValid() {
		err = ErrInvalidInterval
		return
	}
	if candidate.Start.Before(s.now()) {
		err = ErrPastBooking
		return
	}

	if err = s.ensureRoomExists(ctx, roomID); err != nil {
		return
	}

	// Serialize validate-then-insert per room. Two concurrent requests for
	// overlapping intervals must not both observe an empty conflict set.
	unlock := s.locks.Lock(roomID)
	defer unlock()

	var existing []Booking
	existing, err = s.bookings.FindBookingsForRoom(ctx, roomID, candidate.Start, candidate.End)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	if conflictsWith(candidate, existing) {
		err = ErrSlotConflict
		return
	}

	createdAt := s.now()
	booking = Booking{
		ID:        s.idGenerator(),
		RoomID:    roomID,
		UserID:    params.Principal.UserID,
		Start:     candidate.Start,
		End:       candidate.End,
		Status:    BookingStatusConfirmed,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	var persisted Booking
	persisted, err = s.bookings.InsertBooking(ctx, booking)
	if err != nil {
		booking = Booking{}
		err = mapBookingRepoError(err)
		return
	}

	booking = persisted
	s.dayCache.InvalidateRoom(roomID)
	return
}

// CancelBooking transitions a confirmed future booking to cancelled. The
// caller must own the booking unless it carries the admin role. The status
// transition is conditional, so of two concurrent cancels exactly one
// succeeds and the other observes ErrAlreadyCancelled.
func (s *BookingService) CancelBooking(ctx context.Context, params CancelBookingParams) (err error) {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}

	logger := s.loggerWith(ctx, "CancelBooking",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	bookingID := strings.TrimSpace(params.BookingID)
	if bookingID == "" {
		return ErrNotFound
	}

	booking, getErr := s.bookings.GetBooking(ctx, bookingID)
	if getErr != nil {
		err = mapBookingRepoError(getErr)
		return
	}

	if booking.UserID != params.Principal.UserID && !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if booking.Status != BookingStatusConfirmed {
		err = ErrAlreadyCancelled
		return
	}
	if !booking.Start.After(s.now()) {
		err = ErrAlreadyPassed
		return
	}

	ok, updateErr := s.bookings.UpdateBookingStatus(ctx, bookingID, BookingStatusConfirmed, BookingStatusCancelled, s.now())
	if updateErr != nil {
		err = mapBookingRepoError(updateErr)
		return
	}
	if !ok {
		// A concurrent cancel won the conditional transition.
		err = ErrAlreadyCancelled
		return
	}

	s.dayCache.InvalidateRoom(booking.RoomID)
	return nil
}

// AdminCancelBooking cancels any booking on behalf of an administrator.
// The temporal rules match CancelBooking; only the ownership check differs.
func (s *BookingService) AdminCancelBooking(ctx context.Context, principal Principal, bookingID string) error {
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	return s.CancelBooking(ctx, CancelBookingParams{Principal: principal, BookingID: bookingID})
}

// ListBookingsForUser returns the user's bookings ordered by start time
// descending. A principal may list its own bookings; administrators may
// list anyone's.
func (s *BookingService) ListBookingsForUser(ctx context.Context, principal Principal, userID string) (bookings []Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		return nil, nil
	}

	if userID == "" {
		userID = principal.UserID
	}

	logger := s.loggerWith(ctx, "ListBookingsForUser",
		"principal_id", principal.UserID,
		"user_id", userID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(bookings)).InfoContext(ctx, "bookings listed")
	}()

	if userID != principal.UserID && !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	var raw []Booking
	raw, err = s.bookings.ListBookingsForUser(ctx, userID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	bookings = sortBookingsNewestFirst(raw)
	return
}

// ListAllBookings returns every booking for administrators, newest first.
func (s *BookingService) ListAllBookings(ctx context.Context, principal Principal) (bookings []Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.bookings == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListAllBookings",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list all bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(bookings)).InfoContext(ctx, "all bookings listed")
	}()

	var raw []Booking
	raw, err = s.bookings.ListBookings(ctx)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	bookings = sortBookingsNewestFirst(raw)
	return
}

// DaySlots returns the canonical slots of the room-day annotated with
// occupancy. The result is read-only and composed from the slot generator
// and the availability checker; recently computed days are served from a
// short-lived cache invalidated by mutations.
func (s *BookingService) DaySlots(ctx context.Context, params DaySlotsParams) (slots []timeslot.Slot, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	roomID := strings.TrimSpace(params.RoomID)
	logger := s.loggerWith(ctx, "DaySlots",
		"principal_id", params.Principal.UserID,
		"room_id", roomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute day slots", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if roomID == "" {
		err = ErrNotFound
		return
	}

	if err = s.ensureRoomExists(ctx, roomID); err != nil {
		return
	}

	key := slotCacheKey(roomID, params.Date, s.location)
	if cached, ok := s.dayCache.Get(key); ok {
		slots = cached
		return
	}

	var generated []timeslot.Slot
	generated, err = s.slots.SlotsForDay(params.Date, s.location)
	if err != nil {
		return
	}
	if len(generated) == 0 {
		return nil, nil
	}

	window := timeslot.Interval{Start: generated[0].Start, End: generated[len(generated)-1].End}

	var existing []Booking
	if s.bookings != nil {
		existing, err = s.bookings.FindBookingsForRoom(ctx, roomID, window.Start, window.End)
		if err != nil {
			err = mapBookingRepoError(err)
			return
		}
	}

	slots = annotateSlots(generated, existing)
	s.dayCache.Store(key, roomID, slots)
	return
}

func (s *BookingService) ensureRoomExists(ctx context.Context, roomID string) error {
	if s.rooms == nil {
		return nil
	}
	exists, err := s.rooms.RoomExists(ctx, roomID)
	if err != nil {
		return mapBookingRepoError(err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func sortBookingsNewestFirst(bookings []Booking) []Booking {
	ordered := make([]Booking, len(bookings))
	copy(ordered, bookings)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Start.Equal(ordered[j].Start) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Start.After(ordered[j].Start)
	})
	return ordered
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return ErrInvalidInterval
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
