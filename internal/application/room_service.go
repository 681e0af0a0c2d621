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
)

const (
	roomNameMaxLength  = 100
	roomCapacityMax    = 1000
	equipmentMaxLength = 500
)

// RoomRepository captures the persistence interactions needed by the service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	UpdateRoom(ctx context.Context, room Room) (Room, error)
	DeleteRoom(ctx context.Context, id string) error
}

// RoomService manages the room catalog. Reads are open to any authenticated
// principal; mutations require the admin role.
type RoomService struct {
	rooms       RoomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService wires dependencies for room catalog operations.
func NewRoomService(rooms RoomRepository, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{
		rooms:       rooms,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates and persists a new room. Admin only.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	input := normalizeRoomInput(params.Input)
	if verr := validateRoomInput(input); verr.HasErrors() {
		err = verr
		return
	}

	createdAt := s.now()
	candidate := Room{
		ID:        s.idGenerator(),
		Name:      input.Name,
		Capacity:  input.Capacity,
		Equipment: input.Equipment,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	room, err = s.rooms.CreateRoom(ctx, candidate)
	if err != nil {
		room = Room{}
		err = mapRoomRepoError(err)
		return
	}
	return
}

// GetRoom returns a single room by ID.
func (s *RoomService) GetRoom(ctx context.Context, id string) (Room, error) {
	if s == nil || s.rooms == nil {
		return Room{}, ErrNotFound
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Room{}, ErrNotFound
	}
	room, err := s.rooms.GetRoom(ctx, id)
	if err != nil {
		return Room{}, mapRoomRepoError(err)
	}
	return room, nil
}

// RoomExists reports whether a room with the given ID exists. It satisfies
// the RoomCatalog dependency of the booking service.
func (s *RoomService) RoomExists(ctx context.Context, id string) (bool, error) {
	_, err := s.GetRoom(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// ListRooms returns every room ordered by name, case-insensitively.
func (s *RoomService) ListRooms(ctx context.Context) (rooms []Room, err error) {
	if s == nil || s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var raw []Room
	raw, err = s.rooms.ListRooms(ctx)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	rooms = make([]Room, len(raw))
	copy(rooms, raw)
	sort.SliceStable(rooms, func(i, j int) bool {
		ni, nj := strings.ToLower(rooms[i].Name), strings.ToLower(rooms[j].Name)
		if ni == nj {
			return rooms[i].ID < rooms[j].ID
		}
		return ni < nj
	})
	return
}

// UpdateRoom validates and applies changes to an existing room. Admin only.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room updated")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	roomID := strings.TrimSpace(params.RoomID)
	if roomID == "" {
		err = ErrNotFound
		return
	}

	input := normalizeRoomInput(params.Input)
	if verr := validateRoomInput(input); verr.HasErrors() {
		err = verr
		return
	}

	var current Room
	current, err = s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	current.Name = input.Name
	current.Capacity = input.Capacity
	current.Equipment = input.Equipment
	current.UpdatedAt = s.now()

	room, err = s.rooms.UpdateRoom(ctx, current)
	if err != nil {
		room = Room{}
		err = mapRoomRepoError(err)
		return
	}
	return
}

// DeleteRoom removes a room from the catalog. Admin only.
func (s *RoomService) DeleteRoom(ctx context.Context, principal Principal, roomID string) (err error) {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteRoom",
		"principal_id", principal.UserID,
		"room_id", roomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "room deleted")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}

	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return ErrNotFound
	}

	if err = s.rooms.DeleteRoom(ctx, roomID); err != nil {
		err = mapRoomRepoError(err)
		return
	}
	return nil
}

func normalizeRoomInput(input RoomInput) RoomInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Equipment = normalizeOptionalString(input.Equipment)
	return input
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func validateRoomInput(input RoomInput) *ValidationError {
	verr := &ValidationError{}
	if input.Name == "" {
		verr.add("name", "会議室名は必須です")
	} else if len([]rune(input.Name)) > roomNameMaxLength {
		verr.add("name", "会議室名は100文字以内で入力してください")
	}
	if input.Capacity <= 0 {
		verr.add("capacity", "収容人数は1以上で入力してください")
	} else if input.Capacity > roomCapacityMax {
		verr.add("capacity", "収容人数は1000以下で入力してください")
	}
	if input.Equipment != nil && len([]rune(*input.Equipment)) > equipmentMaxLength {
		verr.add("equipment", "設備は500文字以内で入力してください")
	}
	return verr
}

func mapRoomRepoError(err error) error {
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
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrConflictingReferences
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
