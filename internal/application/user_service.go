package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/example/roombook/internal/persistence"
)

const (
	usernameMinLength = 3
	usernameMaxLength = 50
	passwordMinLength = 8
	passwordMaxLength = 128
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

// UserRepository captures the persistence interactions needed by the service.
type UserRepository interface {
	CreateUser(ctx context.Context, credentials UserCredentials) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, id string) error
}

// UserService manages account registration and administration.
type UserService struct {
	users       UserRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for account operations.
func NewUserService(users UserRepository, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, idGenerator, now, nil)
}

// NewUserServiceWithLogger constructs a user service with a specified logger.
func NewUserServiceWithLogger(users UserRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{
		users:       users,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// Register validates the input, hashes the password, and persists a new
// non-admin account. Registration is self-service and unauthenticated.
func (s *UserService) Register(ctx context.Context, input RegisterUserInput) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Register", "username", strings.TrimSpace(input.Username))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user registered")
	}()

	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if verr := validateRegisterInput(input); verr.HasErrors() {
		err = verr
		return
	}

	var hash string
	hash, err = CreatePasswordHash(input.Password, DefaultArgon2idParams)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrStorage, err)
		return
	}

	createdAt := s.now()
	credentials := UserCredentials{
		User: User{
			ID:        s.idGenerator(),
			Username:  input.Username,
			Email:     input.Email,
			IsAdmin:   false,
			CreatedAt: createdAt,
			UpdatedAt: createdAt,
		},
		PasswordHash: hash,
	}

	user, err = s.users.CreateUser(ctx, credentials)
	if err != nil {
		user = User{}
		err = mapUserRepoError(err)
		return
	}
	return
}

// GetUser returns an account by ID. A principal may read its own account;
// administrators may read anyone's.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (User, error) {
	if s == nil || s.users == nil {
		return User{}, ErrNotFound
	}
	if userID == "" {
		userID = principal.UserID
	}
	if userID != principal.UserID && !principal.IsAdmin {
		return User{}, ErrUnauthorized
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return user, nil
}

// ListUsers returns every account ordered by username. Admin only.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) (users []User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if !principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.users == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListUsers", "principal_id", principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list users", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	var raw []User
	raw, err = s.users.ListUsers(ctx)
	if err != nil {
		err = mapUserRepoError(err)
		return
	}

	users = make([]User, len(raw))
	copy(users, raw)
	sort.SliceStable(users, func(i, j int) bool {
		return strings.ToLower(users[i].Username) < strings.ToLower(users[j].Username)
	})
	return
}

// DeleteUser removes an account. Admin only; administrators cannot delete
// themselves.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) (err error) {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteUser",
		"principal_id", principal.UserID,
		"user_id", userID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user deleted")
	}()

	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if userID == "" || userID == principal.UserID {
		return ErrUnauthorized
	}

	if err = s.users.DeleteUser(ctx, userID); err != nil {
		err = mapUserRepoError(err)
		return
	}
	return nil
}

func validateRegisterInput(input RegisterUserInput) *ValidationError {
	verr := &ValidationError{}
	switch {
	case input.Username == "":
		verr.add("username", "ユーザー名は必須です")
	case len(input.Username) < usernameMinLength || len(input.Username) > usernameMaxLength:
		verr.add("username", "ユーザー名は3文字以上50文字以内で入力してください")
	case !usernamePattern.MatchString(input.Username):
		verr.add("username", "ユーザー名は英数字とハイフン、アンダースコアのみ使用できます")
	}
	switch {
	case input.Email == "":
		verr.add("email", "メールアドレスは必須です")
	case !emailPattern.MatchString(input.Email):
		verr.add("email", "メールアドレスの形式が正しくありません")
	}
	switch {
	case input.Password == "":
		verr.add("password", "パスワードは必須です")
	case len(input.Password) < passwordMinLength:
		verr.add("password", "パスワードは8文字以上で入力してください")
	case len(input.Password) > passwordMaxLength:
		verr.add("password", "パスワードは128文字以内で入力してください")
	}
	return verr
}

func mapUserRepoError(err error) error {
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
