package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/roombook/internal/persistence"
)

// DefaultSessionTTL bounds session lifetime when no explicit TTL is configured.
const DefaultSessionTTL = 12 * time.Hour

// CredentialStore resolves accounts for authentication.
type CredentialStore interface {
	GetUserCredentials(ctx context.Context, username string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
}

// SessionStore persists issued sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSessionByToken(ctx context.Context, token string) (Session, error)
	RevokeSession(ctx context.Context, id string, revokedAt time.Time) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// AuthService authenticates users and manages their sessions.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionStore
	idGenerator    func() string
	tokenGenerator func() (string, error)
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService wires dependencies for authentication operations.
func NewAuthService(credentials CredentialStore, sessions SessionStore, idGenerator func() string, tokenGenerator func() (string, error), now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, idGenerator, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an auth service with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionStore, idGenerator func() string, tokenGenerator func() (string, error), now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = func() (string, error) { return "", fmt.Errorf("token generator not configured") }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Login verifies the credentials and issues a new session. Every
// authentication failure collapses into ErrInvalidCredentials so the caller
// cannot distinguish an unknown username from a wrong password.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result LoginResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil || s.sessions == nil {
		err = fmt.Errorf("auth stores not configured")
		return
	}

	username := strings.TrimSpace(params.Username)
	logger := s.loggerWith(ctx, "Login", "username", username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "login failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "login succeeded")
	}()

	if username == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	credentials, getErr := s.credentials.GetUserCredentials(ctx, username)
	if getErr != nil {
		if errors.Is(getErr, ErrNotFound) || errors.Is(getErr, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = mapUserRepoError(getErr)
		return
	}

	if verifyErr := VerifyPassword(credentials.PasswordHash, params.Password); verifyErr != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	s.pruneExpiredSessions(ctx, logger, now)

	token, tokenErr := s.tokenGenerator()
	if tokenErr != nil {
		err = fmt.Errorf("%w: %w", ErrStorage, tokenErr)
		return
	}

	session := Session{
		ID:        s.idGenerator(),
		UserID:    credentials.User.ID,
		Token:     token,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}

	persisted, createErr := s.sessions.CreateSession(ctx, session)
	if createErr != nil {
		err = mapUserRepoError(createErr)
		return
	}

	result = LoginResult{User: credentials.User, Session: persisted}
	return
}

// Logout revokes the session identified by the token. Revoking an unknown
// token reports ErrNotFound; revoking twice is a no-op.
func (s *AuthService) Logout(ctx context.Context, token string) (err error) {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("auth stores not configured")
	}

	logger := s.loggerWith(ctx, "Logout")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "logout failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "logout succeeded")
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNotFound
	}

	session, getErr := s.sessions.GetSessionByToken(ctx, token)
	if getErr != nil {
		err = mapUserRepoError(getErr)
		return
	}
	if session.RevokedAt != nil {
		return nil
	}

	if revokeErr := s.sessions.RevokeSession(ctx, session.ID, s.now()); revokeErr != nil {
		err = mapUserRepoError(revokeErr)
		return
	}
	return nil
}

// ValidateSession resolves a session token to the acting principal. Expired
// and revoked sessions are rejected with distinct errors so the transport
// layer can phrase the response.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (Principal, error) {
	if s == nil || s.sessions == nil || s.credentials == nil {
		return Principal{}, ErrInvalidCredentials
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, ErrInvalidCredentials
	}

	session, err := s.sessions.GetSessionByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, mapUserRepoError(err)
	}

	if session.RevokedAt != nil {
		return Principal{}, ErrSessionRevoked
	}
	if !s.now().Before(session.ExpiresAt) {
		return Principal{}, ErrSessionExpired
	}

	user, err := s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound) {
			return Principal{}, ErrInvalidCredentials
		}
		return Principal{}, mapUserRepoError(err)
	}

	return Principal{UserID: user.ID, IsAdmin: user.IsAdmin}, nil
}

// pruneExpiredSessions opportunistically removes stale rows. Failures are
// logged and otherwise ignored; login must not depend on cleanup.
func (s *AuthService) pruneExpiredSessions(ctx context.Context, logger *slog.Logger, now time.Time) {
	deleted, err := s.sessions.DeleteExpiredSessions(ctx, now)
	if err != nil {
		logger.WarnContext(ctx, "failed to prune expired sessions", "error", err)
		return
	}
	if deleted > 0 {
		logger.DebugContext(ctx, "pruned expired sessions", "deleted", deleted)
	}
}
