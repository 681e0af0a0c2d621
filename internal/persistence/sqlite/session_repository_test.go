package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/roombook/internal/persistence"
)

func insertTestSession(t *testing.T, repo *SessionRepository, id, userID, token string, expiresAt time.Time) {
	t.Helper()
	err := repo.CreateSession(context.Background(), persistence.Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: testBase,
	})
	if err != nil {
		t.Fatalf("failed to insert session %s: %v", id, err)
	}
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	seedTestUser(t, pool, "user-1", "tanaka")
	repo := NewSessionRepository(pool)

	expiresAt := testBase.Add(12 * time.Hour)
	insertTestSession(t, repo, "sess-1", "user-1", "token-1", expiresAt)

	got, err := repo.GetSessionByToken(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("GetSessionByToken returned error: %v", err)
	}
	if got.ID != "sess-1" || got.UserID != "user-1" {
		t.Fatalf("unexpected session: %+v", got)
	}
	if !got.ExpiresAt.Equal(expiresAt) {
		t.Fatalf("expiry did not round-trip: got %s", got.ExpiresAt)
	}
	if got.RevokedAt != nil {
		t.Fatalf("fresh session must not carry a revocation time")
	}

	if _, err := repo.GetSessionByToken(context.Background(), "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionRepositoryRejectsDuplicateToken(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	seedTestUser(t, pool, "user-1", "tanaka")
	repo := NewSessionRepository(pool)

	insertTestSession(t, repo, "sess-1", "user-1", "token-1", testBase.Add(time.Hour))

	err := repo.CreateSession(context.Background(), persistence.Session{
		ID:        "sess-2",
		UserID:    "user-1",
		Token:     "token-1",
		ExpiresAt: testBase.Add(time.Hour),
		CreatedAt: testBase,
	})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for reused token, got %v", err)
	}

	err = repo.CreateSession(context.Background(), persistence.Session{
		ID:        "sess-3",
		UserID:    "user-missing",
		Token:     "token-3",
		ExpiresAt: testBase.Add(time.Hour),
		CreatedAt: testBase,
	})
	if !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation for unknown user, got %v", err)
	}
}

func TestRevokeSession(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	seedTestUser(t, pool, "user-1", "tanaka")
	repo := NewSessionRepository(pool)

	insertTestSession(t, repo, "sess-1", "user-1", "token-1", testBase.Add(time.Hour))

	revokedAt := testBase.Add(time.Minute)
	if err := repo.RevokeSession(context.Background(), "sess-1", revokedAt); err != nil {
		t.Fatalf("RevokeSession returned error: %v", err)
	}

	got, err := repo.GetSessionByToken(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("GetSessionByToken returned error: %v", err)
	}
	if got.RevokedAt == nil || !got.RevokedAt.Equal(revokedAt) {
		t.Fatalf("expected revocation at %s, got %+v", revokedAt, got.RevokedAt)
	}

	// Revoking an already revoked session keeps the original timestamp.
	if err := repo.RevokeSession(context.Background(), "sess-1", revokedAt.Add(time.Hour)); err != nil {
		t.Fatalf("repeat RevokeSession returned error: %v", err)
	}
	got, err = repo.GetSessionByToken(context.Background(), "token-1")
	if err != nil {
		t.Fatalf("GetSessionByToken returned error: %v", err)
	}
	if !got.RevokedAt.Equal(revokedAt) {
		t.Fatalf("revocation time must not change, got %s", got.RevokedAt)
	}

	err = repo.RevokeSession(context.Background(), "missing", revokedAt)
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteExpiredSessions(t *testing.T) {
	t.Parallel()

	pool := newTestPool(t)
	seedTestUser(t, pool, "user-1", "tanaka")
	repo := NewSessionRepository(pool)

	insertTestSession(t, repo, "sess-old", "user-1", "token-old", testBase.Add(-time.Hour))
	insertTestSession(t, repo, "sess-edge", "user-1", "token-edge", testBase)
	insertTestSession(t, repo, "sess-live", "user-1", "token-live", testBase.Add(time.Hour))

	deleted, err := repo.DeleteExpiredSessions(context.Background(), testBase)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions returned error: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted sessions, got %d", deleted)
	}

	if _, err := repo.GetSessionByToken(context.Background(), "token-old"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	if _, err := repo.GetSessionByToken(context.Background(), "token-live"); err != nil {
		t.Fatalf("live session must survive pruning: %v", err)
	}
}
