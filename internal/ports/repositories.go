package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/strataboard/authcore/internal/domain"
)

// FailureRecord is the storage-confirmed outcome of one recorded login failure.
// Attempts reflects the post-increment value as observed by this writer; the
// lock, once set by any writer, is authoritative.
type FailureRecord struct {
	Attempts    int
	LockedUntil *time.Time
}

// PrincipalRepository defines persistence for credential and lockout state.
// RecordLoginFailure must be an atomic increment-and-compare at the storage
// layer: two concurrent failures may each observe a different count, but a
// lock observed by either is never un-set except via ClearLock.
type PrincipalRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.Principal, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Principal, error)
	RecordLoginFailure(ctx context.Context, id uuid.UUID, now time.Time, maxAttempts int, lockFor time.Duration) (FailureRecord, error)
	ClearLock(ctx context.Context, id uuid.UUID, now time.Time) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string, algorithm domain.PasswordAlgorithm, updatedAt time.Time) error
}

// SessionCreateParams captures what the session manager persists on login.
type SessionCreateParams struct {
	PrincipalID   uuid.UUID
	Token         string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	UserAgent     string
	OriginAddress string
}

// SessionRepository manages the DB-backed session lifecycle. Termination is
// a soft transition (is_active=false) so session history remains auditable;
// DeleteExpired is the lazy cleanup run at session creation.
type SessionRepository interface {
	Create(ctx context.Context, params SessionCreateParams) (domain.Session, error)
	GetByToken(ctx context.Context, token string) (domain.Session, error)
	ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]domain.Session, error)
	Touch(ctx context.Context, sessionID uuid.UUID, lastActivityAt, expiresAt time.Time) error
	Terminate(ctx context.Context, sessionID uuid.UUID) error
	TerminateOthers(ctx context.Context, principalID uuid.UUID, keep uuid.UUID) (int64, error)
	TerminateAll(ctx context.Context, principalID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, principalID uuid.UUID, now time.Time) error
}

// AccessLogRepository appends resource-link usage records. Append-only by
// contract: no update or delete operations exist.
type AccessLogRepository interface {
	Insert(ctx context.Context, entry domain.AccessLogEntry) error
}
