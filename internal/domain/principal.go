package domain

import (
	"time"

	"github.com/google/uuid"
)

// PasswordAlgorithm tags the scheme a stored credential hash was produced with.
// The tag is persisted next to the hash so older hashes stay verifiable while
// new ones move to the preferred algorithm.
type PasswordAlgorithm string

const (
	// AlgorithmArgon2id is the preferred algorithm for new and migrated hashes.
	AlgorithmArgon2id PasswordAlgorithm = "argon2id"
	// AlgorithmLegacyPBKDF2 covers hashes imported from the previous system
	// (werkzeug-style salted pbkdf2). Verifiable indefinitely, never written anew.
	AlgorithmLegacyPBKDF2 PasswordAlgorithm = "pbkdf2"
)

// Principal is the authenticating identity aggregate.
// It carries only credential and lockout state so session flows stay service-owned.
type Principal struct {
	ID                  uuid.UUID
	Email               string
	PasswordHash        string
	PasswordAlgorithm   PasswordAlgorithm
	FailedLoginAttempts int
	LastFailedLogin     *time.Time
	LockedUntil         *time.Time
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Session is one authenticated device/browser bound to a principal.
// The opaque token is looked up, never decoded; all timing state lives here
// so the routing layer's cookie is merely a pointer to this record.
type Session struct {
	ID             uuid.UUID
	PrincipalID    uuid.UUID
	Token          string
	CreatedAt      time.Time
	LastActivityAt time.Time
	ExpiresAt      time.Time
	IsActive       bool
	UserAgent      string
	OriginAddress  string
}

// Usable reports whether the session may still authorize requests at now,
// given the idle ceiling. Absolute expiry is carried by ExpiresAt itself.
func (s Session) Usable(now time.Time, idleTimeout time.Duration) bool {
	if !s.IsActive {
		return false
	}
	if !now.Before(s.ExpiresAt) {
		return false
	}
	return now.Sub(s.LastActivityAt) < idleTimeout
}

// AccessLogEntry records one use of a resource link token.
// Entries are append-only; the raw token is never stored, only its digest.
type AccessLogEntry struct {
	ID            int64
	ResourceID    uuid.UUID
	TokenDigest   string
	AccessedAt    time.Time
	OriginAddress string
	UserAgent     string
}
