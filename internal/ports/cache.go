package ports

import (
	"context"
	"time"
)

// SessionRevocationStore keeps termination markers with session-aligned TTL.
// Markers are keyed by token digest so a check can veto a presented token
// before any DB read; the store is never the source of truth.
type SessionRevocationStore interface {
	MarkTerminated(ctx context.Context, tokenDigest string, expiresAt time.Time) error
	IsTerminated(ctx context.Context, tokenDigest string) (bool, error)
}

// LoginThrottle is a fixed-window counter keyed by origin address. It guards
// the hashing cost, not the account: per-account lockout lives on the
// principal row.
type LoginThrottle interface {
	Allow(ctx context.Context, key string, threshold int, window time.Duration) (bool, error)
}
