package ports

import (
	"time"

	"github.com/google/uuid"
	"github.com/strataboard/authcore/internal/domain"
)

// PasswordHasher verifies and produces credential hashes across algorithm
// generations. Verify must fail closed: malformed or foreign-format hashes
// return false, never an error that crosses the authorization boundary.
type PasswordHasher interface {
	Hash(password string) (string, domain.PasswordAlgorithm, error)
	Verify(hash string, algorithm domain.PasswordAlgorithm, password string) bool
	NeedsRehash(hash string, algorithm domain.PasswordAlgorithm) bool
}

// ResourceTokenCodec issues and validates the signed, time-limited tokens that
// grant anonymous access to one resource. Stateless by contract: no storage,
// no side effects; validity is signature plus max-age at verification time.
type ResourceTokenCodec interface {
	Issue(resourceID uuid.UUID, now time.Time) (string, error)
	Validate(token string, now time.Time, maxAge time.Duration) (uuid.UUID, error)
}
