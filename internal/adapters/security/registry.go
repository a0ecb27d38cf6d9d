package security

import (
	"github.com/strataboard/authcore/internal/domain"
)

// HasherRegistry dispatches on the stored algorithm tag to the matching
// strategy. Two implementations today: Argon2id (preferred, read/write) and
// legacy pbkdf2 (read-only). Unknown tags and malformed hashes fail closed.
type HasherRegistry struct {
	argon2 *Argon2Hasher
	legacy *LegacyPBKDF2Verifier
}

// NewHasherRegistry builds the registry with the given preferred-algorithm
// parameters.
func NewHasherRegistry(params Argon2Params) *HasherRegistry {
	return &HasherRegistry{
		argon2: NewArgon2Hasher(params),
		legacy: NewLegacyPBKDF2Verifier(),
	}
}

// Hash always produces a hash with the preferred algorithm; migration is
// one-way, so nothing ever writes the legacy format.
func (r *HasherRegistry) Hash(password string) (string, domain.PasswordAlgorithm, error) {
	hash, err := r.argon2.Hash(password)
	if err != nil {
		return "", "", err
	}
	return hash, domain.AlgorithmArgon2id, nil
}

// Verify checks password against hash under the tagged algorithm. A tag the
// registry does not know yields false, the same as a wrong password.
func (r *HasherRegistry) Verify(hash string, algorithm domain.PasswordAlgorithm, password string) bool {
	switch algorithm {
	case domain.AlgorithmArgon2id:
		return r.argon2.Verify(hash, password)
	case domain.AlgorithmLegacyPBKDF2:
		return r.legacy.Verify(hash, password)
	default:
		return false
	}
}

// NeedsRehash reports whether a successfully verified credential should be
// re-hashed with the preferred algorithm: always for legacy, and for argon2id
// hashes produced with weaker-than-current parameters.
func (r *HasherRegistry) NeedsRehash(hash string, algorithm domain.PasswordAlgorithm) bool {
	switch algorithm {
	case domain.AlgorithmArgon2id:
		return r.argon2.NeedsRehash(hash)
	default:
		return true
	}
}
