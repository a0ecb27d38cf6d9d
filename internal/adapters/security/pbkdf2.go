package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// legacyDefaultIterations matches the iteration count the previous system
// used when the hash string omits one.
const legacyDefaultIterations = 260000

// LegacyPBKDF2Verifier checks hashes imported from the previous system, in
// the werkzeug format "pbkdf2:sha256:<iterations>$<salt>$<hexdigest>".
// It only verifies; new hashes are never written in this format, so every
// successful verification is a rehash trigger.
type LegacyPBKDF2Verifier struct{}

func NewLegacyPBKDF2Verifier() *LegacyPBKDF2Verifier {
	return &LegacyPBKDF2Verifier{}
}

func (v *LegacyPBKDF2Verifier) Verify(hash, password string) bool {
	iterations, salt, digest, err := decodeLegacyHash(hash)
	if err != nil {
		return false
	}
	computed := pbkdf2.Key([]byte(password), salt, iterations, len(digest), sha256.New)
	return subtle.ConstantTimeCompare(computed, digest) == 1
}

func decodeLegacyHash(hash string) (int, []byte, []byte, error) {
	parts := strings.SplitN(hash, "$", 3)
	if len(parts) != 3 {
		return 0, nil, nil, errors.New("malformed legacy hash")
	}

	method := strings.Split(parts[0], ":")
	if len(method) < 2 || method[0] != "pbkdf2" || method[1] != "sha256" {
		return 0, nil, nil, errors.New("unsupported legacy method")
	}
	iterations := legacyDefaultIterations
	if len(method) == 3 {
		n, err := strconv.Atoi(method[2])
		if err != nil || n <= 0 || n > 10_000_000 {
			return 0, nil, nil, errors.New("malformed iteration count")
		}
		iterations = n
	}

	if parts[1] == "" {
		return 0, nil, nil, errors.New("missing salt")
	}
	digest, err := hex.DecodeString(parts[2])
	if err != nil || len(digest) < 16 {
		return 0, nil, nil, errors.New("malformed digest")
	}

	return iterations, []byte(parts[1]), digest, nil
}
