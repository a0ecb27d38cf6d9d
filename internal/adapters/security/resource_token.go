package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/strataboard/authcore/internal/domain"
)

// ResourceTokenCodec implements the signed resource-link scheme: an HS256
// envelope of {resource_id, issued_at}, URL-safe by JWT construction, with
// no server-side storage. The token carries no expiry claim: max-age is a
// verification-time policy, so one secret serves links with different grant
// windows.
type ResourceTokenCodec struct {
	secret []byte
}

// NewResourceTokenCodec builds a codec over the server secret.
func NewResourceTokenCodec(secret []byte) (*ResourceTokenCodec, error) {
	if len(secret) < 32 {
		return nil, errors.New("resource token secret must be at least 32 bytes")
	}
	return &ResourceTokenCodec{secret: secret}, nil
}

type resourceClaims struct {
	ResourceID string `json:"resource_id"`
	jwt.RegisteredClaims
}

func (c *ResourceTokenCodec) Issue(resourceID uuid.UUID, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, resourceClaims{
		ResourceID: resourceID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	})
	return token.SignedString(c.secret)
}

// Validate verifies signature integrity first, then the max-age window.
// Every failure mode collapses to ErrTokenInvalid; the caller learns nothing
// about which check rejected the token.
func (c *ResourceTokenCodec) Validate(raw string, now time.Time, maxAge time.Duration) (uuid.UUID, error) {
	parsed, err := jwt.ParseWithClaims(raw, &resourceClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
		}
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return uuid.Nil, domain.ErrTokenInvalid
	}
	claims, ok := parsed.Claims.(*resourceClaims)
	if !ok || !parsed.Valid || claims.IssuedAt == nil {
		return uuid.Nil, domain.ErrTokenInvalid
	}

	if now.Sub(claims.IssuedAt.Time) > maxAge {
		return uuid.Nil, domain.ErrTokenInvalid
	}

	resourceID, err := uuid.Parse(claims.ResourceID)
	if err != nil {
		return uuid.Nil, domain.ErrTokenInvalid
	}
	return resourceID, nil
}
