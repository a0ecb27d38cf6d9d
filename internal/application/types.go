package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/strataboard/authcore/internal/domain"
)

type Config struct {
	// SingleSession evicts all other active sessions on successful login.
	SingleSession bool
	// SessionTTL is the absolute session lifetime measured from creation.
	SessionTTL time.Duration
	// IdleTimeout invalidates a session whose last activity is older than this.
	IdleTimeout time.Duration
	// ExtendWindow and ExtendBy drive the sliding expiry: a session checked
	// within ExtendWindow of its expiry is pushed out by ExtendBy, capped at
	// CreatedAt+SessionTTL.
	ExtendWindow time.Duration
	ExtendBy     time.Duration
	// ResourceTokenMaxAge bounds how long an issued resource link stays valid.
	ResourceTokenMaxAge time.Duration
	// ThrottleThreshold/ThrottleWindow rate-limit login attempts per origin.
	ThrottleThreshold int
	ThrottleWindow    time.Duration
}

func (c Config) withDefaults() Config {
	if c.SessionTTL <= 0 {
		c.SessionTTL = 24 * time.Hour
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Minute
	}
	if c.ExtendWindow <= 0 {
		c.ExtendWindow = 10 * time.Minute
	}
	if c.ExtendBy <= 0 {
		c.ExtendBy = 30 * time.Minute
	}
	if c.ResourceTokenMaxAge <= 0 {
		c.ResourceTokenMaxAge = 24 * time.Hour
	}
	if c.ThrottleThreshold <= 0 {
		c.ThrottleThreshold = 60
	}
	if c.ThrottleWindow <= 0 {
		c.ThrottleWindow = time.Minute
	}
	return c
}

// LoginOutcome classifies how a login attempt resolved. Expected outcomes are
// values, not errors: the transport layer maps them to statuses, and only
// infrastructure failures travel the error return.
type LoginOutcome string

const (
	LoginSuccess            LoginOutcome = "success"
	LoginInvalidCredentials LoginOutcome = "invalid_credentials"
	LoginLocked             LoginOutcome = "locked"
	LoginInactive           LoginOutcome = "inactive"
)

type LoginParams struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	UserAgent     string `json:"-"`
	OriginAddress string `json:"-"`
}

type LoginResult struct {
	Outcome LoginOutcome

	// RemainingAttempts is an informational hint on invalid_credentials for a
	// known principal; -1 means no hint is available.
	RemainingAttempts int
	// RetryAfter is how long the lock holds, set on the locked outcome.
	RetryAfter time.Duration

	SessionID    uuid.UUID
	SessionToken string
	ExpiresAt    time.Time
	// EvictedSessions counts sessions displaced by the single-session policy.
	EvictedSessions int64
}

type SessionCheck struct {
	SessionID      uuid.UUID `json:"session_id"`
	PrincipalID    uuid.UUID `json:"principal_id"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

type SessionItem struct {
	SessionID      uuid.UUID `json:"session_id"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	UserAgent      string    `json:"user_agent,omitempty"`
	OriginAddress  string    `json:"origin_address,omitempty"`
	IsCurrent      bool      `json:"is_current"`
}

type ChangePasswordParams struct {
	PrincipalID     uuid.UUID
	CurrentPassword string
	NewPassword     string
}

type ResourceLink struct {
	ResourceID uuid.UUID `json:"resource_id"`
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type ResourceView struct {
	ResourceID uuid.UUID `json:"resource_id"`
}

func toSessionItem(s domain.Session, currentSessionID uuid.UUID) SessionItem {
	return SessionItem{
		SessionID:      s.ID,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
		ExpiresAt:      s.ExpiresAt,
		UserAgent:      s.UserAgent,
		OriginAddress:  s.OriginAddress,
		IsCurrent:      s.ID == currentSessionID,
	}
}
