package domain

import "errors"

var (
	// ErrNotFound is returned when the requested resource does not exist.
	// Keeping this sentinel in domain allows adapters to map it consistently to 404.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidCredentials hides whether email or password failed.
	// The reason is to prevent account-enumeration side channels.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked signals temporary lockout after repeated failed attempts.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountInactive is distinct from lockout: the account exists and the
	// password was right, but the principal has not been activated/approved.
	ErrAccountInactive = errors.New("account inactive")
	// ErrSessionInvalid covers not-found, expired, idle-timed-out and
	// terminated sessions. Deliberately undifferentiated to the caller.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrTokenInvalid covers bad signature, expiry and malformed input on
	// resource link tokens. Deliberately undifferentiated to the caller.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrInvalidInput marks request validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimited signals the fixed-window login throttle fired.
	ErrRateLimited = errors.New("rate limited")
	// ErrConflict marks uniqueness violations at the storage layer.
	ErrConflict = errors.New("conflict")
)
