package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/strataboard/authcore/internal/domain"
	"github.com/strataboard/authcore/internal/ports"
)

// Login authenticates a credential pair and opens a session. Expected
// resolutions (bad password, locked or inactive account) come back as the
// result's Outcome; the error return is reserved for storage and cache
// failures, which are never counted against the principal.
func (s *Service) Login(ctx context.Context, params LoginParams) (LoginResult, error) {
	email, err := normalizeEmail(params.Email)
	if err != nil {
		return LoginResult{}, err
	}

	throttleKey := "login:" + params.OriginAddress
	if params.OriginAddress == "" {
		throttleKey = "login:" + email
	}
	allowed, err := s.throttle.Allow(ctx, throttleKey, s.cfg.ThrottleThreshold, s.cfg.ThrottleWindow)
	if err != nil {
		return LoginResult{}, fmt.Errorf("login throttle: %w", err)
	}
	if !allowed {
		return LoginResult{}, domain.ErrRateLimited
	}

	now := s.nowFn()
	principal, err := s.principals.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return LoginResult{Outcome: LoginInvalidCredentials, RemainingAttempts: -1}, nil
		}
		return LoginResult{}, err
	}

	// The lock gate runs before any password work: a locked account neither
	// verifies nor counts the attempt.
	hadLock := principal.LockedUntil != nil
	if domain.IsLocked(&principal, now) {
		return LoginResult{
			Outcome:    LoginLocked,
			RetryAfter: principal.LockedUntil.Sub(now),
		}, nil
	}
	if hadLock {
		// IsLocked observed an expired deadline and cleared it; persist so the
		// attempt counter starts fresh.
		if err := s.principals.ClearLock(ctx, principal.ID, now); err != nil {
			return LoginResult{}, err
		}
	}

	if !s.hasher.Verify(principal.PasswordHash, principal.PasswordAlgorithm, params.Password) {
		record, err := s.principals.RecordLoginFailure(ctx, principal.ID, now, domain.MaxFailedAttempts, domain.LockoutDuration)
		if err != nil {
			return LoginResult{}, err
		}
		if record.LockedUntil != nil && record.LockedUntil.After(now) {
			s.logger.Warn("account locked after repeated failures",
				"operation", "login", "principal_id", principal.ID, "attempts", record.Attempts)
			return LoginResult{
				Outcome:    LoginLocked,
				RetryAfter: record.LockedUntil.Sub(now),
			}, nil
		}
		remaining := domain.MaxFailedAttempts - record.Attempts
		if remaining < 0 {
			remaining = 0
		}
		return LoginResult{Outcome: LoginInvalidCredentials, RemainingAttempts: remaining}, nil
	}

	if !principal.IsActive {
		return LoginResult{Outcome: LoginInactive, RemainingAttempts: -1}, nil
	}

	if principal.FailedLoginAttempts > 0 {
		if err := s.principals.ClearLock(ctx, principal.ID, now); err != nil {
			return LoginResult{}, err
		}
	}

	s.maybeRehash(ctx, principal, params.Password, now)

	var evicted int64
	if s.cfg.SingleSession {
		evicted, err = s.evictSessions(ctx, principal.ID)
		if err != nil {
			return LoginResult{}, err
		}
	}

	// Lazy cleanup: login is the natural moment to drop this principal's
	// expired session rows.
	if err := s.sessions.DeleteExpired(ctx, principal.ID, now); err != nil {
		s.logger.Warn("expired session cleanup failed", "operation", "login", "error", err)
	}

	session, err := s.sessions.Create(ctx, ports.SessionCreateParams{
		PrincipalID:   principal.ID,
		Token:         randomHex(32),
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.cfg.SessionTTL),
		UserAgent:     params.UserAgent,
		OriginAddress: params.OriginAddress,
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("login succeeded",
		"operation", "login", "outcome", "success",
		"principal_id", principal.ID, "session_id", session.ID, "evicted", evicted)

	return LoginResult{
		Outcome:           LoginSuccess,
		RemainingAttempts: -1,
		SessionID:         session.ID,
		SessionToken:      session.Token,
		ExpiresAt:         session.ExpiresAt,
		EvictedSessions:   evicted,
	}, nil
}

// maybeRehash upgrades the stored hash after a successful verification when
// the credential is on a legacy algorithm or stale parameters. Best effort:
// the plaintext is in hand only now, and a failed upgrade must not fail the
// login that proved it.
func (s *Service) maybeRehash(ctx context.Context, principal domain.Principal, password string, now time.Time) {
	if !s.hasher.NeedsRehash(principal.PasswordHash, principal.PasswordAlgorithm) {
		return
	}
	hash, algorithm, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Warn("credential rehash failed",
			"operation", "login", "principal_id", principal.ID, "error", err)
		return
	}
	if err := s.principals.UpdatePassword(ctx, principal.ID, hash, algorithm, now); err != nil {
		s.logger.Warn("credential rehash persist failed",
			"operation", "login", "principal_id", principal.ID, "error", err)
		return
	}
	s.logger.Info("credential migrated",
		"operation", "login", "principal_id", principal.ID,
		"from", string(principal.PasswordAlgorithm), "to", string(algorithm))
}

// ChangePassword re-verifies the current credential, applies policy to the
// replacement, rehashes on the preferred algorithm and revokes every session.
func (s *Service) ChangePassword(ctx context.Context, params ChangePasswordParams) error {
	principal, err := s.principals.GetByID(ctx, params.PrincipalID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(principal.PasswordHash, principal.PasswordAlgorithm, params.CurrentPassword) {
		return domain.ErrInvalidCredentials
	}
	if err := domain.ValidatePassword(params.NewPassword); err != nil {
		return err
	}

	hash, algorithm, err := s.hasher.Hash(params.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := s.nowFn()
	if err := s.principals.UpdatePassword(ctx, principal.ID, hash, algorithm, now); err != nil {
		return err
	}

	// A changed credential invalidates every session, including the caller's.
	if _, err := s.evictSessions(ctx, principal.ID); err != nil {
		return err
	}
	s.logger.Info("password changed",
		"operation", "change_password", "outcome", "success", "principal_id", principal.ID)
	return nil
}

// UnlockAccount is the administrative reset of lockout state.
func (s *Service) UnlockAccount(ctx context.Context, principalID uuid.UUID) error {
	if err := s.principals.ClearLock(ctx, principalID, s.nowFn()); err != nil {
		return err
	}
	s.logger.Info("account unlocked",
		"operation", "unlock_account", "outcome", "success", "principal_id", principalID)
	return nil
}
