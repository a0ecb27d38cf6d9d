package application

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/strataboard/authcore/internal/domain"
)

// CheckSession validates a presented session token and records the activity.
// A valid check slides the expiry forward when the session is close to its
// deadline, never past the absolute ceiling set at creation. A session found
// past its idle or absolute deadline is terminated here, so the expiry is
// visible to session listings the moment it is detected.
func (s *Service) CheckSession(ctx context.Context, token string) (SessionCheck, error) {
	if token == "" {
		return SessionCheck{}, domain.ErrSessionInvalid
	}

	// Redis veto: a token terminated on another node fails here before the
	// DB read, so no staleness in that read can matter.
	if terminated, err := s.revocations.IsTerminated(ctx, hashToken(token)); err == nil && terminated {
		return SessionCheck{}, domain.ErrSessionInvalid
	}

	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SessionCheck{}, domain.ErrSessionInvalid
		}
		return SessionCheck{}, err
	}

	now := s.nowFn()
	if !session.Usable(now, s.cfg.IdleTimeout) {
		if session.IsActive {
			if err := s.terminate(ctx, session); err != nil {
				s.logger.Warn("expired session termination failed",
					"operation", "check_session", "session_id", session.ID, "error", err)
			}
		}
		return SessionCheck{}, domain.ErrSessionInvalid
	}

	expiresAt := session.ExpiresAt
	if session.ExpiresAt.Sub(now) < s.cfg.ExtendWindow {
		extended := now.Add(s.cfg.ExtendBy)
		ceiling := session.CreatedAt.Add(s.cfg.SessionTTL)
		if extended.After(ceiling) {
			extended = ceiling
		}
		expiresAt = extended
	}
	if err := s.sessions.Touch(ctx, session.ID, now, expiresAt); err != nil {
		return SessionCheck{}, err
	}

	return SessionCheck{
		SessionID:      session.ID,
		PrincipalID:    session.PrincipalID,
		LastActivityAt: now,
		ExpiresAt:      expiresAt,
	}, nil
}

// Logout terminates the session behind a token. Unknown or already-terminated
// tokens succeed: logout is idempotent and absorbing.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.terminate(ctx, session)
}

// ListSessions returns the principal's active sessions, newest first.
// currentSessionID may be uuid.Nil when the caller has no session context.
func (s *Service) ListSessions(ctx context.Context, principalID, currentSessionID uuid.UUID) ([]SessionItem, error) {
	sessions, err := s.sessions.ListByPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	items := make([]SessionItem, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, toSessionItem(session, currentSessionID))
	}
	return items, nil
}

// TerminateSession ends one of the principal's sessions by ID. Terminating a
// session that does not exist, belongs to someone else, or is already gone is
// a silent no-op.
func (s *Service) TerminateSession(ctx context.Context, principalID, sessionID uuid.UUID) error {
	sessions, err := s.sessions.ListByPrincipal(ctx, principalID)
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if session.ID == sessionID {
			return s.terminate(ctx, session)
		}
	}
	return nil
}

// TerminateOtherSessions ends every active session except keep and reports
// how many were displaced.
func (s *Service) TerminateOtherSessions(ctx context.Context, principalID, keep uuid.UUID) (int64, error) {
	sessions, err := s.sessions.ListByPrincipal(ctx, principalID)
	if err != nil {
		return 0, err
	}
	count, err := s.sessions.TerminateOthers(ctx, principalID, keep)
	if err != nil {
		return 0, err
	}
	for _, session := range sessions {
		if session.ID == keep {
			continue
		}
		s.markTerminated(ctx, session)
	}
	s.logger.Info("terminated other sessions",
		"operation", "terminate_others", "principal_id", principalID, "count", count)
	return count, nil
}

// TerminateAllSessions ends every active session for the principal.
func (s *Service) TerminateAllSessions(ctx context.Context, principalID uuid.UUID) (int64, error) {
	count, err := s.evictSessions(ctx, principalID)
	if err != nil {
		return 0, err
	}
	s.logger.Info("terminated all sessions",
		"operation", "terminate_all", "principal_id", principalID, "count", count)
	return count, nil
}

func (s *Service) terminate(ctx context.Context, session domain.Session) error {
	if err := s.sessions.Terminate(ctx, session.ID); err != nil {
		return err
	}
	s.markTerminated(ctx, session)
	return nil
}

// evictSessions is the shared bulk termination used by the single-session
// policy, password changes and the terminate-all operation.
func (s *Service) evictSessions(ctx context.Context, principalID uuid.UUID) (int64, error) {
	sessions, err := s.sessions.ListByPrincipal(ctx, principalID)
	if err != nil {
		return 0, err
	}
	count, err := s.sessions.TerminateAll(ctx, principalID)
	if err != nil {
		return 0, err
	}
	for _, session := range sessions {
		s.markTerminated(ctx, session)
	}
	return count, nil
}

// markTerminated pushes the cache veto for the session's token. Best effort:
// the DB row is already inactive, the marker only shortcuts later checks.
func (s *Service) markTerminated(ctx context.Context, session domain.Session) {
	if err := s.revocations.MarkTerminated(ctx, hashToken(session.Token), session.ExpiresAt); err != nil {
		s.logger.Warn("revocation marker write failed",
			"operation", "terminate", "session_id", session.ID, "error", err)
	}
}
