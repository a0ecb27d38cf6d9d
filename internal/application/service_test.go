package application

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/strataboard/authcore/internal/domain"
	"github.com/strataboard/authcore/internal/ports"
)

func TestLoginSuccessCreatesSession(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	res, err := f.service.Login(ctx, LoginParams{
		Email:         "user@example.com",
		Password:      "Sunlit-Meadow-42!",
		OriginAddress: "127.0.0.1",
		UserAgent:     "unit-test",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Outcome != LoginSuccess {
		t.Fatalf("expected success outcome, got %s", res.Outcome)
	}
	if len(res.SessionToken) != 64 {
		t.Fatalf("expected 64-char session token, got %d chars", len(res.SessionToken))
	}
	if got, want := res.ExpiresAt, f.now.Add(24*time.Hour); !got.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, got)
	}

	check, err := f.service.CheckSession(ctx, res.SessionToken)
	if err != nil {
		t.Fatalf("check session failed: %v", err)
	}
	if check.SessionID != res.SessionID {
		t.Fatalf("expected session %s, got %s", res.SessionID, check.SessionID)
	}
}

func TestLoginNormalizesEmail(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	res, err := f.service.Login(ctx, LoginParams{
		Email:    "  User@Example.COM ",
		Password: "Sunlit-Meadow-42!",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Outcome != LoginSuccess {
		t.Fatalf("expected success for case-insensitive email, got %s", res.Outcome)
	}
}

func TestLoginUnknownEmailGivesNoHint(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())

	res, err := f.service.Login(context.Background(), LoginParams{
		Email:    "nobody@example.com",
		Password: "Sunlit-Meadow-42!",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != LoginInvalidCredentials {
		t.Fatalf("expected invalid outcome, got %s", res.Outcome)
	}
	if res.RemainingAttempts != -1 {
		t.Fatalf("expected no remaining-attempts hint, got %d", res.RemainingAttempts)
	}
}

func TestLoginWrongPasswordCountsAndHints(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	id := f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	res, err := f.service.Login(ctx, LoginParams{
		Email:    "user@example.com",
		Password: "wrong",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != LoginInvalidCredentials {
		t.Fatalf("expected invalid outcome, got %s", res.Outcome)
	}
	if res.RemainingAttempts != domain.MaxFailedAttempts-1 {
		t.Fatalf("expected %d remaining, got %d", domain.MaxFailedAttempts-1, res.RemainingAttempts)
	}
	if got := f.principals.byID[id].FailedLoginAttempts; got != 1 {
		t.Fatalf("expected 1 recorded failure, got %d", got)
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	id := f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	for i := 0; i < domain.MaxFailedAttempts-1; i++ {
		res, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "wrong"})
		if err != nil {
			t.Fatalf("attempt %d: unexpected error: %v", i+1, err)
		}
		if res.Outcome != LoginInvalidCredentials {
			t.Fatalf("attempt %d: expected invalid outcome, got %s", i+1, res.Outcome)
		}
	}

	res, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "wrong"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != LoginLocked {
		t.Fatalf("expected locked outcome on attempt %d, got %s", domain.MaxFailedAttempts, res.Outcome)
	}
	if res.RetryAfter <= 0 || res.RetryAfter > domain.LockoutDuration {
		t.Fatalf("expected retry-after within the lockout window, got %v", res.RetryAfter)
	}

	// A correct password during the lock neither logs in nor counts.
	attemptsBefore := f.principals.byID[id].FailedLoginAttempts
	res, err = f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != LoginLocked {
		t.Fatalf("expected locked outcome for correct password under lock, got %s", res.Outcome)
	}
	if got := f.principals.byID[id].FailedLoginAttempts; got != attemptsBefore {
		t.Fatalf("locked attempt must not move the counter: before %d, after %d", attemptsBefore, got)
	}
}

func TestLoginLockExpiresLazily(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	id := f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	for i := 0; i < domain.MaxFailedAttempts; i++ {
		if _, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "wrong"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	f.now = f.now.Add(domain.LockoutDuration + time.Minute)

	res, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != LoginSuccess {
		t.Fatalf("expected success after lock expiry, got %s", res.Outcome)
	}
	p := f.principals.byID[id]
	if p.FailedLoginAttempts != 0 || p.LockedUntil != nil {
		t.Fatalf("expected lockout state cleared after successful login, got attempts=%d lock=%v", p.FailedLoginAttempts, p.LockedUntil)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	id := f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", false)

	res, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != LoginInactive {
		t.Fatalf("expected inactive outcome, got %s", res.Outcome)
	}
	if got := f.principals.byID[id].FailedLoginAttempts; got != 0 {
		t.Fatalf("inactive outcome must not count as a failed attempt, got %d", got)
	}
}

func TestLoginMigratesLegacyHash(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	id := f.addLegacyPrincipal("legacy@example.com", "OldSystemPass1!")

	res, err := f.service.Login(ctx, LoginParams{Email: "legacy@example.com", Password: "OldSystemPass1!"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Outcome != LoginSuccess {
		t.Fatalf("expected success with legacy hash, got %s", res.Outcome)
	}

	p := f.principals.byID[id]
	if p.PasswordAlgorithm != domain.AlgorithmArgon2id {
		t.Fatalf("expected opportunistic rehash to argon2id, got %s", p.PasswordAlgorithm)
	}
	if !strings.HasPrefix(p.PasswordHash, "argon:") {
		t.Fatalf("expected upgraded hash, got %q", p.PasswordHash)
	}

	// The migrated credential keeps working.
	res, err = f.service.Login(ctx, LoginParams{Email: "legacy@example.com", Password: "OldSystemPass1!"})
	if err != nil || res.Outcome != LoginSuccess {
		t.Fatalf("expected login after migration to succeed, outcome=%s err=%v", res.Outcome, err)
	}
}

func TestSingleSessionPolicyEvictsPrevious(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	first, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	second, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if second.EvictedSessions != 1 {
		t.Fatalf("expected 1 evicted session, got %d", second.EvictedSessions)
	}

	if _, err := f.service.CheckSession(ctx, first.SessionToken); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("expected first session invalid after eviction, got %v", err)
	}
	if _, err := f.service.CheckSession(ctx, second.SessionToken); err != nil {
		t.Fatalf("expected second session valid: %v", err)
	}
}

func TestMultipleSessionsWhenPolicyDisabled(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()
	cfg.SingleSession = false
	f := newFixture(cfg)
	ctx := context.Background()
	id := f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	first, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("first login failed: %v", err)
	}
	second, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("second login failed: %v", err)
	}
	if second.EvictedSessions != 0 {
		t.Fatalf("expected no eviction with policy disabled, got %d", second.EvictedSessions)
	}

	items, err := f.service.ListSessions(ctx, id, second.SessionID)
	if err != nil {
		t.Fatalf("list sessions failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 active sessions, got %d", len(items))
	}
	current := 0
	for _, item := range items {
		if item.IsCurrent {
			current++
		}
	}
	if current != 1 {
		t.Fatalf("expected exactly one current session, got %d", current)
	}
	if _, err := f.service.CheckSession(ctx, first.SessionToken); err != nil {
		t.Fatalf("first session should stay valid with policy disabled: %v", err)
	}
}

func TestCheckSessionSlidingWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	res, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Far from expiry: a check records activity but leaves the deadline alone.
	f.now = f.now.Add(5 * time.Minute)
	check, err := f.service.CheckSession(ctx, res.SessionToken)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !check.ExpiresAt.Equal(res.ExpiresAt) {
		t.Fatalf("expiry must not move outside the extend window: %v vs %v", check.ExpiresAt, res.ExpiresAt)
	}

	// Walk to within the extend window by repeated activity, then verify the
	// deadline slides but never past the absolute ceiling.
	createdAt := f.sessions.byID[res.SessionID].CreatedAt
	ceiling := createdAt.Add(24 * time.Hour)

	f.now = res.ExpiresAt.Add(-5 * time.Minute)
	// Keep the idle window alive for the jump.
	f.sessions.setLastActivity(res.SessionID, f.now.Add(-time.Minute))

	check, err = f.service.CheckSession(ctx, res.SessionToken)
	if err != nil {
		t.Fatalf("check near expiry failed: %v", err)
	}
	want := f.now.Add(30 * time.Minute)
	if want.After(ceiling) {
		want = ceiling
	}
	if !check.ExpiresAt.Equal(want) {
		t.Fatalf("expected slid expiry %v, got %v", want, check.ExpiresAt)
	}
	if check.ExpiresAt.After(ceiling) {
		t.Fatalf("expiry slid past the absolute ceiling: %v > %v", check.ExpiresAt, ceiling)
	}
}

func TestCheckSessionIdleTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	res, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	f.now = f.now.Add(31 * time.Minute)
	if _, err := f.service.CheckSession(ctx, res.SessionToken); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("expected idle-timed-out session to be invalid, got %v", err)
	}

	// Detection terminates the session, so listings no longer show it.
	if f.sessions.byID[res.SessionID].IsActive {
		t.Fatalf("idle-timed-out session must be terminated by the check")
	}
	items, err := f.service.ListSessions(ctx, f.principals.byEmail["user@example.com"], uuid.Nil)
	if err != nil {
		t.Fatalf("list sessions failed: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no active sessions after idle timeout, got %d", len(items))
	}
}

func TestCheckSessionAbsoluteCeiling(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	res, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// A session kept alive by activity still dies 24h after creation, even
	// when the last touch was minutes ago.
	createdAt := f.sessions.byID[res.SessionID].CreatedAt
	f.now = createdAt.Add(24*time.Hour - 2*time.Minute)
	f.sessions.setLastActivity(res.SessionID, f.now.Add(-time.Minute))
	if _, err := f.service.CheckSession(ctx, res.SessionToken); err != nil {
		t.Fatalf("check just before the ceiling failed: %v", err)
	}

	f.now = createdAt.Add(24 * time.Hour)
	if _, err := f.service.CheckSession(ctx, res.SessionToken); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("expected session invalid at the absolute ceiling, got %v", err)
	}
	if f.sessions.byID[res.SessionID].IsActive {
		t.Fatalf("session past the absolute ceiling must be terminated by the check")
	}
}

func TestCheckSessionRevocationVetoPrecedesLookup(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	res, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// A marker written by another node vetoes the token even while the row
	// this node reads still says active.
	if err := f.revocations.MarkTerminated(ctx, hashToken(res.SessionToken), res.ExpiresAt); err != nil {
		t.Fatalf("mark terminated failed: %v", err)
	}
	if _, err := f.service.CheckSession(ctx, res.SessionToken); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("expected vetoed session to be invalid, got %v", err)
	}
}

func TestCheckSessionActivityKeepsIdleWindowAlive(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	res, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	// Activity every 20 minutes stays inside the 30 minute idle window.
	for i := 0; i < 6; i++ {
		f.now = f.now.Add(20 * time.Minute)
		if _, err := f.service.CheckSession(ctx, res.SessionToken); err != nil {
			t.Fatalf("check %d failed: %v", i+1, err)
		}
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	res, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	if err := f.service.Logout(ctx, res.SessionToken); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := f.service.CheckSession(ctx, res.SessionToken); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("expected invalid session after logout, got %v", err)
	}

	// Second logout and unknown-token logout are both no-ops.
	if err := f.service.Logout(ctx, res.SessionToken); err != nil {
		t.Fatalf("repeated logout should succeed: %v", err)
	}
	if err := f.service.Logout(ctx, "deadbeef"); err != nil {
		t.Fatalf("unknown-token logout should succeed: %v", err)
	}
}

func TestTerminateSessionScopedToPrincipal(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()
	cfg.SingleSession = false
	f := newFixture(cfg)
	ctx := context.Background()
	alice := f.addPrincipal("alice@example.com", "Sunlit-Meadow-42!", true)
	bob := f.addPrincipal("bob@example.com", "Sunlit-Meadow-42!", true)

	aliceLogin, err := f.service.Login(ctx, LoginParams{Email: "alice@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("alice login failed: %v", err)
	}

	// Bob terminating Alice's session is a silent no-op.
	if err := f.service.TerminateSession(ctx, bob, aliceLogin.SessionID); err != nil {
		t.Fatalf("cross-principal terminate should be a no-op: %v", err)
	}
	if _, err := f.service.CheckSession(ctx, aliceLogin.SessionToken); err != nil {
		t.Fatalf("alice's session should survive: %v", err)
	}

	if err := f.service.TerminateSession(ctx, alice, aliceLogin.SessionID); err != nil {
		t.Fatalf("terminate failed: %v", err)
	}
	if _, err := f.service.CheckSession(ctx, aliceLogin.SessionToken); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("expected terminated session invalid, got %v", err)
	}
}

func TestTerminateOtherSessionsKeepsCurrent(t *testing.T) {
	t.Parallel()

	cfg := defaultTestConfig()
	cfg.SingleSession = false
	f := newFixture(cfg)
	ctx := context.Background()
	id := f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	first, _ := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	second, _ := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	third, _ := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})

	count, err := f.service.TerminateOtherSessions(ctx, id, third.SessionID)
	if err != nil {
		t.Fatalf("terminate others failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 terminated, got %d", count)
	}

	for _, token := range []string{first.SessionToken, second.SessionToken} {
		if _, err := f.service.CheckSession(ctx, token); !errors.Is(err, domain.ErrSessionInvalid) {
			t.Fatalf("expected displaced session invalid, got %v", err)
		}
	}
	if _, err := f.service.CheckSession(ctx, third.SessionToken); err != nil {
		t.Fatalf("kept session should stay valid: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	id := f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	login, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	err = f.service.ChangePassword(ctx, ChangePasswordParams{
		PrincipalID:     id,
		CurrentPassword: "wrong",
		NewPassword:     "Moonlit-Harbor-77!",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong current password, got %v", err)
	}

	err = f.service.ChangePassword(ctx, ChangePasswordParams{
		PrincipalID:     id,
		CurrentPassword: "Sunlit-Meadow-42!",
		NewPassword:     "short",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for weak new password, got %v", err)
	}

	err = f.service.ChangePassword(ctx, ChangePasswordParams{
		PrincipalID:     id,
		CurrentPassword: "Sunlit-Meadow-42!",
		NewPassword:     "Moonlit-Harbor-77!",
	})
	if err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	// Every session is gone, including the caller's.
	if _, err := f.service.CheckSession(ctx, login.SessionToken); !errors.Is(err, domain.ErrSessionInvalid) {
		t.Fatalf("expected sessions revoked after password change, got %v", err)
	}

	res, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Moonlit-Harbor-77!"})
	if err != nil || res.Outcome != LoginSuccess {
		t.Fatalf("expected login with new password, outcome=%s err=%v", res.Outcome, err)
	}
	res, err = f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil || res.Outcome != LoginInvalidCredentials {
		t.Fatalf("old password must stop working, outcome=%s err=%v", res.Outcome, err)
	}
}

func TestUnlockAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	id := f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	for i := 0; i < domain.MaxFailedAttempts; i++ {
		if _, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "wrong"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := f.service.UnlockAccount(ctx, id); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}

	res, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"})
	if err != nil || res.Outcome != LoginSuccess {
		t.Fatalf("expected login after unlock, outcome=%s err=%v", res.Outcome, err)
	}
}

func TestLoginThrottleBlocksOrigin(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	f.throttle.deny = true

	_, err := f.service.Login(context.Background(), LoginParams{
		Email:         "user@example.com",
		Password:      "Sunlit-Meadow-42!",
		OriginAddress: "10.0.0.1",
	})
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestLoginStorageFailurePropagates(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	id := f.addPrincipal("user@example.com", "Sunlit-Meadow-42!", true)

	f.principals.failWith = errors.New("db down")
	if _, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "Sunlit-Meadow-42!"}); err == nil {
		t.Fatalf("expected storage failure to propagate")
	}
	f.principals.failWith = nil

	// A storage failure on the failure-recording path must not itself count
	// as a failed login.
	f.principals.failRecord = errors.New("db down")
	if _, err := f.service.Login(ctx, LoginParams{Email: "user@example.com", Password: "wrong"}); err == nil {
		t.Fatalf("expected record failure to propagate")
	}
	f.principals.failRecord = nil
	if got := f.principals.byID[id].FailedLoginAttempts; got != 0 {
		t.Fatalf("expected counter untouched after storage failure, got %d", got)
	}
}

func TestResourceLinkFlow(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()
	resourceID := uuid.New()

	link, err := f.service.IssueResourceLink(ctx, resourceID)
	if err != nil {
		t.Fatalf("issue link failed: %v", err)
	}
	if link.Token == "" {
		t.Fatalf("expected a token")
	}
	if got, want := link.ExpiresAt, f.now.Add(24*time.Hour); !got.Equal(want) {
		t.Fatalf("expected link expiry %v, got %v", want, got)
	}

	view, err := f.service.ViewResource(ctx, link.Token, "127.0.0.1", "unit-test")
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
	if view.ResourceID != resourceID {
		t.Fatalf("expected resource %s, got %s", resourceID, view.ResourceID)
	}

	if len(f.accessLog.entries) != 1 {
		t.Fatalf("expected one access log entry, got %d", len(f.accessLog.entries))
	}
	entry := f.accessLog.entries[0]
	if entry.ResourceID != resourceID {
		t.Fatalf("log entry carries wrong resource: %s", entry.ResourceID)
	}
	if entry.TokenDigest == link.Token || len(entry.TokenDigest) != 64 {
		t.Fatalf("access log must store a digest, not the raw token")
	}
}

func TestViewResourceRejectsExpiredAndBogusTokens(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()

	link, err := f.service.IssueResourceLink(ctx, uuid.New())
	if err != nil {
		t.Fatalf("issue link failed: %v", err)
	}

	f.now = f.now.Add(24*time.Hour + time.Second)
	if _, err := f.service.ViewResource(ctx, link.Token, "", ""); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid past max age, got %v", err)
	}
	if _, err := f.service.ViewResource(ctx, "bogus", "", ""); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for bogus token, got %v", err)
	}
	if len(f.accessLog.entries) != 0 {
		t.Fatalf("rejected views must not be logged, got %d entries", len(f.accessLog.entries))
	}
}

func TestViewResourceFailsWhenAuditFails(t *testing.T) {
	t.Parallel()

	f := newFixture(defaultTestConfig())
	ctx := context.Background()

	link, err := f.service.IssueResourceLink(ctx, uuid.New())
	if err != nil {
		t.Fatalf("issue link failed: %v", err)
	}

	f.accessLog.failWith = errors.New("db down")
	if _, err := f.service.ViewResource(ctx, link.Token, "", ""); err == nil {
		t.Fatalf("expected audit failure to fail the view")
	}
}

// ---- fixture ----

type fixture struct {
	service     *Service
	principals  *fakePrincipals
	sessions    *fakeSessions
	accessLog   *fakeAccessLog
	throttle    *fakeThrottle
	revocations *fakeRevocations
	now         time.Time
}

func defaultTestConfig() Config {
	return Config{
		SingleSession:       true,
		SessionTTL:          24 * time.Hour,
		IdleTimeout:         30 * time.Minute,
		ExtendWindow:        10 * time.Minute,
		ExtendBy:            30 * time.Minute,
		ResourceTokenMaxAge: 24 * time.Hour,
		ThrottleThreshold:   60,
		ThrottleWindow:      time.Minute,
	}
}

func newFixture(cfg Config) *fixture {
	principals := &fakePrincipals{
		byEmail: map[string]uuid.UUID{},
		byID:    map[uuid.UUID]*domain.Principal{},
	}
	sessions := &fakeSessions{byID: map[uuid.UUID]*domain.Session{}}
	accessLog := &fakeAccessLog{}
	throttle := &fakeThrottle{}
	revocations := &fakeRevocations{terminated: map[string]bool{}}
	tokens := &fakeTokens{issued: map[string]issuedToken{}}

	f := &fixture{
		principals:  principals,
		sessions:    sessions,
		accessLog:   accessLog,
		throttle:    throttle,
		revocations: revocations,
		now:         time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	svc := NewService(Dependencies{
		Config:      cfg,
		Principals:  principals,
		Sessions:    sessions,
		AccessLog:   accessLog,
		Revocations: revocations,
		Throttle:    throttle,
		Hasher:      &fakeHasher{},
		Tokens:      tokens,
	})
	svc.nowFn = func() time.Time { return f.now }

	f.service = svc
	return f
}

func (f *fixture) addPrincipal(email, password string, active bool) uuid.UUID {
	id := uuid.New()
	f.principals.byEmail[email] = id
	f.principals.byID[id] = &domain.Principal{
		ID:                id,
		Email:             email,
		PasswordHash:      "argon:" + password,
		PasswordAlgorithm: domain.AlgorithmArgon2id,
		IsActive:          active,
		CreatedAt:         f.now,
		UpdatedAt:         f.now,
	}
	return id
}

func (f *fixture) addLegacyPrincipal(email, password string) uuid.UUID {
	id := f.addPrincipal(email, password, true)
	p := f.principals.byID[id]
	p.PasswordHash = "legacy:" + password
	p.PasswordAlgorithm = domain.AlgorithmLegacyPBKDF2
	return id
}

// ---- fakes ----

type fakePrincipals struct {
	mu         sync.Mutex
	byEmail    map[string]uuid.UUID
	byID       map[uuid.UUID]*domain.Principal
	failWith   error
	failRecord error
}

func (f *fakePrincipals) GetByEmail(_ context.Context, email string) (domain.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return domain.Principal{}, f.failWith
	}
	id, ok := f.byEmail[email]
	if !ok {
		return domain.Principal{}, domain.ErrNotFound
	}
	return *f.byID[id], nil
}

func (f *fakePrincipals) GetByID(_ context.Context, id uuid.UUID) (domain.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return domain.Principal{}, f.failWith
	}
	p, ok := f.byID[id]
	if !ok {
		return domain.Principal{}, domain.ErrNotFound
	}
	return *p, nil
}

func (f *fakePrincipals) RecordLoginFailure(_ context.Context, id uuid.UUID, now time.Time, maxAttempts int, lockFor time.Duration) (ports.FailureRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRecord != nil {
		return ports.FailureRecord{}, f.failRecord
	}
	p, ok := f.byID[id]
	if !ok {
		return ports.FailureRecord{}, domain.ErrNotFound
	}
	p.FailedLoginAttempts++
	p.LastFailedLogin = &now
	if p.FailedLoginAttempts >= maxAttempts {
		until := now.Add(lockFor)
		if p.LockedUntil == nil || p.LockedUntil.Before(until) {
			p.LockedUntil = &until
		}
	}
	return ports.FailureRecord{Attempts: p.FailedLoginAttempts, LockedUntil: p.LockedUntil}, nil
}

func (f *fakePrincipals) ClearLock(_ context.Context, id uuid.UUID, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.FailedLoginAttempts = 0
	p.LastFailedLogin = nil
	p.LockedUntil = nil
	p.UpdatedAt = now
	return nil
}

func (f *fakePrincipals) UpdatePassword(_ context.Context, id uuid.UUID, hash string, algorithm domain.PasswordAlgorithm, updatedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.PasswordHash = hash
	p.PasswordAlgorithm = algorithm
	p.UpdatedAt = updatedAt
	return nil
}

type fakeSessions struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*domain.Session
}

func (f *fakeSessions) setLastActivity(id uuid.UUID, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byID[id]; ok {
		s.LastActivityAt = at
	}
}

func (f *fakeSessions) Create(_ context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &domain.Session{
		ID:             uuid.New(),
		PrincipalID:    params.PrincipalID,
		Token:          params.Token,
		CreatedAt:      params.CreatedAt,
		LastActivityAt: params.CreatedAt,
		ExpiresAt:      params.ExpiresAt,
		IsActive:       true,
		UserAgent:      params.UserAgent,
		OriginAddress:  params.OriginAddress,
	}
	f.byID[s.ID] = s
	return *s, nil
}

func (f *fakeSessions) GetByToken(_ context.Context, token string) (domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byID {
		if s.Token == token {
			return *s, nil
		}
	}
	return domain.Session{}, domain.ErrNotFound
}

func (f *fakeSessions) ListByPrincipal(_ context.Context, principalID uuid.UUID) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, s := range f.byID {
		if s.PrincipalID == principalID && s.IsActive {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeSessions) Touch(_ context.Context, sessionID uuid.UUID, lastActivityAt, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[sessionID]
	if !ok || !s.IsActive {
		return domain.ErrNotFound
	}
	s.LastActivityAt = lastActivityAt
	s.ExpiresAt = expiresAt
	return nil
}

func (f *fakeSessions) Terminate(_ context.Context, sessionID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.byID[sessionID]; ok {
		s.IsActive = false
	}
	return nil
}

func (f *fakeSessions) TerminateOthers(_ context.Context, principalID uuid.UUID, keep uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.byID {
		if s.PrincipalID == principalID && s.ID != keep && s.IsActive {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) TerminateAll(_ context.Context, principalID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, s := range f.byID {
		if s.PrincipalID == principalID && s.IsActive {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context, principalID uuid.UUID, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.byID {
		if s.PrincipalID == principalID && s.ExpiresAt.Before(now) {
			delete(f.byID, id)
		}
	}
	return nil
}

type fakeAccessLog struct {
	mu       sync.Mutex
	entries  []domain.AccessLogEntry
	failWith error
}

func (f *fakeAccessLog) Insert(_ context.Context, entry domain.AccessLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.entries = append(f.entries, entry)
	return nil
}

type fakeRevocations struct {
	mu         sync.Mutex
	terminated map[string]bool
}

func (f *fakeRevocations) MarkTerminated(_ context.Context, tokenDigest string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminated[tokenDigest] = true
	return nil
}

func (f *fakeRevocations) IsTerminated(_ context.Context, tokenDigest string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terminated[tokenDigest], nil
}

type fakeThrottle struct {
	mu   sync.Mutex
	deny bool
}

func (f *fakeThrottle) Allow(context.Context, string, int, time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.deny, nil
}

type fakeHasher struct{}

func (f *fakeHasher) Hash(password string) (string, domain.PasswordAlgorithm, error) {
	return "argon:" + password, domain.AlgorithmArgon2id, nil
}

func (f *fakeHasher) Verify(hash string, algorithm domain.PasswordAlgorithm, password string) bool {
	switch algorithm {
	case domain.AlgorithmArgon2id:
		return hash == "argon:"+password
	case domain.AlgorithmLegacyPBKDF2:
		return hash == "legacy:"+password
	default:
		return false
	}
}

func (f *fakeHasher) NeedsRehash(_ string, algorithm domain.PasswordAlgorithm) bool {
	return algorithm != domain.AlgorithmArgon2id
}

type issuedToken struct {
	resourceID uuid.UUID
	issuedAt   time.Time
}

type fakeTokens struct {
	mu     sync.Mutex
	issued map[string]issuedToken
}

func (f *fakeTokens) Issue(resourceID uuid.UUID, now time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := uuid.NewString()
	f.issued[token] = issuedToken{resourceID: resourceID, issuedAt: now}
	return token, nil
}

func (f *fakeTokens) Validate(token string, now time.Time, maxAge time.Duration) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.issued[token]
	if !ok {
		return uuid.Nil, domain.ErrTokenInvalid
	}
	if now.Sub(item.issuedAt) > maxAge {
		return uuid.Nil, domain.ErrTokenInvalid
	}
	return item.resourceID, nil
}
