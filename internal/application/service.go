package application

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/strataboard/authcore/internal/domain"
	"github.com/strataboard/authcore/internal/ports"
)

type Service struct {
	cfg         Config
	principals  ports.PrincipalRepository
	sessions    ports.SessionRepository
	accessLog   ports.AccessLogRepository
	revocations ports.SessionRevocationStore
	throttle    ports.LoginThrottle
	hasher      ports.PasswordHasher
	tokens      ports.ResourceTokenCodec
	logger      *slog.Logger
	nowFn       func() time.Time
}

type Dependencies struct {
	Config      Config
	Principals  ports.PrincipalRepository
	Sessions    ports.SessionRepository
	AccessLog   ports.AccessLogRepository
	Revocations ports.SessionRevocationStore
	Throttle    ports.LoginThrottle
	Hasher      ports.PasswordHasher
	Tokens      ports.ResourceTokenCodec
	Logger      *slog.Logger
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:         deps.Config.withDefaults(),
		principals:  deps.Principals,
		sessions:    deps.Sessions,
		accessLog:   deps.AccessLog,
		revocations: deps.Revocations,
		throttle:    deps.Throttle,
		hasher:      deps.Hasher,
		tokens:      deps.Tokens,
		logger:      logger,
		nowFn:       func() time.Time { return time.Now().UTC() },
	}
}

func normalizeEmail(email string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(email))
	if trimmed == "" {
		return "", fmt.Errorf("%w: email is required", domain.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(trimmed); err != nil {
		return "", fmt.Errorf("%w: invalid email", domain.ErrInvalidInput)
	}
	return trimmed, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(token)))
	return hex.EncodeToString(sum[:])
}

func randomHex(bytesLen int) string {
	raw := make([]byte, bytesLen)
	_, _ = rand.Read(raw)
	return hex.EncodeToString(raw)
}
