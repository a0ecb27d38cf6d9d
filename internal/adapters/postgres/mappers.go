package postgres

import (
	"errors"
	"strings"

	"github.com/strataboard/authcore/internal/domain"
	"gorm.io/gorm"
)

func toDomainPrincipal(row principalModel) domain.Principal {
	return domain.Principal{
		ID:                  row.PrincipalID,
		Email:               row.Email,
		PasswordHash:        row.PasswordHash,
		PasswordAlgorithm:   domain.PasswordAlgorithm(row.PasswordAlgorithm),
		FailedLoginAttempts: row.FailedLoginAttempts,
		LastFailedLogin:     row.LastFailedLogin,
		LockedUntil:         row.LockedUntil,
		IsActive:            row.IsActive,
		CreatedAt:           row.CreatedAt,
		UpdatedAt:           row.UpdatedAt,
	}
}

func toDomainSession(row sessionModel) domain.Session {
	origin := ""
	if row.OriginAddress != nil {
		origin = *row.OriginAddress
	}
	return domain.Session{
		ID:             row.SessionID,
		PrincipalID:    row.PrincipalID,
		Token:          row.Token,
		CreatedAt:      row.CreatedAt,
		LastActivityAt: row.LastActivityAt,
		ExpiresAt:      row.ExpiresAt,
		IsActive:       row.IsActive,
		UserAgent:      row.UserAgent,
		OriginAddress:  origin,
	}
}

func nullableString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
