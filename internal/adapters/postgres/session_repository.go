package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/strataboard/authcore/internal/domain"
	"github.com/strataboard/authcore/internal/ports"
	"gorm.io/gorm"
)

type sessionRepository struct {
	db *gorm.DB
}

func (r *sessionRepository) Create(ctx context.Context, params ports.SessionCreateParams) (domain.Session, error) {
	rec := sessionModel{
		PrincipalID:    params.PrincipalID,
		Token:          params.Token,
		CreatedAt:      params.CreatedAt,
		LastActivityAt: params.CreatedAt,
		ExpiresAt:      params.ExpiresAt,
		IsActive:       true,
		UserAgent:      params.UserAgent,
		OriginAddress:  nullableString(params.OriginAddress),
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.Session{}, domain.ErrConflict
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) GetByToken(ctx context.Context, token string) (domain.Session, error) {
	var rec sessionModel
	if err := r.db.WithContext(ctx).Where("token = ?", token).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, err
	}
	return toDomainSession(rec), nil
}

func (r *sessionRepository) ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]domain.Session, error) {
	var recs []sessionModel
	err := r.db.WithContext(ctx).
		Where("principal_id = ? AND is_active = TRUE", principalID).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	sessions := make([]domain.Session, 0, len(recs))
	for _, rec := range recs {
		sessions = append(sessions, toDomainSession(rec))
	}
	return sessions, nil
}

func (r *sessionRepository) Touch(ctx context.Context, sessionID uuid.UUID, lastActivityAt, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("session_id = ? AND is_active = TRUE", sessionID).
		Updates(map[string]any{
			"last_activity_at": lastActivityAt,
			"expires_at":       expiresAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *sessionRepository) Terminate(ctx context.Context, sessionID uuid.UUID) error {
	// Idempotent: terminating an already-inactive or unknown session is a
	// no-op, not an error.
	return r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("session_id = ?", sessionID).
		Update("is_active", false).Error
}

func (r *sessionRepository) TerminateOthers(ctx context.Context, principalID uuid.UUID, keep uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("principal_id = ? AND session_id <> ? AND is_active = TRUE", principalID, keep).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *sessionRepository) TerminateAll(ctx context.Context, principalID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("principal_id = ? AND is_active = TRUE", principalID).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, principalID uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).
		Where("principal_id = ? AND expires_at < ?", principalID, now).
		Delete(&sessionModel{}).Error
}
