package postgres

import (
	"context"

	"github.com/strataboard/authcore/internal/domain"
	"gorm.io/gorm"
)

type accessLogRepository struct {
	db *gorm.DB
}

func (r *accessLogRepository) Insert(ctx context.Context, entry domain.AccessLogEntry) error {
	rec := accessLogModel{
		ResourceID:    entry.ResourceID,
		TokenDigest:   entry.TokenDigest,
		AccessedAt:    entry.AccessedAt,
		OriginAddress: nullableString(entry.OriginAddress),
		UserAgent:     entry.UserAgent,
	}
	return r.db.WithContext(ctx).Create(&rec).Error
}
