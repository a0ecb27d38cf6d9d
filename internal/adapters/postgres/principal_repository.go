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

type principalRepository struct {
	db *gorm.DB
}

func (r *principalRepository) GetByEmail(ctx context.Context, email string) (domain.Principal, error) {
	var rec principalModel
	if err := r.db.WithContext(ctx).Where("email = ?", email).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Principal{}, domain.ErrNotFound
		}
		return domain.Principal{}, err
	}
	return toDomainPrincipal(rec), nil
}

func (r *principalRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Principal, error) {
	var rec principalModel
	if err := r.db.WithContext(ctx).Where("principal_id = ?", id).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Principal{}, domain.ErrNotFound
		}
		return domain.Principal{}, err
	}
	return toDomainPrincipal(rec), nil
}

// RecordLoginFailure is the atomic increment-and-compare the lockout policy
// relies on. The increment happens in a single statement; the lock deadline is
// set by a guarded second statement, so a concurrent writer can extend a
// missing or expired lock but never regress one already held.
func (r *principalRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, now time.Time, maxAttempts int, lockFor time.Duration) (ports.FailureRecord, error) {
	var row struct {
		FailedLoginAttempts int        `gorm:"column:failed_login_attempts"`
		LockedUntil         *time.Time `gorm:"column:locked_until"`
	}
	err := r.db.WithContext(ctx).Raw(`
		UPDATE principals
		   SET failed_login_attempts = failed_login_attempts + 1,
		       last_failed_login = ?,
		       updated_at = ?
		 WHERE principal_id = ?
		RETURNING failed_login_attempts, locked_until`,
		now, now, id,
	).Scan(&row).Error
	if err != nil {
		return ports.FailureRecord{}, err
	}

	record := ports.FailureRecord{
		Attempts:    row.FailedLoginAttempts,
		LockedUntil: row.LockedUntil,
	}
	if row.FailedLoginAttempts < maxAttempts {
		return record, nil
	}

	lockedUntil := now.Add(lockFor)
	res := r.db.WithContext(ctx).Exec(`
		UPDATE principals
		   SET locked_until = ?, updated_at = ?
		 WHERE principal_id = ?
		   AND (locked_until IS NULL OR locked_until < ?)`,
		lockedUntil, now, id, lockedUntil,
	)
	if res.Error != nil {
		return ports.FailureRecord{}, res.Error
	}
	if res.RowsAffected > 0 {
		record.LockedUntil = &lockedUntil
		return record, nil
	}

	// Another writer holds a later deadline; read it back so the caller
	// reports the authoritative lock.
	var current principalModel
	if err := r.db.WithContext(ctx).Select("locked_until").Where("principal_id = ?", id).Take(&current).Error; err != nil {
		return ports.FailureRecord{}, err
	}
	record.LockedUntil = current.LockedUntil
	return record, nil
}

func (r *principalRepository) ClearLock(ctx context.Context, id uuid.UUID, now time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&principalModel{}).
		Where("principal_id = ?", id).
		Updates(map[string]any{
			"failed_login_attempts": 0,
			"last_failed_login":     nil,
			"locked_until":          nil,
			"updated_at":            now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *principalRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string, algorithm domain.PasswordAlgorithm, updatedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&principalModel{}).
		Where("principal_id = ?", id).
		Updates(map[string]any{
			"password_hash":      hash,
			"password_algorithm": string(algorithm),
			"updated_at":         updatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
