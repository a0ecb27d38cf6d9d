package postgres

import (
	"time"

	"github.com/google/uuid"
)

type principalModel struct {
	PrincipalID         uuid.UUID  `gorm:"column:principal_id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email               string     `gorm:"column:email"`
	PasswordHash        string     `gorm:"column:password_hash"`
	PasswordAlgorithm   string     `gorm:"column:password_algorithm"`
	FailedLoginAttempts int        `gorm:"column:failed_login_attempts"`
	LastFailedLogin     *time.Time `gorm:"column:last_failed_login"`
	LockedUntil         *time.Time `gorm:"column:locked_until"`
	IsActive            bool       `gorm:"column:is_active"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (principalModel) TableName() string { return "principals" }

type sessionModel struct {
	SessionID      uuid.UUID `gorm:"column:session_id;type:uuid;default:gen_random_uuid();primaryKey"`
	PrincipalID    uuid.UUID `gorm:"column:principal_id"`
	Token          string    `gorm:"column:token"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	LastActivityAt time.Time `gorm:"column:last_activity_at"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	IsActive       bool      `gorm:"column:is_active"`
	UserAgent      string    `gorm:"column:user_agent"`
	OriginAddress  *string   `gorm:"column:origin_address"`
}

func (sessionModel) TableName() string { return "user_sessions" }

type accessLogModel struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	ResourceID    uuid.UUID `gorm:"column:resource_id"`
	TokenDigest   string    `gorm:"column:token_digest"`
	AccessedAt    time.Time `gorm:"column:accessed_at"`
	OriginAddress *string   `gorm:"column:origin_address"`
	UserAgent     string    `gorm:"column:user_agent"`
}

func (accessLogModel) TableName() string { return "resource_access_log" }
