package postgres

import (
	"github.com/strataboard/authcore/internal/ports"
	"gorm.io/gorm"
)

// Repositories bundles the GORM-backed implementations of the persistence
// ports so the bootstrap layer wires storage in one call.
type Repositories struct {
	Principals ports.PrincipalRepository
	Sessions   ports.SessionRepository
	AccessLog  ports.AccessLogRepository
}

func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Principals: &principalRepository{db: db},
		Sessions:   &sessionRepository{db: db},
		AccessLog:  &accessLogRepository{db: db},
	}
}
