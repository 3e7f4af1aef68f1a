package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles.
const (
	RoleAdmin      = "admin"
	RoleTechnician = "teknisi"
	RoleCashier    = "kasir"
)

// Values of the token_use JWT claim. Only access tokens open the API; refresh
// tokens are accepted by the refresh endpoint alone.
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// User is a staff account. Username is stored lower-case.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string    `gorm:"not null"`
	Username     string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	Role         string    `gorm:"type:varchar(10);not null;default:'kasir'"`
	IsActive     bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string { return "users" }
