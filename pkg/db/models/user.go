package models

import (
	"time"

	"github.com/eshop/storefront/pkg/enums"
	"github.com/google/uuid"
)

// User represents a storefront account.
type User struct {
	ID           uuid.UUID      `gorm:"type:text;primaryKey"`
	Email        string         `gorm:"type:text;not null;uniqueIndex:idx_users_email"`
	DisplayName  string         `gorm:"column:display_name;not null"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:customer"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
