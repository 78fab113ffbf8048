package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminUser is an operator account allowed to mutate content.
type AdminUser struct {
	// The ID is assigned in the repository so the model migrates cleanly on
	// stores without gen_random_uuid.
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Email        string     `gorm:"column:email;not null;unique"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	DisplayName  string     `gorm:"column:display_name"`
	IsVerified   bool       `gorm:"column:is_verified;not null;default:false"`
	VerifiedAt   *time.Time `gorm:"column:verified_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name for admin accounts.
func (AdminUser) TableName() string {
	return "admin_users"
}
