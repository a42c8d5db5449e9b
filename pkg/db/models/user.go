package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/templeconnect/backend/pkg/enums"
)

// User is an authenticated account. Role decides which API surface the
// account may call; vendor accounts additionally own a VendorProfile.
type User struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string           `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string           `gorm:"column:password_hash;not null"`
	Name         string           `gorm:"column:name;not null"`
	Role         enums.MemberRole `gorm:"column:role;type:member_role;not null;default:'customer'"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
