package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/templeconnect/backend/pkg/enums"
)

// VendorProfile is a seller application and, once approved, the seller's
// storefront identity. One profile per user.
type VendorProfile struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	User        *User              `gorm:"foreignKey:UserID"`
	ShopName    string             `gorm:"column:shop_name;not null"`
	Description string             `gorm:"column:description"`
	Status      enums.VendorStatus `gorm:"column:status;type:vendor_status;not null;default:'pending'"`
	// ReviewNote carries the admin's reason on rejection or suspension.
	ReviewNote string     `gorm:"column:review_note"`
	ReviewedBy *uuid.UUID `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt *time.Time `gorm:"column:reviewed_at"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
