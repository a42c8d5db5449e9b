package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/templeconnect/backend/pkg/enums"
)

// Order is a purchase of a single product line from one vendor. Delivery is
// the settlement point: advancing an order to delivered credits the vendor's
// pending earnings exactly once.
type Order struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	User      *User           `gorm:"foreignKey:UserID"`
	VendorID  uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	Vendor    *VendorProfile  `gorm:"foreignKey:VendorID"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	Product   *Product        `gorm:"foreignKey:ProductID"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Total     decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	// Commission is the platform's cut of Total, frozen at placement time.
	Commission  decimal.Decimal   `gorm:"column:commission;type:numeric(12,2);not null;default:0"`
	Status      enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'placed'"`
	DeliveredAt *time.Time        `gorm:"column:delivered_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
