package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Product is an item sold by an approved vendor: ritual goods, offerings,
// souvenirs. Price is the unit price charged to the customer; the vendor's
// earnings on delivery are Price minus the platform commission.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID    uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	Vendor      *VendorProfile  `gorm:"foreignKey:VendorID"`
	Title       string          `gorm:"column:title;not null"`
	Description string          `gorm:"column:description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock       int             `gorm:"column:stock;not null;default:0"`
	Tags        pq.StringArray  `gorm:"column:tags;type:text[]"`
	Photos      pq.StringArray  `gorm:"column:photos;type:text[]"`
	Active      bool            `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
