package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Temple is a listed place of worship that customers can browse and book
// visits to. Each approved vendor manages at most one temple.
type Temple struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID    uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex"`
	Vendor      *VendorProfile  `gorm:"foreignKey:VendorID"`
	Name        string          `gorm:"column:name;not null"`
	City        string          `gorm:"column:city;not null;index"`
	Deity       string          `gorm:"column:deity;index"`
	Address     string          `gorm:"column:address"`
	Description string          `gorm:"column:description"`
	Photos      pq.StringArray  `gorm:"column:photos;type:text[]"`
	VisitPrice  decimal.Decimal `gorm:"column:visit_price;type:numeric(12,2);not null;default:0"`
	OpenHours   string          `gorm:"column:open_hours"`
	Active      bool            `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
