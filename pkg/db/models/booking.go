package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/templeconnect/backend/pkg/enums"
)

// Booking is a scheduled temple visit paid for by a customer.
type Booking struct {
	ID         uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	User       *User               `gorm:"foreignKey:UserID"`
	TempleID   uuid.UUID           `gorm:"column:temple_id;type:uuid;not null;index"`
	Temple     *Temple             `gorm:"foreignKey:TempleID"`
	VisitDate  time.Time           `gorm:"column:visit_date;not null"`
	PartySize  int                 `gorm:"column:party_size;not null;default:1"`
	AmountPaid decimal.Decimal     `gorm:"column:amount_paid;type:numeric(12,2);not null"`
	Status     enums.BookingStatus `gorm:"column:status;type:booking_status;not null;default:'confirmed'"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
