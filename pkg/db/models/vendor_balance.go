package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorBalance is the mutable money position of one vendor. The invariant
// Total = Available + Pending + Withdrawn holds after every ledger operation;
// LedgerEntry rows are the append-only audit trail behind each mutation.
//
// Pending covers both earnings not yet cleared and amounts reserved by an
// in-flight withdrawal request.
type VendorBalance struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID  uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex"`
	Vendor    *VendorProfile  `gorm:"foreignKey:VendorID"`
	Total     decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null;default:0"`
	Available decimal.Decimal `gorm:"column:available;type:numeric(12,2);not null;default:0"`
	Pending   decimal.Decimal `gorm:"column:pending;type:numeric(12,2);not null;default:0"`
	Withdrawn decimal.Decimal `gorm:"column:withdrawn;type:numeric(12,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// ConsistencyOK reports whether the sum invariant holds.
func (b *VendorBalance) ConsistencyOK() bool {
	return b.Total.Equal(b.Available.Add(b.Pending).Add(b.Withdrawn))
}
