package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/templeconnect/backend/pkg/enums"
)

// WithdrawalRequest is a vendor's ask to pay out part of their available
// balance. The requested amount sits in the balance's pending bucket until
// an admin completes or rejects the request; both transitions are terminal.
type WithdrawalRequest struct {
	ID       uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null;index"`
	Vendor   *VendorProfile         `gorm:"foreignKey:VendorID"`
	Amount   decimal.Decimal        `gorm:"column:amount;type:numeric(12,2);not null"`
	Status   enums.WithdrawalStatus `gorm:"column:status;type:withdrawal_status;not null;default:'pending'"`
	// PayoutDetails is free-form destination info supplied by the vendor,
	// e.g. bank account or UPI handle.
	PayoutDetails string     `gorm:"column:payout_details"`
	DecisionNote  string     `gorm:"column:decision_note"`
	ProcessedBy   *uuid.UUID `gorm:"column:processed_by;type:uuid"`
	ProcessedAt   *time.Time `gorm:"column:processed_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
