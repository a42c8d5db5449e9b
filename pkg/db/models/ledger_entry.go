package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/templeconnect/backend/pkg/enums"
)

// LedgerEntry is one append-only line in a vendor's money history. Entries
// are never updated or deleted; corrections are new admin_adjustment rows.
//
// IdempotencyKey dedupes accruals and adjustments: the unique index on
// (vendor_id, idempotency_key) makes a replayed credit a no-op at the
// database level.
type LedgerEntry struct {
	ID       uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null;index:idx_ledger_entries_vendor_key,unique,priority:1;index:idx_ledger_entries_vendor_created"`
	Type     enums.LedgerEntryType `gorm:"column:type;type:ledger_entry_type;not null"`
	// Amount is signed: credits positive, debits negative.
	Amount         decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	IdempotencyKey string          `gorm:"column:idempotency_key;not null;index:idx_ledger_entries_vendor_key,unique,priority:2"`
	// Reference points at the row that caused the entry, e.g. an order or a
	// withdrawal request.
	ReferenceID *uuid.UUID `gorm:"column:reference_id;type:uuid"`
	Note        string     `gorm:"column:note"`
	// Snapshot of the balance after applying this entry, for audit reads
	// without replaying the ledger.
	TotalAfter     decimal.Decimal `gorm:"column:total_after;type:numeric(12,2);not null"`
	AvailableAfter decimal.Decimal `gorm:"column:available_after;type:numeric(12,2);not null"`
	PendingAfter   decimal.Decimal `gorm:"column:pending_after;type:numeric(12,2);not null"`
	WithdrawnAfter decimal.Decimal `gorm:"column:withdrawn_after;type:numeric(12,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime;index:idx_ledger_entries_vendor_created"`
}
