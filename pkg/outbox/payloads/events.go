package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/templeconnect/backend/pkg/enums"
)

// EarningsAccruedEvent is emitted when a delivered order credits a vendor.
type EarningsAccruedEvent struct {
	VendorID       uuid.UUID       `json:"vendor_id"`
	Amount         decimal.Decimal `json:"amount"`
	LedgerEntryID  uuid.UUID       `json:"ledger_entry_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	OrderID        *uuid.UUID      `json:"order_id,omitempty"`
}

// WithdrawalRequestedEvent signals a vendor asked for a payout.
type WithdrawalRequestedEvent struct {
	WithdrawalID uuid.UUID       `json:"withdrawal_id"`
	VendorID     uuid.UUID       `json:"vendor_id"`
	Amount       decimal.Decimal `json:"amount"`
}

// WithdrawalProcessedEvent reports the admin decision on a withdrawal.
type WithdrawalProcessedEvent struct {
	WithdrawalID uuid.UUID              `json:"withdrawal_id"`
	VendorID     uuid.UUID              `json:"vendor_id"`
	VendorUserID uuid.UUID              `json:"vendor_user_id"`
	Amount       decimal.Decimal        `json:"amount"`
	Status       enums.WithdrawalStatus `json:"status"`
	DecisionNote string                 `json:"decision_note,omitempty"`
}

// BalanceAdjustedEvent is emitted for manual admin corrections.
type BalanceAdjustedEvent struct {
	VendorID      uuid.UUID       `json:"vendor_id"`
	Amount        decimal.Decimal `json:"amount"`
	LedgerEntryID uuid.UUID       `json:"ledger_entry_id"`
	Note          string          `json:"note,omitempty"`
}

// VendorReviewedEvent reports an admin decision on a vendor application.
type VendorReviewedEvent struct {
	VendorID     uuid.UUID          `json:"vendor_id"`
	VendorUserID uuid.UUID          `json:"vendor_user_id"`
	Status       enums.VendorStatus `json:"status"`
	ReviewNote   string             `json:"review_note,omitempty"`
}

// OrderPlacedEvent signals a new product order.
type OrderPlacedEvent struct {
	OrderID      uuid.UUID       `json:"order_id"`
	UserID       uuid.UUID       `json:"user_id"`
	VendorID     uuid.UUID       `json:"vendor_id"`
	VendorUserID uuid.UUID       `json:"vendor_user_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	Total        decimal.Decimal `json:"total"`
}

// OrderStateChangedEvent is emitted on every order status transition.
type OrderStateChangedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	UserID       uuid.UUID         `json:"user_id"`
	VendorID     uuid.UUID         `json:"vendor_id"`
	VendorUserID uuid.UUID         `json:"vendor_user_id"`
	From         enums.OrderStatus `json:"from"`
	To           enums.OrderStatus `json:"to"`
	DeliveredAt  *time.Time        `json:"delivered_at,omitempty"`
}

// BookingCreatedEvent signals a confirmed temple visit.
type BookingCreatedEvent struct {
	BookingID uuid.UUID       `json:"booking_id"`
	UserID    uuid.UUID       `json:"user_id"`
	TempleID  uuid.UUID       `json:"temple_id"`
	VisitDate time.Time       `json:"visit_date"`
	Amount    decimal.Decimal `json:"amount"`
}

// BookingCancelledEvent is emitted when a booking is cancelled.
type BookingCancelledEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	UserID      uuid.UUID `json:"user_id"`
	TempleID    uuid.UUID `json:"temple_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}

// ChatMessageSentEvent fans a support message out to the other side.
type ChatMessageSentEvent struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	RecipientID    uuid.UUID `json:"recipient_id"`
	Preview        string    `json:"preview,omitempty"`
}

// ConversationClosedEvent is emitted when an admin closes a thread.
type ConversationClosedEvent struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
	ClosedBy       uuid.UUID `json:"closed_by"`
	ClosedAt       time.Time `json:"closed_at"`
}
