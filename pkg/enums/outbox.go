package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateVendorBalance OutboxAggregateType = "vendor_balance"
	AggregateWithdrawal    OutboxAggregateType = "withdrawal_request"
	AggregateVendor        OutboxAggregateType = "vendor_profile"
	AggregateOrder         OutboxAggregateType = "order"
	AggregateBooking       OutboxAggregateType = "booking"
	AggregateConversation  OutboxAggregateType = "conversation"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateVendorBalance,
	AggregateWithdrawal,
	AggregateVendor,
	AggregateOrder,
	AggregateBooking,
	AggregateConversation,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventEarningsAccrued     OutboxEventType = "earnings_accrued"
	EventWithdrawalRequested OutboxEventType = "withdrawal_requested"
	EventWithdrawalProcessed OutboxEventType = "withdrawal_processed"
	EventBalanceAdjusted     OutboxEventType = "balance_adjusted"
	EventVendorReviewed      OutboxEventType = "vendor_reviewed"
	EventOrderPlaced         OutboxEventType = "order_placed"
	EventOrderStateChanged   OutboxEventType = "order_state_changed"
	EventBookingCreated      OutboxEventType = "booking_created"
	EventBookingCancelled    OutboxEventType = "booking_cancelled"
	EventChatMessageSent     OutboxEventType = "chat_message_sent"
	EventConversationClosed  OutboxEventType = "conversation_closed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventEarningsAccrued,
	EventWithdrawalRequested,
	EventWithdrawalProcessed,
	EventBalanceAdjusted,
	EventVendorReviewed,
	EventOrderPlaced,
	EventOrderStateChanged,
	EventBookingCreated,
	EventBookingCancelled,
	EventChatMessageSent,
	EventConversationClosed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
