package enums

import "fmt"

// ConversationStatus maps to the conversation_status enum in Postgres.
type ConversationStatus string

const (
	ConversationStatusOpen   ConversationStatus = "open"
	ConversationStatusClosed ConversationStatus = "closed"
)

var validConversationStatuses = []ConversationStatus{
	ConversationStatusOpen,
	ConversationStatusClosed,
}

// IsValid reports whether the value matches the canonical conversation_status enum.
func (s ConversationStatus) IsValid() bool {
	for _, candidate := range validConversationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseConversationStatus converts raw input into ConversationStatus.
func ParseConversationStatus(value string) (ConversationStatus, error) {
	for _, candidate := range validConversationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid conversation status %q", value)
}
