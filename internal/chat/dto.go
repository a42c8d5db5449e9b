package chat

import (
	"time"

	"github.com/google/uuid"

	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
)

// ConversationDTO is the API-facing shape of a support thread.
type ConversationDTO struct {
	ID            uuid.UUID                `json:"id"`
	UserID        uuid.UUID                `json:"user_id"`
	Subject       string                   `json:"subject"`
	Status        enums.ConversationStatus `json:"status"`
	LastMessageAt *time.Time               `json:"last_message_at,omitempty"`
	ClosedBy      *uuid.UUID               `json:"closed_by,omitempty"`
	ClosedAt      *time.Time               `json:"closed_at,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// MessageDTO is the API-facing shape of one chat message.
type MessageDTO struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Body           string    `json:"body"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationFromModel maps a conversation row to its DTO.
func ConversationFromModel(conversation *models.ChatConversation) *ConversationDTO {
	return &ConversationDTO{
		ID:            conversation.ID,
		UserID:        conversation.UserID,
		Subject:       conversation.Subject,
		Status:        conversation.Status,
		LastMessageAt: conversation.LastMessageAt,
		ClosedBy:      conversation.ClosedBy,
		ClosedAt:      conversation.ClosedAt,
		CreatedAt:     conversation.CreatedAt,
		UpdatedAt:     conversation.UpdatedAt,
	}
}

// MessageFromModel maps a message row to its DTO.
func MessageFromModel(message *models.ChatMessage) *MessageDTO {
	return &MessageDTO{
		ID:             message.ID,
		ConversationID: message.ConversationID,
		SenderID:       message.SenderID,
		Body:           message.Body,
		IsRead:         message.IsRead,
		CreatedAt:      message.CreatedAt,
	}
}
