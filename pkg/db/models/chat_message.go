package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one message in a support conversation. IsRead only moves
// false to true; marking read is idempotent.
type ChatMessage struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ConversationID uuid.UUID         `gorm:"column:conversation_id;type:uuid;not null;index:idx_chat_messages_conv_created"`
	Conversation   *ChatConversation `gorm:"foreignKey:ConversationID"`
	SenderID       uuid.UUID         `gorm:"column:sender_id;type:uuid;not null"`
	Sender         *User             `gorm:"foreignKey:SenderID"`
	Body           string            `gorm:"column:body;not null"`
	IsRead         bool              `gorm:"column:is_read;not null;default:false"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime;index:idx_chat_messages_conv_created"`
}
