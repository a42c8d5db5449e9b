package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/templeconnect/backend/pkg/enums"
)

// ChatConversation is a support thread between one user and the admin team.
// A user has at most one open conversation at a time; closing is terminal
// and a new question starts a new thread.
type ChatConversation struct {
	ID      uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID  uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	User    *User                    `gorm:"foreignKey:UserID"`
	Subject string                   `gorm:"column:subject"`
	Status  enums.ConversationStatus `gorm:"column:status;type:conversation_status;not null;default:'open'"`
	// LastMessageAt orders the admin inbox without joining messages.
	LastMessageAt *time.Time `gorm:"column:last_message_at"`
	ClosedBy      *uuid.UUID `gorm:"column:closed_by;type:uuid"`
	ClosedAt      *time.Time `gorm:"column:closed_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
