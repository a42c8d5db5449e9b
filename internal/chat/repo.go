package chat

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	"github.com/templeconnect/backend/pkg/pagination"
)

// Repository handles support conversation persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to chat operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListConversationsParams narrow one page of the conversation inbox.
type ListConversationsParams struct {
	UserID *uuid.UUID
	Status *enums.ConversationStatus
	Limit  int
	Cursor *pagination.Cursor
}

// ListMessagesParams page through one conversation's messages, oldest first.
type ListMessagesParams struct {
	ConversationID uuid.UUID
	Limit          int
	Cursor         *pagination.Cursor
}

// CreateConversation persists a new thread.
func (r *Repository) CreateConversation(ctx context.Context, conversation *models.ChatConversation) error {
	return r.db.WithContext(ctx).Create(conversation).Error
}

// FindConversation loads a conversation by its UUID.
func (r *Repository) FindConversation(ctx context.Context, id uuid.UUID) (*models.ChatConversation, error) {
	var conversation models.ChatConversation
	if err := r.db.WithContext(ctx).First(&conversation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conversation, nil
}

// FindOpenByUser returns the user's open thread, or nil when there is none.
func (r *Repository) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*models.ChatConversation, error) {
	var conversation models.ChatConversation
	err := r.db.WithContext(ctx).
		First(&conversation, "user_id = ? AND status = ?", userID, enums.ConversationStatusOpen).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conversation, nil
}

// CloseConversation flips an open thread to closed. It only succeeds when the
// thread is still open, so concurrent admins resolve to a single winner.
func (r *Repository) CloseConversation(ctx context.Context, id, closedBy uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ChatConversation{}).
		Where("id = ? AND status = ?", id, enums.ConversationStatusOpen).
		Updates(map[string]any{
			"status":    enums.ConversationStatusClosed,
			"closed_by": closedBy,
			"closed_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// CreateMessage persists one message row.
func (r *Repository) CreateMessage(ctx context.Context, message *models.ChatMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// TouchLastMessage bumps the inbox ordering columns after a send. It only
// matches an open thread, so a send racing an admin close reports a miss and
// the caller rolls the message back.
func (r *Repository) TouchLastMessage(ctx context.Context, conversationID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ChatConversation{}).
		Where("id = ? AND status = ?", conversationID, enums.ConversationStatusOpen).
		Updates(map[string]any{"last_message_at": at, "updated_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkRead flips unread messages the viewer did not send. Already-read rows
// are untouched, so replays are free.
func (r *Repository) MarkRead(ctx context.Context, conversationID, viewerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, viewerID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// UnreadCount tallies unread messages addressed to the viewer across their
// own conversations.
func (r *Repository) UnreadCount(ctx context.Context, viewerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Joins("JOIN chat_conversations ON chat_conversations.id = chat_messages.conversation_id").
		Where("chat_conversations.user_id = ?", viewerID).
		Where("chat_messages.sender_id <> ? AND chat_messages.is_read = ?", viewerID, false).
		Count(&count).Error
	return count, err
}

// UnreadCountForAdmin tallies unread user messages across the whole support
// inbox. Admins share one pool, so the count is not scoped per admin.
func (r *Repository) UnreadCountForAdmin(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Joins("JOIN chat_conversations ON chat_conversations.id = chat_messages.conversation_id").
		Where("chat_messages.sender_id = chat_conversations.user_id AND chat_messages.is_read = ?", false).
		Count(&count).Error
	return count, err
}

// ListConversations returns threads newest first, scoped by the filters.
func (r *Repository) ListConversations(ctx context.Context, params ListConversationsParams) ([]models.ChatConversation, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.ChatConversation{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.ChatConversation
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	if len(rows) > normalized {
		last := rows[normalized-1]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

// ListMessages returns one conversation's messages in send order.
func (r *Repository) ListMessages(ctx context.Context, params ListMessagesParams) ([]models.ChatMessage, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("conversation_id = ?", params.ConversationID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) > (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.ChatMessage
	if err := query.Order("created_at ASC, id ASC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	if len(rows) > normalized {
		last := rows[normalized-1]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}
