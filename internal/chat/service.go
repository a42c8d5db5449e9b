package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/pkg/db"
	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
	"github.com/templeconnect/backend/pkg/outbox"
	"github.com/templeconnect/backend/pkg/outbox/payloads"
	"github.com/templeconnect/backend/pkg/pagination"
)

const previewLength = 80

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// broadcaster pushes a payload to everyone attached to a conversation.
// Delivery is best effort; the rows are the source of truth.
type broadcaster interface {
	Broadcast(conversationID uuid.UUID, payload any)
}

// Actor identifies who is performing a chat operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.MemberRole
}

// Service exposes the support chat lifecycle.
type Service interface {
	CreateConversation(ctx context.Context, userID uuid.UUID, subject string) (*ConversationDTO, error)
	SendMessage(ctx context.Context, input SendInput) (*MessageDTO, error)
	MarkRead(ctx context.Context, conversationID uuid.UUID, actor Actor) (int64, error)
	CloseConversation(ctx context.Context, conversationID, adminID uuid.UUID) (*ConversationDTO, error)
	ListConversations(ctx context.Context, params ListConversationsParams) ([]ConversationDTO, *pagination.Cursor, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, actor Actor, limit int, cursor *pagination.Cursor) ([]MessageDTO, *pagination.Cursor, error)
	UnreadCount(ctx context.Context, actor Actor) (int64, error)
	AuthorizeParticipant(ctx context.Context, conversationID uuid.UUID, actor Actor) error
}

// SendInput carries one outgoing message.
type SendInput struct {
	ConversationID uuid.UUID
	Actor          Actor
	Body           string
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outboxPublisher
	hub    broadcaster
	now    func() time.Time
}

// NewService builds a chat service with the provided dependencies.
func NewService(repo *Repository, tx txRunner, ob outboxPublisher, hub broadcaster) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("chat repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if hub == nil {
		return nil, fmt.Errorf("broadcaster required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: ob,
		hub:    hub,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) CreateConversation(ctx context.Context, userID uuid.UUID, subject string) (*ConversationDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subject is required")
	}

	existing, err := s.repo.FindOpenByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check open conversation")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already has an open conversation")
	}

	conversation := &models.ChatConversation{
		ID:      uuid.New(),
		UserID:  userID,
		Subject: subject,
		Status:  enums.ConversationStatusOpen,
	}
	if err := s.repo.CreateConversation(ctx, conversation); err != nil {
		// The partial unique index closes the race between two simultaneous opens.
		if db.IsUniqueViolation(err, "idx_chat_conversations_user_open") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already has an open conversation")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create conversation")
	}
	return ConversationFromModel(conversation), nil
}

func (s *service) SendMessage(ctx context.Context, input SendInput) (*MessageDTO, error) {
	body := strings.TrimSpace(input.Body)
	if body == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message body required")
	}

	conversation, err := s.loadConversation(ctx, input.ConversationID)
	if err != nil {
		return nil, err
	}
	if err := requireParticipant(conversation, input.Actor); err != nil {
		return nil, err
	}
	if conversation.Status != enums.ConversationStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "conversation is closed")
	}

	now := s.now()
	message := &models.ChatMessage{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		SenderID:       input.Actor.UserID,
		Body:           body,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		bound := s.repo.WithTx(tx)
		if txErr := bound.CreateMessage(ctx, message); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "create message")
		}
		// The pre-transaction status check ran on a snapshot; the
		// conditional touch re-verifies it against the live row so a
		// concurrent close rolls this send back.
		touched, txErr := bound.TouchLastMessage(ctx, conversation.ID, now)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "touch conversation")
		}
		if !touched {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "conversation is closed")
		}
		// Admin replies notify the thread owner. Owner messages surface
		// through the admin inbox ordering instead.
		if input.Actor.Role == enums.MemberRoleAdmin {
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventChatMessageSent,
				AggregateType: enums.AggregateConversation,
				AggregateID:   conversation.ID,
				Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
				Data: payloads.ChatMessageSentEvent{
					ConversationID: conversation.ID,
					MessageID:      message.ID,
					SenderID:       input.Actor.UserID,
					RecipientID:    conversation.UserID,
					Preview:        preview(body),
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := MessageFromModel(message)
	s.hub.Broadcast(conversation.ID, dto)
	return dto, nil
}

func (s *service) MarkRead(ctx context.Context, conversationID uuid.UUID, actor Actor) (int64, error) {
	conversation, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if err := requireParticipant(conversation, actor); err != nil {
		return 0, err
	}
	updated, err := s.repo.MarkRead(ctx, conversationID, actor.UserID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark messages read")
	}
	return updated, nil
}

func (s *service) CloseConversation(ctx context.Context, conversationID, adminID uuid.UUID) (*ConversationDTO, error) {
	conversation, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		closed, txErr := s.repo.WithTx(tx).CloseConversation(ctx, conversation.ID, adminID, now)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "close conversation")
		}
		if !closed {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "conversation is not open")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventConversationClosed,
			AggregateType: enums.AggregateConversation,
			AggregateID:   conversation.ID,
			Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.MemberRoleAdmin)},
			Data: payloads.ConversationClosedEvent{
				ConversationID: conversation.ID,
				UserID:         conversation.UserID,
				ClosedBy:       adminID,
				ClosedAt:       now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	conversation.Status = enums.ConversationStatusClosed
	conversation.ClosedBy = &adminID
	conversation.ClosedAt = &now
	return ConversationFromModel(conversation), nil
}

func (s *service) ListConversations(ctx context.Context, params ListConversationsParams) ([]ConversationDTO, *pagination.Cursor, error) {
	rows, next, err := s.repo.ListConversations(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list conversations")
	}
	out := make([]ConversationDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, *ConversationFromModel(&row))
	}
	return out, next, nil
}

func (s *service) ListMessages(ctx context.Context, conversationID uuid.UUID, actor Actor, limit int, cursor *pagination.Cursor) ([]MessageDTO, *pagination.Cursor, error) {
	conversation, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if err := requireParticipant(conversation, actor); err != nil {
		return nil, nil, err
	}
	rows, next, err := s.repo.ListMessages(ctx, ListMessagesParams{
		ConversationID: conversationID,
		Limit:          limit,
		Cursor:         cursor,
	})
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list messages")
	}
	out := make([]MessageDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, *MessageFromModel(&row))
	}
	return out, next, nil
}

func (s *service) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	if actor.UserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	// Admins share the support inbox, so their badge counts every unread
	// user message rather than messages in threads they own.
	if actor.Role == enums.MemberRoleAdmin {
		count, err := s.repo.UnreadCountForAdmin(ctx)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
		}
		return count, nil
	}
	count, err := s.repo.UnreadCount(ctx, actor.UserID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread messages")
	}
	return count, nil
}

// AuthorizeParticipant checks stream access without touching any rows. The
// websocket upgrade path calls this before attaching a client to the hub.
func (s *service) AuthorizeParticipant(ctx context.Context, conversationID uuid.UUID, actor Actor) error {
	conversation, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	return requireParticipant(conversation, actor)
}

func (s *service) loadConversation(ctx context.Context, conversationID uuid.UUID) (*models.ChatConversation, error) {
	if conversationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "conversation id is required")
	}
	conversation, err := s.repo.FindConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "conversation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load conversation")
	}
	return conversation, nil
}

func requireParticipant(conversation *models.ChatConversation, actor Actor) error {
	if actor.UserID == conversation.UserID || actor.Role == enums.MemberRoleAdmin {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not a participant in this conversation")
}

// preview truncates on a rune boundary so multi-byte text stays valid UTF-8.
func preview(body string) string {
	if len(body) <= previewLength {
		return body
	}
	runes := []rune(body)
	if len(runes) <= previewLength {
		return body
	}
	return string(runes[:previewLength])
}
