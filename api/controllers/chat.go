package controllers

import (
	"net/http"
	"strings"

	"github.com/templeconnect/backend/api/middleware"
	"github.com/templeconnect/backend/api/responses"
	"github.com/templeconnect/backend/api/validators"
	"github.com/templeconnect/backend/internal/chat"
	"github.com/templeconnect/backend/pkg/enums"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
	"github.com/templeconnect/backend/pkg/logger"
)

type createConversationRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
}

type sendMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

func chatActor(r *http.Request) (chat.Actor, error) {
	userID, err := actorID(r)
	if err != nil {
		return chat.Actor{}, err
	}
	role, err := enums.ParseMemberRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return chat.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing authentication")
	}
	return chat.Actor{UserID: userID, Role: role}, nil
}

// CreateConversation opens a support thread for the caller.
func CreateConversation(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createConversationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conversation, err := svc.CreateConversation(r.Context(), userID, validators.SanitizeString(body.Subject, 200))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, conversation)
	}
}

// SendChatMessage appends a message to an open conversation.
func SendChatMessage(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		actor, err := chatActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		conversationID, err := pathUUID(r, "conversationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body sendMessageRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message, err := svc.SendMessage(r.Context(), chat.SendInput{
			ConversationID: conversationID,
			Actor:          actor,
			Body:           body.Body,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, message)
	}
}

// ListConversations pages through the caller's own threads.
func ListConversations(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := chat.ListConversationsParams{UserID: &userID, Limit: limit, Cursor: cursor}
		if status, err := conversationStatusFilter(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if status != nil {
			params.Status = status
		}

		items, next, err := svc.ListConversations(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagedResponse(items, next))
	}
}

// ListChatMessages pages through one conversation, oldest first.
func ListChatMessages(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		actor, err := chatActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		conversationID, err := pathUUID(r, "conversationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, next, err := svc.ListMessages(r.Context(), conversationID, actor, limit, cursor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagedResponse(items, next))
	}
}

// MarkConversationRead clears the caller's unread counter for a thread.
func MarkConversationRead(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		actor, err := chatActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		conversationID, err := pathUUID(r, "conversationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.MarkRead(r.Context(), conversationID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"marked_read": updated})
	}
}

// ChatUnreadCount returns the caller's total unread messages.
func ChatUnreadCount(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		actor, err := chatActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		count, err := svc.UnreadCount(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"unread": count})
	}
}

// AdminListConversations lists support threads platform-wide.
func AdminListConversations(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := chat.ListConversationsParams{Limit: limit, Cursor: cursor}
		if status, err := conversationStatusFilter(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if status != nil {
			params.Status = status
		}

		items, next, err := svc.ListConversations(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagedResponse(items, next))
	}
}

// AdminCloseConversation marks a thread resolved. Closed threads stay closed.
func AdminCloseConversation(svc chat.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "chat service unavailable"))
			return
		}

		adminID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		conversationID, err := pathUUID(r, "conversationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conversation, err := svc.CloseConversation(r.Context(), conversationID, adminID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, conversation)
	}
}

func conversationStatusFilter(r *http.Request) (*enums.ConversationStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParseConversationStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid conversation status filter")
	}
	return &status, nil
}
