package controllers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/templeconnect/backend/api/responses"
	"github.com/templeconnect/backend/internal/chat"
	"github.com/templeconnect/backend/internal/ws"
	"github.com/templeconnect/backend/pkg/config"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
	"github.com/templeconnect/backend/pkg/logger"
)

// ChatStream upgrades the request to a websocket and streams new messages for
// one conversation. The socket is receive-only; sends go through the REST
// endpoint so they are persisted before fan-out.
func ChatStream(svc chat.Service, hub *ws.Hub, cfg config.ChatConfig, logg *logger.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		// The bearer token already gates access; cross-origin browser
		// clients are expected.
		CheckOrigin: func(*http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || hub == nil {
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
		if err := svc.AuthorizeParticipant(r.Context(), conversationID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the handshake failure to the client.
			logg.Warn(r.Context(), "websocket upgrade failed: "+err.Error())
			return
		}

		client := ws.NewClient(conn, hub, conversationID, actor.UserID, cfg)
		hub.Register(client)
		client.Run(r.Context())
	}
}
