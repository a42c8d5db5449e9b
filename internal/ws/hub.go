package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/templeconnect/backend/pkg/logger"
)

// Frame is the wire shape pushed to websocket subscribers.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type envelope struct {
	conversationID uuid.UUID
	payload        []byte
}

// Hub fans chat messages out to the clients attached to each conversation.
// The subscriber map is owned by the Run loop, so registration, removal and
// delivery never race. Delivery is at most once while connected; clients
// catch up from the message rows on reconnect.
type Hub struct {
	subscribers map[uuid.UUID]map[*Client]struct{}
	register    chan *Client
	unregister  chan *Client
	broadcast   chan envelope
	done        chan struct{}
	logg        *logger.Logger
}

// NewHub builds an idle hub. Call Run to start delivery.
func NewHub(logg *logger.Logger) *Hub {
	return &Hub{
		subscribers: make(map[uuid.UUID]map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan envelope, 32),
		done:        make(chan struct{}),
		logg:        logg,
	}
}

// Run owns the subscriber map until the context is cancelled. After it
// returns, Register, Unregister and Broadcast become no-ops instead of
// blocking the pumps of still-connected clients.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Register attaches a client to its conversation.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister detaches a client. Safe to call more than once.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast pushes a payload to every client attached to the conversation.
func (h *Hub) Broadcast(conversationID uuid.UUID, payload any) {
	raw, err := json.Marshal(Frame{Type: "chat.message", Data: payload})
	if err != nil {
		if h.logg != nil {
			h.logg.Warn(context.Background(), "drop undeliverable ws payload: "+err.Error())
		}
		return
	}
	select {
	case h.broadcast <- envelope{conversationID: conversationID, payload: raw}:
	case <-h.done:
	}
}

func (h *Hub) addClient(client *Client) {
	set, ok := h.subscribers[client.conversationID]
	if !ok {
		set = make(map[*Client]struct{})
		h.subscribers[client.conversationID] = set
	}
	set[client] = struct{}{}
}

func (h *Hub) removeClient(client *Client) {
	set, ok := h.subscribers[client.conversationID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.subscribers, client.conversationID)
	}
}

func (h *Hub) deliver(msg envelope) {
	for client := range h.subscribers[msg.conversationID] {
		select {
		case client.send <- msg.payload:
		default:
			// A full buffer means the client stopped draining. Evict it
			// rather than stall the whole conversation.
			h.removeClient(client)
		}
	}
}
