package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/topcenter/portal-realtime/internal/core/domain"
	"github.com/topcenter/portal-realtime/internal/core/ports"
)

// Hub maintains the set of active Clients and broadcasts envelopes to them.
type Hub struct {
	// rooms maps conversation IDs to their connected clients.
	// One user can hold several connections (tabs, devices) in the same room.
	rooms map[string]map[*Client]bool

	// Broadcast channel for events
	broadcast chan domain.Event

	// Register requests from clients
	Register chan *Client

	// Unregister requests from clients
	Unregister chan *Client

	// done is closed once Run has returned
	done chan struct{}

	// mu protects the rooms map
	mu sync.RWMutex

	// logger for the hub
	logger *slog.Logger
}

// Ensure Hub implements the EventBroadcaster interface.
var _ ports.EventBroadcaster = (*Hub)(nil)

// NewHub creates a new WebSocket hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan domain.Event, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.With("component", "websocket_hub"),
	}
}

// Broadcast sends an event to the hub's internal broadcast channel.
// This method implements the ports.EventBroadcaster interface.
func (h *Hub) Broadcast(event domain.Event) error {
	select {
	case h.broadcast <- event:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event",
			"envelope_type", event.Envelope.Type,
			"conversation_id", event.ConversationID,
		)
		return nil
	}
}

// Run starts the hub's event loop until ctx is done. This MUST be run as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.broadcastEvent(event)

		case <-ctx.Done():
			h.shutdown()
			close(h.done)
			return
		}
	}
}

// register hands a client to the event loop. It returns false once the hub has stopped.
func (h *Hub) register(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// unregister hands a client to the event loop, or does nothing once the hub has stopped.
func (h *Hub) unregister(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// registerClient adds a client to its conversation room
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[client.ConversationID] == nil {
		h.rooms[client.ConversationID] = make(map[*Client]bool)
	}
	h.rooms[client.ConversationID][client] = true

	h.logger.Info("client registered",
		"user_id", client.UserID,
		"conversation_id", client.ConversationID,
		"room_size", len(h.rooms[client.ConversationID]),
	)
}

// unregisterClient removes a client from its room
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)

	h.logger.Info("client unregistered",
		"user_id", client.UserID,
		"conversation_id", client.ConversationID,
	)
}

func (h *Hub) removeLocked(client *Client) {
	if room, ok := h.rooms[client.ConversationID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.ConversationID)
		}
	}

	// Safely close the send channel
	client.CloseSend()
}

// broadcastEvent sends an event to every client of the room except its origin
func (h *Hub) broadcastEvent(event domain.Event) {
	h.mu.RLock()
	room, ok := h.rooms[event.ConversationID]
	if !ok {
		h.mu.RUnlock()
		return
	}

	// Copy the client list to avoid holding the lock while sending
	clients := make([]*Client, 0, len(room))
	for client := range room {
		if client.ID == event.OriginClientID {
			continue
		}
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	h.logger.Debug("broadcasting event",
		"envelope_type", event.Envelope.Type,
		"conversation_id", event.ConversationID,
		"client_count", len(clients),
	)

	for _, client := range clients {
		if !client.trySend(event.Envelope) {
			// Client's send buffer is full, drop it. Its read pump will
			// still send an Unregister, which is then a no-op.
			h.logger.Warn("client send buffer full, unregistering",
				"user_id", client.UserID,
				"conversation_id", client.ConversationID,
			)
			h.unregisterClient(client)
		}
	}
}

// shutdown closes every client's send channel so write pumps send a close frame.
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range h.rooms {
		for client := range room {
			h.removeLocked(client)
		}
	}
	h.logger.Info("websocket hub stopped")
}

// GetClientCount returns the total number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, room := range h.rooms {
		count += len(room)
	}
	return count
}

// GetRoomCount returns the number of active conversation rooms
func (h *Hub) GetRoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// GetClientsInRoom returns the number of clients connected to a conversation
func (h *Hub) GetClientsInRoom(conversationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if room, ok := h.rooms[conversationID]; ok {
		return len(room)
	}
	return 0
}
