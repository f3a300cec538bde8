package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/topcenter/portal-realtime/internal/core/domain"
	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
	"github.com/topcenter/portal-realtime/internal/core/ports"
	"github.com/topcenter/portal-realtime/internal/infrastructure/logging"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size allowed from peer. Large enough for a full chat message.
	maxMessageSize = 16 * 1024

	// Time allowed to persist one inbound message.
	handleTimeout = 5 * time.Second
)

// ClientOptions holds the per-connection settings.
type ClientOptions struct {
	// MessagesPerSecond and Burst bound inbound chat_message frames.
	MessagesPerSecond float64
	Burst             int
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// ID distinguishes connections of the same user.
	ID uuid.UUID

	// The websocket connection.
	Conn *websocket.Conn

	// Buffered channel of outbound envelopes.
	Send chan domain.Envelope

	// Authenticated identity of the connection.
	UserID         string
	Role           domain.Sender
	ConversationID string

	chat    ports.ChatService
	limiter *rate.Limiter

	// closed guards Send against writes after CloseSend
	closed bool
	mu     sync.Mutex

	// logger for this client
	logger *slog.Logger
}

// NewClient creates a new WebSocket client
func NewClient(
	hub *Hub,
	conn *websocket.Conn,
	chat ports.ChatService,
	userID string,
	role domain.Sender,
	conversationID string,
	opts ClientOptions,
	logger *slog.Logger,
) *Client {
	id := uuid.New()
	limit := rate.Inf
	if opts.MessagesPerSecond > 0 {
		limit = rate.Limit(opts.MessagesPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		Hub:            hub,
		ID:             id,
		Conn:           conn,
		Send:           make(chan domain.Envelope, 256),
		UserID:         userID,
		Role:           role,
		ConversationID: conversationID,
		chat:           chat,
		limiter:        rate.NewLimiter(limit, burst),
		logger: logger.With(
			"user_id", userID,
			"conversation_id", conversationID,
			"client_id", id.String(),
		),
	}
}

// Start registers the client and launches its I/O pumps.
func (c *Client) Start() {
	if !c.Hub.register(c) {
		_ = c.Conn.Close()
		return
	}
	go c.WritePump()
	go c.ReadPump()
}

// CloseSend safely closes the Send channel exactly once
func (c *Client) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// trySend queues an envelope for this connection only. It never blocks.
func (c *Client) trySend(env domain.Envelope) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- env:
		return true
	default:
		return false
	}
}

// ReadPump pumps messages from the websocket connection to the chat service.
// This method runs in its own goroutine.
func (c *Client) ReadPump() {
	defer func() {
		if r := recover(); r != nil {
			logging.LogPanic(c.logger, r)
		}
		c.Hub.unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}

	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
			c.logger.Error("failed to set read deadline in pong handler", "error", err)
		}
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			break
		}

		c.handleIncomingMessage(message)
	}
}

// WritePump pumps envelopes from the hub to the websocket connection.
// This method runs in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}

			if !ok {
				// The hub closed the channel. Send close message.
				if err := c.Conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
					c.logger.Debug("failed to send close message", "error", err)
				}
				return
			}

			if err := c.writeJSON(env); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}

			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}
		}
	}
}

// writeJSON writes one envelope as a single text frame
func (c *Client) writeJSON(env domain.Envelope) error {
	w, err := c.Conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}

	if err := json.NewEncoder(w).Encode(env); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// --- Incoming Message Handling ---

// handleIncomingMessage processes frames received from the client
func (c *Client) handleIncomingMessage(message []byte) {
	env, err := domain.DecodeEnvelope(message)
	if err != nil {
		c.logger.Warn("failed to decode client frame", "error", err)
		return
	}

	switch env.Type {
	case domain.EnvelopeChatMessage:
		if !c.limiter.Allow() {
			c.logger.Warn("inbound message rate limit exceeded", "envelope_id", env.ID)
			c.replyStatus("rate_limited", "Trop de messages, veuillez patienter.")
			return
		}
		c.handleChatMessage(env)

	default:
		c.logger.Debug("received unsupported envelope type", "type", env.Type)
	}
}

func (c *Client) handleChatMessage(env domain.Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	ctx = logging.WithUserID(ctx, c.UserID)
	ctx = logging.WithConversationID(ctx, c.ConversationID)

	_, err := c.chat.HandleInbound(ctx, ports.InboundMessageParams{
		ConversationID: c.ConversationID,
		Sender:         c.Role,
		ClientID:       c.ID,
		Envelope:       env,
	})
	if err == nil {
		return
	}

	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, apperrors.ErrMessageContentRequired),
		errors.Is(err, apperrors.ErrMessageContentTooLong),
		errors.As(err, &appErr):
		c.logger.Warn("rejected chat message", "envelope_id", env.ID, "error", err)
		c.replyStatus("rejected", "Message refusé : "+err.Error())
	default:
		c.logger.ErrorContext(ctx, "failed to handle chat message", "envelope_id", env.ID, "error", err)
		c.replyStatus("error", "Le message n'a pas pu être enregistré.")
	}
}

// replyStatus sends a status_update to this connection only.
func (c *Client) replyStatus(status, message string) {
	env, err := domain.NewStatusEnvelope(domain.StatusUpdateData{Status: status, Message: message})
	if err != nil {
		return
	}
	if !c.trySend(env) {
		c.logger.Debug("dropped status reply", "status", status)
	}
}
