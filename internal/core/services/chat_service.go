package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/topcenter/portal-realtime/internal/core/domain"
	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
	"github.com/topcenter/portal-realtime/internal/core/ports"
)

const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
)

// ChatService implements the gateway side of the conversation protocol.
type ChatService struct {
	messageRepo ports.MessageRepository
	broadcaster ports.EventBroadcaster
	now         func() time.Time
	logger      *slog.Logger
}

// Ensure implementation matches the interface.
var _ ports.ChatService = (*ChatService)(nil)

// NewChatService creates a new service for conversation logic.
func NewChatService(
	messageRepo ports.MessageRepository,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) *ChatService {
	return &ChatService{
		messageRepo: messageRepo,
		broadcaster: broadcaster,
		now:         time.Now,
		logger:      logger.With("component", "chat_service"),
	}
}

// HandleInbound persists a chat_message sent by a connected client and relays
// it to the other members of the room. The sender label is always taken from
// the authenticated connection, never from the frame.
func (s *ChatService) HandleInbound(ctx context.Context, params ports.InboundMessageParams) (*domain.ChatMessage, error) {
	if params.ConversationID == "" {
		return nil, apperrors.ErrConversationRequired
	}
	if params.Envelope.Type != domain.EnvelopeChatMessage {
		return nil, apperrors.ErrUnsupportedEnvelope
	}

	incoming, err := params.Envelope.ChatMessage()
	if err != nil {
		return nil, apperrors.NewBadRequestError(err, "Malformed chat message")
	}

	// 1. Build the domain entity, stamped by the server clock.
	msg, err := domain.NewChatMessage(incoming.Content, params.Sender, s.now())
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(params.Envelope.ID); err == nil {
		msg.ID = params.Envelope.ID
	}
	msg.ConversationID = params.ConversationID

	// 2. Persist it.
	saved, err := s.messageRepo.Create(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("persist chat message: %w", err)
	}

	// 3. Relay to the room, skipping the origin connection.
	env, err := domain.NewChatEnvelope(*saved)
	if err != nil {
		return nil, err
	}
	if err := s.broadcaster.Broadcast(domain.Event{
		ConversationID: saved.ConversationID,
		Envelope:       env,
		OriginClientID: params.ClientID,
	}); err != nil {
		s.logger.Warn("failed to broadcast chat message",
			"conversation_id", saved.ConversationID,
			"message_id", saved.ID,
			"error", err,
		)
	}

	return saved, nil
}

// ListMessages returns the history of a conversation the viewer can access.
func (s *ChatService) ListMessages(ctx context.Context, params ports.ListMessagesParams) ([]*domain.ChatMessage, error) {
	if params.ConversationID == "" {
		return nil, apperrors.ErrConversationRequired
	}
	if !domain.CanAccessConversation(params.ViewerRole, params.ViewerID, params.ConversationID) {
		return nil, apperrors.ErrForbidden
	}

	limit := params.Limit
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	return s.messageRepo.ListByConversation(ctx, params.ConversationID, params.After, limit)
}

// PushStatus broadcasts a status_update to a room. Only staff roles may do so.
func (s *ChatService) PushStatus(ctx context.Context, params ports.StatusUpdateParams) error {
	if params.ActorRole == domain.SenderUser || !params.ActorRole.IsValid() {
		return apperrors.ErrForbidden
	}
	if params.ConversationID == "" {
		return apperrors.ErrConversationRequired
	}
	if strings.TrimSpace(params.Status) == "" {
		return apperrors.ErrStatusRequired
	}

	env, err := domain.NewStatusEnvelope(domain.StatusUpdateData{
		Status:  params.Status,
		Message: params.Message,
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "pushing status update",
		"conversation_id", params.ConversationID,
		"actor_id", params.ActorID,
		"status", params.Status,
	)

	return s.broadcaster.Broadcast(domain.Event{
		ConversationID: params.ConversationID,
		Envelope:       env,
	})
}
