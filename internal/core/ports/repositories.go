package ports

import (
	"context"

	"github.com/topcenter/portal-realtime/internal/core/domain"
)

// MessageRepository persists chat message history.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error)
	// ListByConversation returns the messages ordered after the cursor by
	// (timestamp, id), oldest first.
	ListByConversation(ctx context.Context, conversationID string, after domain.MessageCursor, limit int) ([]*domain.ChatMessage, error)
}
