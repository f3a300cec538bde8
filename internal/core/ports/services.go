package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/topcenter/portal-realtime/internal/core/domain"
)

// InboundMessageParams defines the input for a chat_message frame received by the gateway.
type InboundMessageParams struct {
	ConversationID string
	Sender         domain.Sender
	ClientID       uuid.UUID
	Envelope       domain.Envelope
}

// ListMessagesParams defines the input for reading conversation history.
type ListMessagesParams struct {
	ConversationID string
	ViewerID       string
	ViewerRole     domain.Sender
	After          domain.MessageCursor
	Limit          int
}

// StatusUpdateParams defines the input for pushing a status_update to a room.
type StatusUpdateParams struct {
	ConversationID string
	ActorID        string
	ActorRole      domain.Sender
	Status         string
	Message        string
}

// ChatService defines the gateway-side business operations for conversations.
type ChatService interface {
	HandleInbound(ctx context.Context, params InboundMessageParams) (*domain.ChatMessage, error)
	ListMessages(ctx context.Context, params ListMessagesParams) ([]*domain.ChatMessage, error)
	PushStatus(ctx context.Context, params StatusUpdateParams) error
}

// IntentAnalyzer defines the port for the keyword intent classifier.
type IntentAnalyzer interface {
	AnalyzeUserIntent(text string) domain.IntentAnalysis
	AnalyzeConversationProgression(history []domain.ChatMessage) domain.Progression
	SuggestFollowUps(intent domain.Intent) []string
}

// NotificationParams defines the input for raising an in-app notification.
type NotificationParams struct {
	Title   string
	Message string
	Type    domain.NotificationType
}

// Notifier defines the port for raising in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, params NotificationParams)
}

// EventBroadcaster defines the port for pushing envelopes to conversation rooms.
type EventBroadcaster interface {
	Broadcast(event domain.Event) error
}

// NotificationSink performs the side effects of a notification.
type NotificationSink interface {
	Toast(n domain.Notification) error
	ShowNative(n domain.Notification) error
	PlayCue() error
}

// PermissionProvider exposes the host's native notification permission.
type PermissionProvider interface {
	Permission() domain.Permission
	RequestPermission(ctx context.Context) (domain.Permission, error)
}

// VisibilityProbe reports whether the host page is currently visible.
type VisibilityProbe interface {
	Visible() bool
}
