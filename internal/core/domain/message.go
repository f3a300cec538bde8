package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
)

// MaxMessageContentLength bounds the content of a single chat message.
const MaxMessageContentLength = 4000

// Sender identifies the party that authored a chat message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAgent  Sender = "agent"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// IsValid reports whether s is a known sender.
func (s Sender) IsValid() bool {
	switch s {
	case SenderUser, SenderAgent, SenderBot, SenderSystem:
		return true
	}
	return false
}

// ChatMessage is a single entry of a conversation. It is immutable once created.
type ChatMessage struct {
	ID             string
	ConversationID string
	Content        string
	Sender         Sender
	Timestamp      int64 // unix milliseconds
}

// NewChatMessage builds a validated message stamped at the given time.
func NewChatMessage(content string, sender Sender, at time.Time) (*ChatMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.ErrMessageContentRequired
	}
	if utf8.RuneCountInString(content) > MaxMessageContentLength {
		return nil, apperrors.ErrMessageContentTooLong
	}
	if !sender.IsValid() {
		return nil, apperrors.ErrInvalidSender
	}

	return &ChatMessage{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    sender,
		Timestamp: at.UnixMilli(),
	}, nil
}

// IsFromUser reports whether the message was authored by the local end user.
func (m ChatMessage) IsFromUser() bool {
	return m.Sender == SenderUser
}

// SentAt returns the message timestamp as a time.Time.
func (m ChatMessage) SentAt() time.Time {
	return time.UnixMilli(m.Timestamp).UTC()
}

// CanAccessConversation reports whether a caller may read or write a conversation.
// End users only reach their own conversation, keyed by their user id.
func CanAccessConversation(sender Sender, userID, conversationID string) bool {
	switch sender {
	case SenderAgent, SenderBot, SenderSystem:
		return conversationID != ""
	default:
		return conversationID != "" && conversationID == userID
	}
}
