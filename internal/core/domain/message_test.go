package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/topcenter/portal-realtime/internal/core/domain"
	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
)

func TestNewChatMessage(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		content string
		sender  domain.Sender
		wantErr error
	}{
		{"valid user message", "Bonjour", domain.SenderUser, nil},
		{"valid agent message", "Je regarde votre dossier", domain.SenderAgent, nil},
		{"empty content", "", domain.SenderUser, apperrors.ErrMessageContentRequired},
		{"whitespace content", " \n\t", domain.SenderUser, apperrors.ErrMessageContentRequired},
		{"too long", strings.Repeat("é", domain.MaxMessageContentLength+1), domain.SenderUser, apperrors.ErrMessageContentTooLong},
		{"exactly max length", strings.Repeat("é", domain.MaxMessageContentLength), domain.SenderUser, nil},
		{"unknown sender", "Bonjour", domain.Sender("robot"), apperrors.ErrInvalidSender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := domain.NewChatMessage(tt.content, tt.sender, at)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, msg)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, msg.ID)
			assert.Equal(t, tt.sender, msg.Sender)
			assert.Equal(t, at.UnixMilli(), msg.Timestamp)
			assert.Equal(t, at, msg.SentAt())
		})
	}
}

func TestChatMessage_IsFromUser(t *testing.T) {
	assert.True(t, domain.ChatMessage{Sender: domain.SenderUser}.IsFromUser())
	assert.False(t, domain.ChatMessage{Sender: domain.SenderAgent}.IsFromUser())
	assert.False(t, domain.ChatMessage{Sender: domain.SenderBot}.IsFromUser())
}

func TestCanAccessConversation(t *testing.T) {
	tests := []struct {
		name           string
		sender         domain.Sender
		userID         string
		conversationID string
		want           bool
	}{
		{"user own conversation", domain.SenderUser, "u1", "u1", true},
		{"user other conversation", domain.SenderUser, "u1", "u2", false},
		{"user empty conversation", domain.SenderUser, "", "", false},
		{"agent any conversation", domain.SenderAgent, "a1", "u2", true},
		{"bot any conversation", domain.SenderBot, "b1", "u2", true},
		{"agent empty conversation", domain.SenderAgent, "a1", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.CanAccessConversation(tt.sender, tt.userID, tt.conversationID))
		})
	}
}
