package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topcenter/portal-realtime/internal/core/domain"
	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
)

func newMessage(t *testing.T, conversationID, content string, sender domain.Sender, at time.Time) *domain.ChatMessage {
	t.Helper()
	msg, err := domain.NewChatMessage(content, sender, at)
	require.NoError(t, err)
	msg.ConversationID = conversationID
	return msg
}

func TestMessageRepository_CreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(testPool)
	conversationID := "conv-" + uuid.NewString()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	first := newMessage(t, conversationID, "Bonjour", domain.SenderUser, base)
	second := newMessage(t, conversationID, "Bonjour, que puis-je faire ?", domain.SenderAgent, base.Add(2*time.Second))
	third := newMessage(t, conversationID, "Un devis svp", domain.SenderUser, base.Add(5*time.Second))

	// Insert out of order; listing is by sent_at.
	for _, m := range []*domain.ChatMessage{third, first, second} {
		saved, err := repo.Create(ctx, m)
		require.NoError(t, err)
		assert.Equal(t, m.ID, saved.ID)
		assert.Equal(t, m.Timestamp, saved.Timestamp)
		assert.Equal(t, m.Sender, saved.Sender)
	}

	other := newMessage(t, "conv-"+uuid.NewString(), "ailleurs", domain.SenderUser, base)
	_, err := repo.Create(ctx, other)
	require.NoError(t, err)

	t.Run("all, oldest first", func(t *testing.T) {
		msgs, err := repo.ListByConversation(ctx, conversationID, domain.MessageCursor{}, 50)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, []string{first.ID, second.ID, third.ID},
			[]string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
		assert.Equal(t, conversationID, msgs[0].ConversationID)
	})

	t.Run("after cursor is exclusive", func(t *testing.T) {
		msgs, err := repo.ListByConversation(ctx, conversationID, domain.CursorAfter(first), 50)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, second.ID, msgs[0].ID)
	})

	t.Run("bare timestamp skips its millisecond", func(t *testing.T) {
		msgs, err := repo.ListByConversation(ctx, conversationID, domain.MessageCursor{Timestamp: second.Timestamp}, 50)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, third.ID, msgs[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		msgs, err := repo.ListByConversation(ctx, conversationID, domain.MessageCursor{}, 1)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, first.ID, msgs[0].ID)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		msgs, err := repo.ListByConversation(ctx, "conv-missing", domain.MessageCursor{}, 50)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}

func TestMessageRepository_ListByConversation_SameMillisecond(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(testPool)
	conversationID := "conv-" + uuid.NewString()
	at := time.Date(2026, 3, 1, 9, 0, 0, 123_000_000, time.UTC)

	want := make(map[string]bool)
	for _, content := range []string{"un", "deux", "trois"} {
		saved, err := repo.Create(ctx, newMessage(t, conversationID, content, domain.SenderUser, at))
		require.NoError(t, err)
		want[saved.ID] = true
	}

	var (
		after domain.MessageCursor
		seen  []string
		pages int
	)
	for {
		msgs, err := repo.ListByConversation(ctx, conversationID, after, 2)
		require.NoError(t, err)
		if len(msgs) == 0 {
			break
		}
		pages++
		require.LessOrEqual(t, pages, 3, "paging does not terminate")
		for _, m := range msgs {
			assert.Equal(t, at.UnixMilli(), m.Timestamp)
			seen = append(seen, m.ID)
		}

		// Round-trip through the wire form, as an HTTP client would.
		next, err := domain.ParseMessageCursor(domain.CursorAfter(msgs[len(msgs)-1]).String())
		require.NoError(t, err)
		after = next
	}

	assert.Equal(t, 2, pages)
	require.Len(t, seen, 3)
	for _, id := range seen {
		assert.True(t, want[id], "unexpected message %s", id)
		delete(want, id)
	}
	assert.Empty(t, want, "messages skipped across pages")
}

func TestMessageRepository_Create_DuplicateID(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(testPool)
	msg := newMessage(t, "conv-"+uuid.NewString(), "Salut", domain.SenderUser, time.Now())

	_, err := repo.Create(ctx, msg)
	require.NoError(t, err)

	_, err = repo.Create(ctx, msg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
}

func TestMessageRepository_Create_InvalidIDGetsFreshOne(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepository(testPool)
	msg := newMessage(t, "conv-"+uuid.NewString(), "Salut", domain.SenderBot, time.Now())
	msg.ID = "not-a-uuid"

	saved, err := repo.Create(ctx, msg)
	require.NoError(t, err)
	_, err = uuid.Parse(saved.ID)
	assert.NoError(t, err)
}
