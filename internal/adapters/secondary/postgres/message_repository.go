package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/topcenter/portal-realtime/internal/core/domain"
	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
	"github.com/topcenter/portal-realtime/internal/core/ports"
)

const uniqueViolation = "23505"

const createMessageSQL = `
INSERT INTO chat_messages (id, conversation_id, sender, content, sent_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, conversation_id, sender, content, sent_at`

const listMessagesSQL = `
SELECT id, conversation_id, sender, content, sent_at
FROM chat_messages
WHERE conversation_id = $1 AND (sent_at, id) > ($2, $3)
ORDER BY sent_at ASC, id ASC
LIMIT $4`

// MessageRepository handles persistence for chat messages.
type MessageRepository struct {
	pool *pgxpool.Pool
}

var _ ports.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a new chat message repository.
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

type messageRow struct {
	ID             pgtype.UUID
	ConversationID string
	Sender         string
	Content        string
	SentAt         pgtype.Timestamptz
}

func scanMessage(row pgx.Row) (*domain.ChatMessage, error) {
	var r messageRow
	if err := row.Scan(&r.ID, &r.ConversationID, &r.Sender, &r.Content, &r.SentAt); err != nil {
		return nil, err
	}
	return mapRowToDomain(r), nil
}

func mapRowToDomain(r messageRow) *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:             uuid.UUID(r.ID.Bytes).String(),
		ConversationID: r.ConversationID,
		Sender:         domain.Sender(r.Sender),
		Content:        r.Content,
		Timestamp:      r.SentAt.Time.UnixMilli(),
	}
}

// Create persists a new chat message. A message without a valid id gets a fresh one.
func (r *MessageRepository) Create(ctx context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	id, err := uuid.Parse(msg.ID)
	if err != nil {
		id = uuid.New()
	}

	saved, err := scanMessage(r.pool.QueryRow(ctx, createMessageSQL,
		pgtype.UUID{Bytes: id, Valid: true},
		msg.ConversationID,
		string(msg.Sender),
		msg.Content,
		pgtype.Timestamptz{Time: msg.SentAt(), Valid: true},
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("message %s: %w", id, apperrors.ErrConflict)
		}
		return nil, err
	}

	return saved, nil
}

// ListByConversation retrieves messages of a conversation positioned after
// the (sent_at, id) cursor, oldest first.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, after domain.MessageCursor, limit int) ([]*domain.ChatMessage, error) {
	afterID, err := cursorID(after)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, listMessagesSQL,
		conversationID,
		pgtype.Timestamptz{Time: time.UnixMilli(after.Timestamp).UTC(), Valid: true},
		pgtype.UUID{Bytes: afterID, Valid: true},
		int32(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]*domain.ChatMessage, 0, max(limit, 0))
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// cursorID is the id half of the keyset. A cursor without an id sorts after
// every message of its millisecond.
func cursorID(c domain.MessageCursor) (uuid.UUID, error) {
	if c.ID == "" {
		return uuid.Max, nil
	}
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("cursor id %q: %w", c.ID, apperrors.ErrInvalidCursor)
	}
	return id, nil
}
