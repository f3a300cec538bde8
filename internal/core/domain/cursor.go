package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
)

// MessageCursor marks a position in a conversation history. Messages are
// ordered by (Timestamp, ID); a page holds the messages strictly after it.
// An empty ID means "after every message sent at Timestamp".
type MessageCursor struct {
	Timestamp int64 // unix milliseconds
	ID        string
}

// CursorAfter returns the cursor positioned on msg.
func CursorAfter(msg *ChatMessage) MessageCursor {
	return MessageCursor{Timestamp: msg.Timestamp, ID: msg.ID}
}

// String encodes the cursor as "ts:id", or "ts" when it has no ID.
func (c MessageCursor) String() string {
	ts := strconv.FormatInt(c.Timestamp, 10)
	if c.ID == "" {
		return ts
	}
	return ts + ":" + c.ID
}

// ParseMessageCursor decodes the value of a ?after= parameter. An empty value
// is the start of the history.
func ParseMessageCursor(raw string) (MessageCursor, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return MessageCursor{}, nil
	}

	tsPart, idPart, hasID := strings.Cut(raw, ":")
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil || ts < 0 {
		return MessageCursor{}, fmt.Errorf("%q: %w", raw, apperrors.ErrInvalidCursor)
	}
	if !hasID {
		return MessageCursor{Timestamp: ts}, nil
	}

	id, err := uuid.Parse(idPart)
	if err != nil {
		return MessageCursor{}, fmt.Errorf("%q: %w", raw, apperrors.ErrInvalidCursor)
	}
	return MessageCursor{Timestamp: ts, ID: id.String()}, nil
}
