package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// EnvelopeType defines the type of a real-time frame.
type EnvelopeType string

const (
	EnvelopeChatMessage  EnvelopeType = "chat_message"
	EnvelopeStatusUpdate EnvelopeType = "status_update"
)

// Envelope is the JSON wrapper used for every WebSocket frame.
type Envelope struct {
	Type EnvelopeType    `json:"type"`
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// ChatMessageData is the data object of a chat_message envelope.
type ChatMessageData struct {
	Content   string `json:"content"`
	SenderID  string `json:"senderId"`
	Timestamp int64  `json:"timestamp"`
}

// StatusUpdateData is the data object of a status_update envelope.
type StatusUpdateData struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Event routes an envelope to the members of a conversation room.
type Event struct {
	ConversationID string
	Envelope       Envelope
	// OriginClientID is skipped on delivery so senders do not get their own echo.
	OriginClientID uuid.UUID
}

var errMissingEnvelopeType = errors.New("envelope type is required")

// DecodeEnvelope parses a raw text frame.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, errMissingEnvelopeType
	}
	return env, nil
}

// NewChatEnvelope wraps a chat message for the wire.
func NewChatEnvelope(msg ChatMessage) (Envelope, error) {
	return newEnvelope(EnvelopeChatMessage, msg.ID, ChatMessageData{
		Content:   msg.Content,
		SenderID:  string(msg.Sender),
		Timestamp: msg.Timestamp,
	})
}

// NewStatusEnvelope wraps a status update for the wire.
func NewStatusEnvelope(data StatusUpdateData) (Envelope, error) {
	return newEnvelope(EnvelopeStatusUpdate, uuid.NewString(), data)
}

func newEnvelope(kind EnvelopeType, id string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s data: %w", kind, err)
	}
	return Envelope{Type: kind, ID: id, Data: raw}, nil
}

// ChatMessage decodes the data of a chat_message envelope.
func (e Envelope) ChatMessage() (ChatMessage, error) {
	if e.Type != EnvelopeChatMessage {
		return ChatMessage{}, fmt.Errorf("envelope %q is not a chat message", e.Type)
	}
	var data ChatMessageData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return ChatMessage{}, fmt.Errorf("decode chat message data: %w", err)
	}
	return ChatMessage{
		ID:        e.ID,
		Content:   data.Content,
		Sender:    Sender(data.SenderID),
		Timestamp: data.Timestamp,
	}, nil
}

// StatusUpdate decodes the data of a status_update envelope.
func (e Envelope) StatusUpdate() (StatusUpdateData, error) {
	if e.Type != EnvelopeStatusUpdate {
		return StatusUpdateData{}, fmt.Errorf("envelope %q is not a status update", e.Type)
	}
	var data StatusUpdateData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return StatusUpdateData{}, fmt.Errorf("decode status update data: %w", err)
	}
	return data, nil
}
