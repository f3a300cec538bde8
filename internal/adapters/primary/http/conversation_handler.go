package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	mw "github.com/topcenter/portal-realtime/internal/adapters/primary/http/middleware"
	"github.com/topcenter/portal-realtime/internal/adapters/primary/validation"
	"github.com/topcenter/portal-realtime/internal/auth"
	"github.com/topcenter/portal-realtime/internal/core/domain"
	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
	"github.com/topcenter/portal-realtime/internal/core/ports"
)

const (
	maxStatusLength        = 64
	maxStatusMessageLength = 500
)

// ConversationHandler handles HTTP requests for conversation history and status pushes.
type ConversationHandler struct {
	chatService  ports.ChatService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewConversationHandler creates a new ConversationHandler.
func NewConversationHandler(
	chatService ports.ChatService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		chatService:  chatService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "conversation"),
	}
}

// RegisterRoutes registers the conversation endpoints.
// These routes are relative to /api/v1/conversations
func (h *ConversationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{conversationID}/messages", h.HandleListMessages)
	r.Post("/{conversationID}/status", h.HandlePushStatus)
}

// --- Request DTOs ---

// PushStatusRequest defines the expected JSON body for a status push.
type PushStatusRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Validate validates the status push request
func (r *PushStatusRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("status", r.Status).
		MaxLength("status", r.Status, maxStatusLength).
		MaxLength("message", r.Message, maxStatusMessageLength)

	return v.Err()
}

// MessageDTO defines the JSON response for chat messages. It mirrors the
// data object of a chat_message envelope.
type MessageDTO struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	SenderID       string `json:"senderId"`
	Timestamp      int64  `json:"timestamp"`
}

func toMessageDTO(msg *domain.ChatMessage) MessageDTO {
	return MessageDTO{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Content:        msg.Content,
		SenderID:       string(msg.Sender),
		Timestamp:      msg.Timestamp,
	}
}

func toMessageDTOs(msgs []*domain.ChatMessage) []MessageDTO {
	response := make([]MessageDTO, 0, len(msgs))
	for _, msg := range msgs {
		response = append(response, toMessageDTO(msg))
	}
	return response
}

// --- Handlers ---

// HandleListMessages returns the history of a conversation, oldest first.
// Pass the nextAfter of the previous page as ?after= to page forward.
func (h *ConversationHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	conversationID, err := h.parseConversationID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	after, err := domain.ParseMessageCursor(r.URL.Query().Get("after"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.ListMessagesParams{
		ConversationID: conversationID,
		ViewerID:       claims.UserID(),
		ViewerRole:     claims.Role(),
		After:          after,
		Limit:          validation.ParseIntQueryParam(r, "limit", 0),
	}

	msgs, err := h.chatService.ListMessages(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	next := params.After
	if len(msgs) > 0 {
		next = domain.CursorAfter(msgs[len(msgs)-1])
	}
	WriteCursorPage(w, toMessageDTOs(msgs), next.String())
}

// HandlePushStatus broadcasts a status_update to everyone in the conversation.
func (h *ConversationHandler) HandlePushStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	conversationID, err := h.parseConversationID(r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeJSON[PushStatusRequest](w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	err = h.chatService.PushStatus(r.Context(), ports.StatusUpdateParams{
		ConversationID: conversationID,
		ActorID:        claims.UserID(),
		ActorRole:      claims.Role(),
		Status:         req.Status,
		Message:        req.Message,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// --- Helper methods ---

// getClaims extracts and validates user claims from the request context
func (h *ConversationHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		h.errorHandler.Handle(w, r, apperrors.NewUnauthorizedError("Not authorized"))
		return nil, false
	}
	return claims, true
}

// parseConversationID extracts and validates the conversation ID from the URL
func (h *ConversationHandler) parseConversationID(r *http.Request) (string, error) {
	conversationID := strings.TrimSpace(chi.URLParam(r, "conversationID"))
	v := validation.NewValidator()
	v.Required("conversationID", conversationID).
		MaxLength("conversationID", conversationID, 128)
	return conversationID, v.Err()
}
