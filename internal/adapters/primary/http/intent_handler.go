package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/topcenter/portal-realtime/internal/adapters/primary/validation"
	"github.com/topcenter/portal-realtime/internal/core/domain"
	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
	"github.com/topcenter/portal-realtime/internal/core/ports"
)

var senderLabels = []string{
	string(domain.SenderUser),
	string(domain.SenderAgent),
	string(domain.SenderBot),
	string(domain.SenderSystem),
}

const (
	// MaxIntentTextLength bounds the text accepted by the analyzer endpoints.
	MaxIntentTextLength = domain.MaxMessageContentLength
	maxProgressionItems = 200
)

// IntentHandler exposes the keyword intent analyzer.
type IntentHandler struct {
	analyzer     ports.IntentAnalyzer
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewIntentHandler creates a new IntentHandler.
func NewIntentHandler(
	analyzer ports.IntentAnalyzer,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *IntentHandler {
	return &IntentHandler{
		analyzer:     analyzer,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "intent"),
	}
}

// RegisterRoutes registers the intent endpoints.
// These routes are relative to /api/v1/intents
func (h *IntentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze", h.HandleAnalyze)
	r.Post("/progression", h.HandleProgression)
}

// AnalyzeRequest defines the expected JSON body for intent analysis.
type AnalyzeRequest struct {
	Text string `json:"text"`
}

// Validate validates the analyze request
func (r *AnalyzeRequest) Validate() error {
	if utf8.RuneCountInString(r.Text) > MaxIntentTextLength {
		return apperrors.ErrTextTooLong
	}
	return nil
}

// AnalyzeResponse carries the analysis and the canned follow-ups for its intent.
type AnalyzeResponse struct {
	domain.IntentAnalysis
	Suggestions []string `json:"suggestions"`
}

// ProgressionMessage is one history entry of a progression request.
type ProgressionMessage struct {
	Content  string `json:"content"`
	SenderID string `json:"senderId"`
}

// ProgressionRequest defines the expected JSON body for progression analysis.
type ProgressionRequest struct {
	Messages []ProgressionMessage `json:"messages"`
}

// Validate validates the progression request
func (r *ProgressionRequest) Validate() error {
	v := validation.NewValidator()
	v.MaxItems("messages", len(r.Messages), maxProgressionItems)
	for i, m := range r.Messages {
		field := fmt.Sprintf("messages[%d]", i)
		v.Custom(field+".content", utf8.RuneCountInString(m.Content) <= MaxIntentTextLength,
			fmt.Sprintf("Must be at most %d characters", MaxIntentTextLength))
		v.OneOf(field+".senderId", m.SenderID, senderLabels)
	}
	return v.Err()
}

// ProgressionResponse carries the conversation classification.
type ProgressionResponse struct {
	Progression domain.Progression `json:"progression"`
}

// HandleAnalyze scores a single text.
func (h *IntentHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeJSON[AnalyzeRequest](w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	analysis := h.analyzer.AnalyzeUserIntent(req.Text)

	h.logger.DebugContext(r.Context(), "intent analyzed",
		"intent", analysis.Intent,
		"confidence", analysis.Confidence,
	)

	WriteJSON(w, http.StatusOK, AnalyzeResponse{
		IntentAnalysis: analysis,
		Suggestions:    h.analyzer.SuggestFollowUps(analysis.Intent),
	})
}

// HandleProgression classifies a conversation history.
func (h *IntentHandler) HandleProgression(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeJSON[ProgressionRequest](w, r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	history := make([]domain.ChatMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		history = append(history, domain.ChatMessage{
			Content: m.Content,
			Sender:  domain.Sender(m.SenderID),
		})
	}

	WriteJSON(w, http.StatusOK, ProgressionResponse{
		Progression: h.analyzer.AnalyzeConversationProgression(history),
	})
}
