package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	mw "github.com/topcenter/portal-realtime/internal/adapters/primary/http/middleware"
	"github.com/topcenter/portal-realtime/internal/auth"
	"github.com/topcenter/portal-realtime/internal/core/domain"
	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
	"github.com/topcenter/portal-realtime/internal/core/mocks"
	"github.com/topcenter/portal-realtime/internal/core/ports"
	"github.com/topcenter/portal-realtime/internal/core/services"
)

const testSecret = "test-secret"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTokenManager() *auth.TokenManager {
	return auth.NewTokenManager(testSecret, time.Hour)
}

func bearer(t *testing.T, tm *auth.TokenManager, userID string, role domain.Sender) string {
	t.Helper()
	token, err := tm.GenerateToken(userID, role)
	require.NoError(t, err)
	return "Bearer " + token
}

// newAPIRouter mounts the protected REST routes the way cmd/api does.
func newAPIRouter(tm *auth.TokenManager, chat ports.ChatService, analyzer ports.IntentAnalyzer) chi.Router {
	logger := testLogger()
	errorHandler := NewErrorHandler(logger)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Group(func(r chi.Router) {
		r.Use(mw.JWTMiddleware(tm))
		r.Route("/conversations", NewConversationHandler(chat, errorHandler, logger).RegisterRoutes)
		r.Route("/intents", NewIntentHandler(analyzer, errorHandler, logger).RegisterRoutes)
	})
	return r
}

func do(t *testing.T, router stdhttp.Handler, method, target, authorization string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&v))
	return v
}

// --- Conversations ---

const (
	msgID1 = "0b6f7c1e-2d4a-4f7b-9a51-3c8e2f1d6a01"
	msgID2 = "0b6f7c1e-2d4a-4f7b-9a51-3c8e2f1d6a02"
)

func TestConversationHandler_ListMessages(t *testing.T) {
	tm := newTokenManager()
	chat := mocks.NewMockChatService()
	router := newAPIRouter(tm, chat, mocks.NewMockIntentAnalyzer())

	chat.On("ListMessages", mock.Anything, ports.ListMessagesParams{
		ConversationID: "user-1",
		ViewerID:       "user-1",
		ViewerRole:     domain.SenderUser,
		After:          domain.MessageCursor{Timestamp: 100},
		Limit:          20,
	}).Return([]*domain.ChatMessage{
		{ID: msgID1, ConversationID: "user-1", Content: "Bonjour", Sender: domain.SenderUser, Timestamp: 150},
		{ID: msgID2, ConversationID: "user-1", Content: "Bonjour !", Sender: domain.SenderAgent, Timestamp: 200},
	}, nil)

	rec := do(t, router, stdhttp.MethodGet, "/conversations/user-1/messages?after=100&limit=20",
		bearer(t, tm, "user-1", domain.SenderUser), nil)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	page := decode[CursorResponse[MessageDTO]](t, rec)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, "200:"+msgID2, page.NextAfter)
	assert.Equal(t, MessageDTO{
		ID: msgID2, ConversationID: "user-1", Content: "Bonjour !", SenderID: "agent", Timestamp: 200,
	}, page.Data[1])
	chat.AssertExpectations(t)
}

func TestConversationHandler_ListMessages_EmptyKeepsCursor(t *testing.T) {
	tm := newTokenManager()
	chat := mocks.NewMockChatService()
	router := newAPIRouter(tm, chat, mocks.NewMockIntentAnalyzer())

	chat.On("ListMessages", mock.Anything, mock.AnythingOfType("ports.ListMessagesParams")).
		Return([]*domain.ChatMessage{}, nil)

	rec := do(t, router, stdhttp.MethodGet, "/conversations/user-1/messages?after=42&limit=oops",
		bearer(t, tm, "user-1", domain.SenderUser), nil)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	page := decode[CursorResponse[MessageDTO]](t, rec)
	assert.Empty(t, page.Data)
	assert.Equal(t, "42", page.NextAfter)

	params := chat.Calls[0].Arguments.Get(1).(ports.ListMessagesParams)
	assert.Zero(t, params.Limit, "invalid limits fall back to the service default")
}

func TestConversationHandler_ListMessages_NextAfterCarriesID(t *testing.T) {
	tm := newTokenManager()
	chat := mocks.NewMockChatService()
	router := newAPIRouter(tm, chat, mocks.NewMockIntentAnalyzer())

	chat.On("ListMessages", mock.Anything, mock.MatchedBy(func(p ports.ListMessagesParams) bool {
		return p.After == domain.MessageCursor{Timestamp: 200, ID: msgID1}
	})).Return([]*domain.ChatMessage{
		{ID: msgID2, ConversationID: "user-1", Content: "suite", Sender: domain.SenderUser, Timestamp: 200},
	}, nil)

	// Two messages share a millisecond: the second page resumes on the id.
	rec := do(t, router, stdhttp.MethodGet, "/conversations/user-1/messages?after=200:"+msgID1,
		bearer(t, tm, "user-1", domain.SenderUser), nil)

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	page := decode[CursorResponse[MessageDTO]](t, rec)
	require.Len(t, page.Data, 1)
	assert.Equal(t, msgID2, page.Data[0].ID)
	assert.Equal(t, "200:"+msgID2, page.NextAfter)
	chat.AssertExpectations(t)
}

func TestConversationHandler_ListMessages_MalformedCursor(t *testing.T) {
	tm := newTokenManager()
	chat := mocks.NewMockChatService()
	router := newAPIRouter(tm, chat, mocks.NewMockIntentAnalyzer())

	for _, after := range []string{"oops", "-1", "200:not-a-uuid"} {
		rec := do(t, router, stdhttp.MethodGet, "/conversations/user-1/messages?after="+after,
			bearer(t, tm, "user-1", domain.SenderUser), nil)

		require.Equal(t, stdhttp.StatusBadRequest, rec.Code, after)
		assert.Equal(t, "VALIDATION_ERROR", decode[ErrorResponse](t, rec).Code)
	}
	chat.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything)
}

func TestConversationHandler_Errors(t *testing.T) {
	tm := newTokenManager()
	chat := mocks.NewMockChatService()
	router := newAPIRouter(tm, chat, mocks.NewMockIntentAnalyzer())

	chat.On("ListMessages", mock.Anything, mock.MatchedBy(func(p ports.ListMessagesParams) bool {
		return p.ConversationID == "someone-else"
	})).Return(nil, apperrors.ErrForbidden)

	t.Run("missing token", func(t *testing.T) {
		rec := do(t, router, stdhttp.MethodGet, "/conversations/user-1/messages", "", nil)
		assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	})

	t.Run("forged token", func(t *testing.T) {
		forged := auth.NewTokenManager("another-secret", time.Hour)
		rec := do(t, router, stdhttp.MethodGet, "/conversations/user-1/messages",
			bearer(t, forged, "user-1", domain.SenderAgent), nil)
		assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	})

	t.Run("foreign conversation", func(t *testing.T) {
		rec := do(t, router, stdhttp.MethodGet, "/conversations/someone-else/messages",
			bearer(t, tm, "user-1", domain.SenderUser), nil)
		require.Equal(t, stdhttp.StatusForbidden, rec.Code)
		assert.Equal(t, "FORBIDDEN", decode[ErrorResponse](t, rec).Code)
	})
}

func TestConversationHandler_PushStatus(t *testing.T) {
	tm := newTokenManager()
	chat := mocks.NewMockChatService()
	router := newAPIRouter(tm, chat, mocks.NewMockIntentAnalyzer())
	agent := bearer(t, tm, "agent-7", domain.SenderAgent)

	t.Run("accepted", func(t *testing.T) {
		chat.On("PushStatus", mock.Anything, ports.StatusUpdateParams{
			ConversationID: "user-1",
			ActorID:        "agent-7",
			ActorRole:      domain.SenderAgent,
			Status:         "agent_joined",
			Message:        "Un conseiller vous répond",
		}).Return(nil).Once()

		rec := do(t, router, stdhttp.MethodPost, "/conversations/user-1/status", agent,
			PushStatusRequest{Status: "agent_joined", Message: "Un conseiller vous répond"})

		assert.Equal(t, stdhttp.StatusAccepted, rec.Code)
	})

	t.Run("missing status", func(t *testing.T) {
		rec := do(t, router, stdhttp.MethodPost, "/conversations/user-1/status", agent,
			PushStatusRequest{Message: "?"})

		require.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
		body := decode[ValidationErrorResponse](t, rec)
		assert.Contains(t, body.Fields, "status")
	})

	t.Run("unknown field", func(t *testing.T) {
		rec := do(t, router, stdhttp.MethodPost, "/conversations/user-1/status", agent,
			`{"status":"x","priority":1}`)

		require.Equal(t, stdhttp.StatusBadRequest, rec.Code)
		assert.Equal(t, "BAD_REQUEST", decode[ErrorResponse](t, rec).Code)
	})

	t.Run("users may not push", func(t *testing.T) {
		chat.On("PushStatus", mock.Anything, mock.MatchedBy(func(p ports.StatusUpdateParams) bool {
			return p.ActorRole == domain.SenderUser
		})).Return(apperrors.ErrForbidden).Once()

		rec := do(t, router, stdhttp.MethodPost, "/conversations/user-1/status",
			bearer(t, tm, "user-1", domain.SenderUser), PushStatusRequest{Status: "resolved"})

		assert.Equal(t, stdhttp.StatusForbidden, rec.Code)
	})

	chat.AssertExpectations(t)
}

// --- Intents ---

func newIntentRouter(t *testing.T) (chi.Router, string) {
	t.Helper()
	analyzer, err := services.NewIntentAnalyzer()
	require.NoError(t, err)
	tm := newTokenManager()
	return newAPIRouter(tm, mocks.NewMockChatService(), analyzer), bearer(t, tm, "user-1", domain.SenderUser)
}

func TestIntentHandler_Analyze(t *testing.T) {
	router, token := newIntentRouter(t)

	rec := do(t, router, stdhttp.MethodPost, "/intents/analyze", token,
		AnalyzeRequest{Text: "bonjour, j'ai besoin d'aide pour un devis"})

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	body := decode[AnalyzeResponse](t, rec)
	assert.Equal(t, domain.IntentDemandeAssistance, body.Intent)
	assert.Len(t, body.Ranking, len(domain.Intents))
	assert.NotEmpty(t, body.Suggestions)
}

func TestIntentHandler_Analyze_Empty(t *testing.T) {
	router, token := newIntentRouter(t)

	rec := do(t, router, stdhttp.MethodPost, "/intents/analyze", token, AnalyzeRequest{})

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	body := decode[AnalyzeResponse](t, rec)
	assert.Equal(t, domain.DefaultIntent, body.Intent)
	assert.InDelta(t, domain.DefaultIntentConfidence, body.Confidence, 1e-9)
}

func TestIntentHandler_Analyze_TooLong(t *testing.T) {
	router, token := newIntentRouter(t)

	rec := do(t, router, stdhttp.MethodPost, "/intents/analyze", token,
		AnalyzeRequest{Text: strings.Repeat("é", MaxIntentTextLength+1)})

	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[ErrorResponse](t, rec).Code)
}

func TestIntentHandler_Progression(t *testing.T) {
	router, token := newIntentRouter(t)

	rec := do(t, router, stdhttp.MethodPost, "/intents/progression", token, ProgressionRequest{
		Messages: []ProgressionMessage{
			{Content: "Quel est le détail de vos horaires ?", SenderID: "user"},
			{Content: "Nous sommes ouverts de 8h à 20h.", SenderID: "agent"},
			{Content: "Combien coûte un devis ?", SenderID: "user"},
		},
	})

	require.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, domain.ProgressionInquiryToAction, decode[ProgressionResponse](t, rec).Progression)
}

func TestIntentHandler_Progression_TooManyMessages(t *testing.T) {
	router, token := newIntentRouter(t)
	msgs := make([]ProgressionMessage, maxProgressionItems+1)

	rec := do(t, router, stdhttp.MethodPost, "/intents/progression", token, ProgressionRequest{Messages: msgs})

	assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
}

func TestIntentHandler_Progression_InvalidMessages(t *testing.T) {
	router, token := newIntentRouter(t)

	rec := do(t, router, stdhttp.MethodPost, "/intents/progression", token, ProgressionRequest{
		Messages: []ProgressionMessage{
			{Content: "Bonjour", SenderID: "user"},
			{Content: strings.Repeat("a", MaxIntentTextLength+1), SenderID: "robot"},
		},
	})

	require.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	body := decode[ValidationErrorResponse](t, rec)
	assert.Contains(t, body.Fields, "messages[1].content")
	assert.Contains(t, body.Fields, "messages[1].senderId")
	assert.NotContains(t, body.Fields, "messages[0].senderId")
}
