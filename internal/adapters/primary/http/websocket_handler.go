package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	wsAdapter "github.com/topcenter/portal-realtime/internal/adapters/primary/websocket"
	"github.com/topcenter/portal-realtime/internal/auth"
	"github.com/topcenter/portal-realtime/internal/config"
	"github.com/topcenter/portal-realtime/internal/core/domain"
	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
	"github.com/topcenter/portal-realtime/internal/core/ports"
	"github.com/topcenter/portal-realtime/internal/infrastructure/logging"
)

// WebSocketHandler upgrades authenticated requests into conversation room members.
type WebSocketHandler struct {
	hub      *wsAdapter.Hub
	chat     ports.ChatService
	tm       *auth.TokenManager
	upgrader websocket.Upgrader
	opts     wsAdapter.ClientOptions
	logger   *slog.Logger
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *wsAdapter.Hub,
	chat ports.ChatService,
	tm *auth.TokenManager,
	cfg *config.Config,
	logger *slog.Logger,
) *WebSocketHandler {
	handler := &WebSocketHandler{
		hub:  hub,
		chat: chat,
		tm:   tm,
		opts: wsAdapter.ClientOptions{
			MessagesPerSecond: cfg.WebSocket.MessagesPerSecond,
			Burst:             cfg.WebSocket.MessageBurst,
		},
		logger: logger.With("handler", "websocket"),
	}

	handler.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     handler.makeOriginChecker(cfg.WebSocket.AllowedOrigins, cfg.IsDevelopment()),
	}

	return handler
}

// makeOriginChecker creates an origin checking function based on configuration
func (h *WebSocketHandler) makeOriginChecker(allowedOrigins []string, allowAll bool) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Non-browser clients such as the terminal client send no Origin.
		if origin == "" {
			return true
		}

		if allowAll {
			h.logger.WarnContext(r.Context(), "allowing websocket origin in development mode",
				"origin", origin,
			)
			return true
		}

		parsedOrigin, err := url.Parse(origin)
		if err != nil {
			h.logger.WarnContext(r.Context(), "failed to parse websocket origin",
				"origin", origin,
				"error", err,
			)
			return false
		}

		if originAllowed(parsedOrigin.Host, allowedOrigins) {
			return true
		}

		h.logger.WarnContext(r.Context(), "websocket connection rejected due to origin",
			"origin", origin,
			"remote_addr", r.RemoteAddr,
		)
		return false
	}
}

// originAllowed matches a host against exact entries and "*.example.com" wildcards.
func originAllowed(host string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		if apex, ok := strings.CutPrefix(allowed, "*."); ok {
			if host == apex || strings.HasSuffix(host, "."+apex) {
				return true
			}
		} else if host == allowed {
			return true
		}
	}
	return false
}

// bearerToken reads the access token from ?token= or, for non-browser
// clients, from the Authorization header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// ServeHTTP handles WebSocket connection requests
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// 1. Authenticate the connection
	tokenString := bearerToken(r)
	if tokenString == "" {
		h.logger.WarnContext(ctx, "websocket connection rejected: missing token",
			"remote_addr", r.RemoteAddr,
		)
		writeAppError(w, apperrors.NewUnauthorizedError("Missing authentication token"))
		return
	}

	claims, err := h.tm.ValidateToken(tokenString)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket connection rejected: invalid token",
			"remote_addr", r.RemoteAddr,
			"error", err,
		)
		writeAppError(w, apperrors.NewUnauthorizedError("Invalid or expired token"))
		return
	}

	// 2. Resolve the room
	userID := claims.UserID()
	role := claims.Role()
	conversationID := strings.TrimSpace(r.URL.Query().Get("conversation"))
	if conversationID == "" {
		conversationID = userID
	}

	ctx = logging.WithUserID(ctx, userID)
	ctx = logging.WithConversationID(ctx, conversationID)

	if !domain.CanAccessConversation(role, userID, conversationID) {
		h.logger.WarnContext(ctx, "websocket connection rejected: conversation not accessible",
			"role", role,
		)
		writeAppError(w, apperrors.NewForbiddenError("You do not have access to this conversation"))
		return
	}

	// 3. Upgrade the connection
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.WarnContext(ctx, "failed to upgrade websocket connection", "error", err)
		return
	}

	h.logger.InfoContext(ctx, "websocket connection established",
		"role", role,
		"remote_addr", r.RemoteAddr,
	)

	// 4. Join the room and start the I/O pumps
	wsAdapter.NewClient(h.hub, conn, h.chat, userID, role, conversationID, h.opts, h.logger).Start()
}
