package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/topcenter/portal-realtime/internal/core/domain"
	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
	"github.com/topcenter/portal-realtime/internal/core/ports"
	"github.com/topcenter/portal-realtime/internal/infrastructure/logging"
)

const defaultWriteWait = 10 * time.Second

// Config holds the connection manager settings.
type Config struct {
	// Endpoint is the full gateway URL, see Endpoint.
	Endpoint  string
	WriteWait time.Duration
}

// Option customises a Manager.
type Option func(*Manager)

// WithDialer replaces the gorilla dialer.
func WithDialer(d Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

// WithScheduler replaces the wall-clock reconnect scheduler.
func WithScheduler(s Scheduler) Option {
	return func(m *Manager) { m.scheduler = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMessageHandler registers a callback run for every message appended to
// the list, local or remote. It is called without the manager lock held.
func WithMessageHandler(fn func(domain.ChatMessage)) Option {
	return func(m *Manager) { m.onMessage = fn }
}

// Manager owns one client WebSocket, its reconnect loop and the ordered
// message list of the conversation.
type Manager struct {
	cfg        Config
	dialer     Dialer
	scheduler  Scheduler
	notifier   ports.Notifier
	visibility ports.VisibilityProbe
	now        func() time.Time
	onMessage  func(domain.ChatMessage)
	logger     *slog.Logger

	// writeMu serialises writes on the socket. It is never taken while mu is
	// held, so a stalled peer cannot block state reads or inbound frames.
	writeMu sync.Mutex

	mu       sync.Mutex
	state    domain.ConnectionState
	conn     Conn
	timer    Timer
	messages []domain.ChatMessage
	// generation invalidates read loops and timers of earlier sockets.
	generation uint64
	stopped    bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a manager in the Disconnected phase. Nothing is dialed
// until Connect is called.
func NewManager(
	cfg Config,
	notifier ports.Notifier,
	visibility ports.VisibilityProbe,
	logger *slog.Logger,
	opts ...Option,
) *Manager {
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		cfg:        cfg,
		dialer:     NewGorillaDialer(10 * time.Second),
		scheduler:  timeScheduler{},
		notifier:   notifier,
		visibility: visibility,
		now:        time.Now,
		logger:     logger.With("component", "ws_connection_manager"),
		messages:   []domain.ChatMessage{},
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns a copy of the connection state.
func (m *Manager) State() domain.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Messages returns the conversation in display order.
func (m *Manager) Messages() []domain.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChatMessage(nil), m.messages...)
}

// Connect dials the gateway unless a socket is already open or being dialed.
// A failed dial goes through the same path as a closed socket and schedules
// the next attempt.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped || !m.state.CanDial() {
		m.mu.Unlock()
		return nil
	}
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.state = m.state.Dialing()
	m.generation++
	gen := m.generation
	attempt := m.state.ReconnectAttempts
	m.mu.Unlock()

	m.logger.Debug("dialing gateway", "attempt", attempt)
	conn, err := m.dialer.Dial(ctx, m.cfg.Endpoint)
	if err != nil {
		if m.handleClose(gen, err) {
			m.notify(domain.NotificationError, "Erreur de connexion", "Impossible de joindre le service de messagerie.")
		}
		return err
	}

	m.mu.Lock()
	if m.stopped || gen != m.generation {
		m.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	m.conn = conn
	m.state = m.state.Opened()
	m.mu.Unlock()

	m.logger.Info("connected to gateway")
	m.notify(domain.NotificationInfo, "Connecté", "Vous êtes connecté au chat.")

	go m.readLoop(conn, gen)
	return nil
}

// SendMessage transmits content as a user message. It returns false, without
// touching the message list, when no socket is open, the content is invalid
// or the write fails.
func (m *Manager) SendMessage(content string) bool {
	m.mu.Lock()
	conn := m.conn
	connected := conn != nil && m.state.Phase == domain.PhaseConnected
	m.mu.Unlock()

	if !connected {
		m.logger.Warn("send while disconnected", "error", apperrors.ErrNotConnected)
		m.notify(domain.NotificationWarning, "Non connecté", "Le message n'a pas pu être envoyé.")
		return false
	}

	msg, err := domain.NewChatMessage(content, domain.SenderUser, m.now())
	if err != nil {
		m.logger.Warn("rejected outgoing message", "error", err)
		return false
	}

	env, err := domain.NewChatEnvelope(*msg)
	if err != nil {
		m.logger.Error("failed to encode outgoing message", "error", err)
		return false
	}
	raw, err := json.Marshal(env)
	if err != nil {
		m.logger.Error("failed to encode outgoing message", "error", err)
		return false
	}

	if err := m.write(conn, websocket.TextMessage, raw); err != nil {
		m.logger.Warn("failed to write message", "message_id", msg.ID, "error", err)
		if !m.isStopped() {
			m.notify(domain.NotificationError, "Erreur d'envoi", "Le message n'a pas pu être envoyé.")
		}
		return false
	}

	m.mu.Lock()
	m.messages = append(m.messages, *msg)
	m.mu.Unlock()

	m.emitMessage(*msg)
	return true
}

// Close closes the socket and cancels any pending reconnect. The manager
// cannot be reused afterwards.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	m.generation++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	conn := m.conn
	m.conn = nil
	m.state = m.state.Stopped()
	m.mu.Unlock()

	m.cancel()

	if conn == nil {
		return nil
	}
	// Skip the close frame when a write is in flight; closing the socket
	// unblocks that writer.
	if m.writeMu.TryLock() {
		_ = conn.SetWriteDeadline(m.now().Add(m.cfg.WriteWait))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		m.writeMu.Unlock()
	}
	return conn.Close()
}

func (m *Manager) write(conn Conn, messageType int, data []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = conn.SetWriteDeadline(m.now().Add(m.cfg.WriteWait))
	return conn.WriteMessage(messageType, data)
}

func (m *Manager) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func (m *Manager) readLoop(conn Conn, gen uint64) {
	defer func() {
		if r := recover(); r != nil {
			logging.LogPanic(m.logger, r)
			_ = conn.Close()
			m.handleClose(gen, fmt.Errorf("read loop panic: %v", r))
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			unexpected := websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
			if m.handleClose(gen, err) && unexpected {
				m.notify(domain.NotificationError, "Erreur de connexion", "La connexion au chat a été interrompue.")
			}
			return
		}
		m.handleFrame(data)
	}
}

// handleClose moves to Backoff and schedules the next Connect. Stale
// generations and a closed manager are ignored; it reports whether a
// reconnect was scheduled.
func (m *Manager) handleClose(gen uint64, cause error) bool {
	m.mu.Lock()
	if m.stopped || gen != m.generation {
		m.mu.Unlock()
		return false
	}
	m.conn = nil
	next, delay := m.state.Closed()
	m.state = next
	m.timer = m.scheduler.AfterFunc(delay, m.reconnect)
	attempts := next.ReconnectAttempts
	m.mu.Unlock()

	m.logger.Info("connection closed, reconnect scheduled",
		"delay_ms", delay.Milliseconds(),
		"attempts", attempts,
		"cause", cause,
	)
	return true
}

func (m *Manager) reconnect() {
	if err := m.Connect(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Debug("reconnect attempt failed", "error", err)
	}
}

func (m *Manager) handleFrame(data []byte) {
	env, err := domain.DecodeEnvelope(data)
	if err != nil {
		m.logger.Warn("dropping malformed frame", "error", err)
		return
	}

	switch env.Type {
	case domain.EnvelopeChatMessage:
		msg, err := env.ChatMessage()
		if err != nil {
			m.logger.Warn("dropping malformed chat message", "envelope_id", env.ID, "error", err)
			return
		}
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.Timestamp == 0 {
			msg.Timestamp = m.now().UnixMilli()
		}

		m.mu.Lock()
		m.messages = append(m.messages, msg)
		m.mu.Unlock()
		m.emitMessage(msg)

		if !msg.IsFromUser() && !m.visibility.Visible() {
			m.notify(domain.NotificationInfo, "Nouveau message", msg.Content)
		}

	case domain.EnvelopeStatusUpdate:
		data, err := env.StatusUpdate()
		if err != nil {
			m.logger.Warn("dropping malformed status update", "envelope_id", env.ID, "error", err)
			return
		}
		text := data.Message
		if text == "" {
			text = data.Status
		}
		m.notify(domain.NotificationInfo, "Mise à jour", text)

	default:
		m.logger.Warn("dropping unknown envelope type", "type", env.Type, "envelope_id", env.ID)
	}
}

func (m *Manager) emitMessage(msg domain.ChatMessage) {
	if m.onMessage != nil {
		m.onMessage(msg)
	}
}

func (m *Manager) notify(kind domain.NotificationType, title, message string) {
	m.notifier.Notify(m.ctx, ports.NotificationParams{
		Title:   title,
		Message: message,
		Type:    kind,
	})
}
