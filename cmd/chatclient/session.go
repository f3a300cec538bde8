package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/topcenter/portal-realtime/internal/core/domain"
	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
	"github.com/topcenter/portal-realtime/internal/core/ports"
)

const helpText = `Commandes :
  /notifications      liste les notifications
  /read [id]          marque une notification (ou toutes) comme lue
  /clear              vide les notifications
  /permission         active les notifications natives
  /background on|off  simule un onglet masqué
  /status             état de la connexion et progression de la conversation
  /quit               quitte`

// chatConnection is the part of the connection manager the session drives.
type chatConnection interface {
	SendMessage(content string) bool
	State() domain.ConnectionState
	Messages() []domain.ChatMessage
}

// notificationCenter is the part of the notification registry the session drives.
type notificationCenter interface {
	List() []domain.Notification
	UnreadCount() int
	MarkAsRead(id string) error
	MarkAllAsRead()
	Clear()
	RequestPermission(ctx context.Context) (domain.Permission, error)
}

type printer interface {
	Println(line string) error
}

type backgroundToggle interface {
	SetBackground(background bool)
}

// session maps terminal lines onto manager, registry and analyzer calls.
type session struct {
	conn          chatConnection
	notifications notificationCenter
	analyzer      ports.IntentAnalyzer
	visibility    backgroundToggle
	out           printer
}

func newSession(
	conn chatConnection,
	notifications notificationCenter,
	analyzer ports.IntentAnalyzer,
	visibility backgroundToggle,
	out printer,
) *session {
	return &session{
		conn:          conn,
		notifications: notifications,
		analyzer:      analyzer,
		visibility:    visibility,
		out:           out,
	}
}

// handleLine runs one line of input. It reports whether the user asked to quit.
func (s *session) handleLine(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	if !strings.HasPrefix(line, "/") {
		s.send(line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		s.println(helpText)
	case "/notifications":
		s.listNotifications()
	case "/read":
		s.markRead(arg)
	case "/clear":
		s.notifications.Clear()
		s.println("Notifications effacées.")
	case "/permission":
		s.requestPermission(ctx)
	case "/background":
		s.toggleBackground(arg)
	case "/status":
		s.status()
	default:
		s.println("Commande inconnue, tapez /help.")
	}
	return false
}

func (s *session) send(content string) {
	if !s.conn.SendMessage(content) {
		return
	}

	analysis := s.analyzer.AnalyzeUserIntent(content)
	if analysis.Confidence <= domain.ProgressionThreshold {
		return
	}
	suggestions := s.analyzer.SuggestFollowUps(analysis.Intent)
	if len(suggestions) == 0 {
		return
	}
	s.println(fmt.Sprintf("  (%s) suggestions : %s", analysis.Intent, strings.Join(suggestions, " | ")))
}

func (s *session) listNotifications() {
	items := s.notifications.List()
	if len(items) == 0 {
		s.println("Aucune notification.")
		return
	}
	s.println(fmt.Sprintf("%d notification(s), %d non lue(s) :", len(items), s.notifications.UnreadCount()))
	for _, n := range items {
		mark := lo.Ternary(n.Read, " ", "*")
		s.println(fmt.Sprintf(" %s %s %s: %s", mark, n.ID, n.Title, n.Message))
	}
}

func (s *session) markRead(id string) {
	if id == "" {
		s.notifications.MarkAllAsRead()
		s.println("Toutes les notifications sont lues.")
		return
	}
	if err := s.notifications.MarkAsRead(id); err != nil {
		if errors.Is(err, apperrors.ErrNotificationNotFound) {
			s.println("Notification introuvable : " + id)
			return
		}
		s.println("Erreur : " + err.Error())
	}
}

func (s *session) requestPermission(ctx context.Context) {
	perm, err := s.notifications.RequestPermission(ctx)
	switch {
	case errors.Is(err, apperrors.ErrPermissionDenied):
		s.println("Notifications natives refusées.")
	case err != nil:
		s.println("Erreur : " + err.Error())
	case perm != domain.PermissionGranted:
		s.println("Permission : " + string(perm))
	}
}

func (s *session) toggleBackground(arg string) {
	switch arg {
	case "on":
		s.visibility.SetBackground(true)
		s.println("Onglet masqué.")
	case "off":
		s.visibility.SetBackground(false)
		s.println("Onglet visible.")
	default:
		s.println("Usage : /background on|off")
	}
}

func (s *session) status() {
	state := s.conn.State()
	s.println(fmt.Sprintf("Connexion : %s (tentatives : %d)", state.Phase, state.ReconnectAttempts))

	progression := s.analyzer.AnalyzeConversationProgression(s.conn.Messages())
	s.println("Progression : " + string(progression))
}

func (s *session) println(line string) {
	_ = s.out.Println(line)
}
