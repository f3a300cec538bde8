package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/topcenter/portal-realtime/internal/core/domain"
	apperrors "github.com/topcenter/portal-realtime/internal/core/errors"
	"github.com/topcenter/portal-realtime/internal/core/ports"
)

// EffectKind names a notification side effect.
type EffectKind int

const (
	EffectToast EffectKind = iota
	EffectNative
	EffectAudioCue
)

// String returns the string representation of an EffectKind.
func (k EffectKind) String() string {
	switch k {
	case EffectToast:
		return "toast"
	case EffectNative:
		return "native"
	case EffectAudioCue:
		return "audio_cue"
	default:
		return "unknown"
	}
}

// Effect is a side effect produced by a state transition. Effects are run
// after the transition has been committed.
type Effect struct {
	Kind         EffectKind
	Notification domain.Notification
}

// NotificationState is an immutable snapshot of the registry.
// Items are ordered most recent first.
type NotificationState struct {
	Items      []domain.Notification
	Permission domain.Permission
}

// UnreadCount returns the number of unread notifications.
func (s NotificationState) UnreadCount() int {
	return lo.CountBy(s.Items, func(n domain.Notification) bool { return !n.Read })
}

// Add prepends n and returns the effects it triggers. The native notification
// and the audio cue only fire when permission is granted and the page is hidden.
func (s NotificationState) Add(n domain.Notification, visible bool) (NotificationState, []Effect) {
	items := make([]domain.Notification, 0, len(s.Items)+1)
	items = append(items, n)
	items = append(items, s.Items...)

	effects := []Effect{{Kind: EffectToast, Notification: n}}
	if s.Permission == domain.PermissionGranted && !visible {
		effects = append(effects,
			Effect{Kind: EffectNative, Notification: n},
			Effect{Kind: EffectAudioCue, Notification: n},
		)
	}

	return NotificationState{Items: items, Permission: s.Permission}, effects
}

// MarkAsRead flags a single notification. The boolean is false when id is unknown.
func (s NotificationState) MarkAsRead(id string) (NotificationState, bool) {
	_, idx, found := lo.FindIndexOf(s.Items, func(n domain.Notification) bool { return n.ID == id })
	if !found {
		return s, false
	}
	items := append([]domain.Notification(nil), s.Items...)
	items[idx].Read = true
	return NotificationState{Items: items, Permission: s.Permission}, true
}

// MarkAllAsRead flags every notification.
func (s NotificationState) MarkAllAsRead() NotificationState {
	items := lo.Map(s.Items, func(n domain.Notification, _ int) domain.Notification {
		n.Read = true
		return n
	})
	return NotificationState{Items: items, Permission: s.Permission}
}

// Clear drops every notification.
func (s NotificationState) Clear() NotificationState {
	return NotificationState{Items: []domain.Notification{}, Permission: s.Permission}
}

// WithPermission records a new permission value.
func (s NotificationState) WithPermission(p domain.Permission) NotificationState {
	s.Permission = p
	return s
}

// NotificationRegistry is the single source of truth for in-app notifications.
// It is created once at the application root and passed to its consumers.
type NotificationRegistry struct {
	mu          sync.Mutex
	state       NotificationState
	sink        ports.NotificationSink
	permissions ports.PermissionProvider
	visibility  ports.VisibilityProbe
	now         func() time.Time
	subscribers map[int]chan NotificationState
	nextSubID   int
	logger      *slog.Logger
}

var _ ports.Notifier = (*NotificationRegistry)(nil)

// NewNotificationRegistry creates a registry. The permission is read once here;
// the registry never requests it on its own.
func NewNotificationRegistry(
	sink ports.NotificationSink,
	permissions ports.PermissionProvider,
	visibility ports.VisibilityProbe,
	logger *slog.Logger,
) *NotificationRegistry {
	return &NotificationRegistry{
		state: NotificationState{
			Items:      []domain.Notification{},
			Permission: permissions.Permission(),
		},
		sink:        sink,
		permissions: permissions,
		visibility:  visibility,
		now:         time.Now,
		subscribers: make(map[int]chan NotificationState),
		logger:      logger.With("component", "notification_registry"),
	}
}

// Add creates a notification, commits it, then runs its side effects.
func (r *NotificationRegistry) Add(title, message string, kind domain.NotificationType) domain.Notification {
	n := domain.NewNotification(title, message, kind, r.now())
	visible := r.visibility.Visible()

	r.mu.Lock()
	next, effects := r.state.Add(n, visible)
	r.commitLocked(next)
	r.mu.Unlock()

	r.runEffects(effects)
	return n
}

// Notify implements ports.Notifier.
func (r *NotificationRegistry) Notify(_ context.Context, params ports.NotificationParams) {
	r.Add(params.Title, params.Message, params.Type)
}

// MarkAsRead flags one notification as read.
func (r *NotificationRegistry) MarkAsRead(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, ok := r.state.MarkAsRead(id)
	if !ok {
		return apperrors.ErrNotificationNotFound
	}
	r.commitLocked(next)
	return nil
}

// MarkAllAsRead flags every notification as read.
func (r *NotificationRegistry) MarkAllAsRead() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitLocked(r.state.MarkAllAsRead())
}

// Clear empties the registry. This cannot be undone.
func (r *NotificationRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commitLocked(r.state.Clear())
}

// Snapshot returns the current state.
func (r *NotificationRegistry) Snapshot() NotificationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// List returns the notifications, most recent first.
func (r *NotificationRegistry) List() []domain.Notification {
	return append([]domain.Notification(nil), r.Snapshot().Items...)
}

// UnreadCount returns the number of unread notifications.
func (r *NotificationRegistry) UnreadCount() int {
	return r.Snapshot().UnreadCount()
}

// Permission returns the permission known to the registry.
func (r *NotificationRegistry) Permission() domain.Permission {
	return r.Snapshot().Permission
}

// RequestPermission asks the host for native notification permission. When it
// is granted a one-time test notification confirms it.
func (r *NotificationRegistry) RequestPermission(ctx context.Context) (domain.Permission, error) {
	perm, err := r.permissions.RequestPermission(ctx)
	if err != nil {
		r.logger.Warn("notification permission request failed", "error", err)
		return r.Permission(), err
	}

	r.mu.Lock()
	r.commitLocked(r.state.WithPermission(perm))
	r.mu.Unlock()

	switch perm {
	case domain.PermissionGranted:
		r.Add("Notifications activées", "Vous recevrez désormais les notifications du bureau.", domain.NotificationSuccess)
		return perm, nil
	case domain.PermissionDenied:
		return perm, apperrors.ErrPermissionDenied
	default:
		return perm, nil
	}
}

// Subscribe returns a channel receiving the latest snapshot after every change.
// Slow consumers only ever see the most recent snapshot.
func (r *NotificationRegistry) Subscribe() (<-chan NotificationState, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	ch := make(chan NotificationState, 1)
	r.subscribers[id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subscribers[id]; ok {
			delete(r.subscribers, id)
			close(sub)
		}
	}
	return ch, cancel
}

// commitLocked stores next and fans it out. r.mu must be held.
func (r *NotificationRegistry) commitLocked(next NotificationState) {
	r.state = next
	for _, ch := range r.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}

// runEffects executes effects one by one. A failing effect never blocks the
// others nor the state change that produced it.
func (r *NotificationRegistry) runEffects(effects []Effect) {
	for _, effect := range effects {
		if err := r.runEffect(effect); err != nil {
			r.logger.Warn("notification effect failed",
				"effect", effect.Kind.String(),
				"notification_id", effect.Notification.ID,
				"error", err,
			)
		}
	}
}

func (r *NotificationRegistry) runEffect(effect Effect) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("effect panicked: %v", p)
		}
	}()

	switch effect.Kind {
	case EffectToast:
		return r.sink.Toast(effect.Notification)
	case EffectNative:
		return r.sink.ShowNative(effect.Notification)
	case EffectAudioCue:
		return r.sink.PlayCue()
	default:
		return nil
	}
}
