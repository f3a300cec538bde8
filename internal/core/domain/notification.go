package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType represents the severity of an in-app notification.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// IsValid reports whether t is a known notification type.
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationInfo, NotificationSuccess, NotificationWarning, NotificationError:
		return true
	}
	return false
}

// Notification is an in-app notice. Only the Read flag ever changes.
type Notification struct {
	ID        string
	Title     string
	Message   string
	Type      NotificationType
	Read      bool
	CreatedAt time.Time
}

// NewNotification creates an unread notification. Unknown types fall back to info.
func NewNotification(title, message string, kind NotificationType, now time.Time) Notification {
	if !kind.IsValid() {
		kind = NotificationInfo
	}
	return Notification{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Type:      kind,
		CreatedAt: now,
	}
}

// Permission mirrors the browser's native notification permission.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ParsePermission maps a raw permission value onto the tri-state.
func ParsePermission(raw string) Permission {
	switch Permission(raw) {
	case PermissionGranted:
		return PermissionGranted
	case PermissionDenied:
		return PermissionDenied
	default:
		return PermissionDefault
	}
}
