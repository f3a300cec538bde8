package terminal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gookit/color"

	"github.com/topcenter/portal-realtime/internal/core/domain"
	"github.com/topcenter/portal-realtime/internal/core/ports"
)

// bell is the ASCII BEL control character, the terminal's audio cue.
const bell = "\a"

var toastStyles = map[domain.NotificationType]color.Style{
	domain.NotificationInfo:    color.New(color.FgCyan),
	domain.NotificationSuccess: color.New(color.FgGreen),
	domain.NotificationWarning: color.New(color.FgYellow),
	domain.NotificationError:   color.New(color.FgRed, color.OpBold),
}

var nativeStyle = color.New(color.BgBlack, color.FgGreen, color.OpBold)

// Sink renders notification side effects on a terminal.
// It implements the ports.NotificationSink interface.
type Sink struct {
	mu      sync.Mutex
	out     io.Writer
	colours bool
	logger  *slog.Logger
}

var _ ports.NotificationSink = (*Sink)(nil)

// NewSink creates a sink writing to out. colours toggles ANSI styling.
func NewSink(out io.Writer, colours bool, logger *slog.Logger) *Sink {
	return &Sink{
		out:     out,
		colours: colours,
		logger:  logger.With("component", "terminal_sink"),
	}
}

// Toast prints a one-line in-app notification.
func (s *Sink) Toast(n domain.Notification) error {
	line := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(n.Type)), n.Title, n.Message)
	if s.colours {
		line = toastStyles[n.Type].Render(line)
	}
	return s.println(line)
}

// ShowNative prints the highlighted banner standing in for an OS notification.
func (s *Sink) ShowNative(n domain.Notification) error {
	line := fmt.Sprintf("  ====== %s | %s ======", n.Title, n.Message)
	if s.colours {
		line = nativeStyle.Render(line)
	}
	return s.println(line)
}

// PlayCue rings the terminal bell.
func (s *Sink) PlayCue() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.out, bell)
	return err
}

// Println writes a free-form line, serialized with the notification output.
func (s *Sink) Println(line string) error {
	return s.println(line)
}

func (s *Sink) println(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.out, line); err != nil {
		s.logger.Warn("failed to write to terminal", "error", err)
		return err
	}
	return nil
}

// Permissions is a PermissionProvider for terminals. There is no OS dialog:
// a request grants unless the user opted out with --no-native.
type Permissions struct {
	mu      sync.Mutex
	current domain.Permission
	allow   bool
}

var _ ports.PermissionProvider = (*Permissions)(nil)

// NewPermissions creates a provider starting in the given state.
func NewPermissions(initial domain.Permission, allow bool) *Permissions {
	return &Permissions{current: initial, allow: allow}
}

// Permission returns the current state.
func (p *Permissions) Permission() domain.Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// RequestPermission resolves the permission.
func (p *Permissions) RequestPermission(ctx context.Context) (domain.Permission, error) {
	if err := ctx.Err(); err != nil {
		return p.Permission(), err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.allow {
		p.current = domain.PermissionGranted
	} else {
		p.current = domain.PermissionDenied
	}
	return p.current, nil
}

// Visibility is a VisibilityProbe toggled by the terminal client, standing in
// for the page visibility of a browser tab.
type Visibility struct {
	hidden atomic.Bool
}

var _ ports.VisibilityProbe = (*Visibility)(nil)

// NewVisibility creates a probe. background marks the client as hidden.
func NewVisibility(background bool) *Visibility {
	v := &Visibility{}
	v.hidden.Store(background)
	return v
}

// Visible reports whether the client is in the foreground.
func (v *Visibility) Visible() bool {
	return !v.hidden.Load()
}

// SetBackground toggles the hidden state.
func (v *Visibility) SetBackground(background bool) {
	v.hidden.Store(background)
}
