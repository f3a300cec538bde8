package wsclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the subset of *websocket.Conn used by the manager.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Dialer opens a socket to the gateway.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Conn, error)
}

// Timer is a pending reconnect.
type Timer interface {
	Stop() bool
}

// Scheduler delays reconnect attempts.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// GorillaDialer dials with gorilla/websocket.
type GorillaDialer struct {
	Dialer *websocket.Dialer
	Header http.Header
}

// NewGorillaDialer returns a dialer with the given handshake timeout.
func NewGorillaDialer(handshakeTimeout time.Duration) *GorillaDialer {
	return &GorillaDialer{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

func (d *GorillaDialer) Dial(ctx context.Context, endpoint string) (Conn, error) {
	conn, resp, err := d.Dialer.DialContext(ctx, endpoint, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", redactEndpoint(endpoint), err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", redactEndpoint(endpoint), err)
	}
	return conn, nil
}

type timeScheduler struct{}

func (timeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Endpoint builds the gateway URL carrying the access token and conversation.
func Endpoint(base, token, conversationID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse websocket url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported websocket scheme %q", u.Scheme)
	}

	q := u.Query()
	if token != "" {
		q.Set("token", token)
	}
	if conversationID != "" {
		q.Set("conversation", conversationID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// redactEndpoint strips the query so tokens never reach the logs.
func redactEndpoint(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "[invalid url]"
	}
	u.RawQuery = ""
	return u.String()
}
