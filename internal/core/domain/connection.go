package domain

import (
	"math"
	"time"
)

// Reconnect backoff bounds.
const (
	ReconnectBaseDelay = time.Second
	ReconnectMaxDelay  = 30 * time.Second
	ReconnectFactor    = 1.5
)

// ConnectionPhase is the lifecycle phase of a client connection.
type ConnectionPhase int

const (
	PhaseDisconnected ConnectionPhase = iota
	PhaseConnecting
	PhaseConnected
	PhaseBackoff
)

// String returns the string representation of a ConnectionPhase.
func (p ConnectionPhase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// ConnectionState is owned by a single connection manager and only changes
// through the transition methods below.
type ConnectionState struct {
	Phase             ConnectionPhase
	IsConnected       bool
	ReconnectAttempts int
}

// NextDelay returns min(30s, 1.5^attempts * 1s).
func NextDelay(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	delay := math.Pow(ReconnectFactor, float64(attempts)) * float64(ReconnectBaseDelay)
	if delay >= float64(ReconnectMaxDelay) || math.IsInf(delay, 1) {
		return ReconnectMaxDelay
	}
	return time.Duration(delay)
}

// CanDial reports whether a dial may start from the current phase.
func (s ConnectionState) CanDial() bool {
	return s.Phase == PhaseDisconnected || s.Phase == PhaseBackoff
}

// Dialing moves to Connecting.
func (s ConnectionState) Dialing() ConnectionState {
	s.Phase = PhaseConnecting
	s.IsConnected = false
	return s
}

// Opened records a successful handshake and resets the attempt counter.
func (s ConnectionState) Opened() ConnectionState {
	s.Phase = PhaseConnected
	s.IsConnected = true
	s.ReconnectAttempts = 0
	return s
}

// Closed records a lost or failed connection. It returns the next state and
// the delay to wait before dialing again, computed from the attempts made so far.
func (s ConnectionState) Closed() (ConnectionState, time.Duration) {
	delay := NextDelay(s.ReconnectAttempts)
	s.Phase = PhaseBackoff
	s.IsConnected = false
	s.ReconnectAttempts++
	return s, delay
}

// Stopped is terminal for the owning manager; no reconnect follows.
func (s ConnectionState) Stopped() ConnectionState {
	s.Phase = PhaseDisconnected
	s.IsConnected = false
	return s
}
