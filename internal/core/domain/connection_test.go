package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/topcenter/portal-realtime/internal/core/domain"
)

func TestNextDelay(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, time.Second},
		{1, 1500 * time.Millisecond},
		{2, 2250 * time.Millisecond},
		{3, 3375 * time.Millisecond},
		{8, 25628906250 * time.Nanosecond},
		{9, 30 * time.Second},
		{50, 30 * time.Second},
		{10_000, 30 * time.Second},
		{-3, time.Second},
	}

	for _, tt := range tests {
		got := domain.NextDelay(tt.attempts)
		assert.InDelta(t, float64(tt.want), float64(got), float64(time.Microsecond), "attempts=%d", tt.attempts)
	}
}

func TestNextDelay_MonotoneAndCapped(t *testing.T) {
	prev := time.Duration(0)
	for a := 0; a < 200; a++ {
		d := domain.NextDelay(a)
		assert.GreaterOrEqual(t, d, prev, "attempts=%d", a)
		assert.LessOrEqual(t, d, 30000*time.Millisecond, "attempts=%d", a)
		prev = d
	}
}

func TestConnectionState_Transitions(t *testing.T) {
	var s domain.ConnectionState
	assert.Equal(t, domain.PhaseDisconnected, s.Phase)
	assert.True(t, s.CanDial())

	s = s.Dialing()
	assert.Equal(t, domain.PhaseConnecting, s.Phase)
	assert.False(t, s.CanDial())

	// Two failed dials.
	s, d0 := s.Closed()
	assert.Equal(t, time.Second, d0)
	assert.Equal(t, 1, s.ReconnectAttempts)
	assert.Equal(t, domain.PhaseBackoff, s.Phase)
	assert.True(t, s.CanDial())

	s, d1 := s.Dialing().Closed()
	assert.InDelta(t, float64(1500*time.Millisecond), float64(d1), float64(time.Microsecond))
	assert.Equal(t, 2, s.ReconnectAttempts)

	s = s.Dialing().Opened()
	assert.True(t, s.IsConnected)
	assert.Equal(t, domain.PhaseConnected, s.Phase)
	assert.Zero(t, s.ReconnectAttempts)
	assert.False(t, s.CanDial())

	s = s.Stopped()
	assert.False(t, s.IsConnected)
	assert.Equal(t, "disconnected", s.Phase.String())
}
