package http

import (
	"context"
	"errors"
	stdhttp "net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type roomCounts struct{ clients, rooms int }

func (c roomCounts) GetClientCount() int { return c.clients }
func (c roomCounts) GetRoomCount() int   { return c.rooms }

func newHealthRouter(db HealthChecker, rooms RoomStats) chi.Router {
	r := chi.NewRouter()
	NewHealthHandler(db, rooms, "1.2.3").RegisterRoutes(r)
	return r
}

func TestHealthHandler_Healthy(t *testing.T) {
	router := newHealthRouter(pingFunc(func(context.Context) error { return nil }), roomCounts{clients: 3, rooms: 2})

	t.Run("live", func(t *testing.T) {
		rec := do(t, router, stdhttp.MethodGet, "/health/live", "", nil)
		require.Equal(t, stdhttp.StatusOK, rec.Code)
		assert.Equal(t, "healthy", decode[HealthResponse](t, rec).Status)
	})

	t.Run("ready", func(t *testing.T) {
		rec := do(t, router, stdhttp.MethodGet, "/health/ready", "", nil)
		require.Equal(t, stdhttp.StatusOK, rec.Code)
		body := decode[HealthResponse](t, rec)
		assert.Equal(t, "1.2.3", body.Version)
		assert.Equal(t, "healthy", body.Checks["database"].Status)
	})

	t.Run("detailed", func(t *testing.T) {
		rec := do(t, router, stdhttp.MethodGet, "/health", "", nil)
		require.Equal(t, stdhttp.StatusOK, rec.Code)
		body := decode[DetailedHealthResponse](t, rec)
		require.NotNil(t, body.Realtime)
		assert.Equal(t, RealtimeStats{Connections: 3, Rooms: 2}, *body.Realtime)
		assert.Positive(t, body.Runtime.Goroutines)
	})
}

func TestHealthHandler_DatabaseDown(t *testing.T) {
	router := newHealthRouter(pingFunc(func(context.Context) error { return errors.New("connection refused") }), nil)

	rec := do(t, router, stdhttp.MethodGet, "/health/ready", "", nil)
	require.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
	body := decode[HealthResponse](t, rec)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["database"].Message)

	rec = do(t, router, stdhttp.MethodGet, "/health", "", nil)
	require.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
	detailed := decode[DetailedHealthResponse](t, rec)
	assert.Equal(t, "degraded", detailed.Status)
	assert.Nil(t, detailed.Realtime)

	// Liveness does not depend on the database.
	rec = do(t, newHealthRouter(nil, nil), stdhttp.MethodGet, "/health/live", "", nil)
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
}
