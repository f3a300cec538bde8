package http

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
	statusDegraded  = "degraded"

	healthCheckTimeout = 5 * time.Second
)

// HealthChecker defines the interface for health check dependencies
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RoomStats reports the live state of the websocket hub.
type RoomStats interface {
	GetClientCount() int
	GetRoomCount() int
}

// HealthHandler serves the liveness, readiness and diagnostic probes of the
// gateway. The message store is the only hard dependency; the hub is reported
// but never fails a probe.
type HealthHandler struct {
	db        HealthChecker
	rooms     RoomStats
	startTime time.Time
	version   string
}

// NewHealthHandler creates a new health handler. rooms may be nil.
func NewHealthHandler(db HealthChecker, rooms RoomStats, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		rooms:     rooms,
		startTime: time.Now(),
		version:   version,
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Timestamp string           `json:"timestamp"`
	Version   string           `json:"version,omitempty"`
	Uptime    string           `json:"uptime,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
}

// Check represents an individual health check result
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// RealtimeStats describes the connected websocket population.
type RealtimeStats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

// RuntimeStats is the process snapshot included in the detailed report.
type RuntimeStats struct {
	AllocBytes uint64 `json:"alloc_bytes"`
	SysBytes   uint64 `json:"sys_bytes"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`
}

// DetailedHealthResponse is the /health payload.
type DetailedHealthResponse struct {
	HealthResponse
	Realtime *RealtimeStats `json:"realtime,omitempty"`
	Runtime  RuntimeStats   `json:"runtime"`
}

// RegisterRoutes registers health check routes
func (h *HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

// HandleLiveness reports that the process is serving requests.
func (h *HealthHandler) HandleLiveness(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:    statusHealthy,
		Timestamp: now(),
	})
}

// HandleReadiness reports whether history reads and writes can be served.
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	resp := h.report(r.Context(), statusUnhealthy)
	WriteJSON(w, probeStatusCode(resp.Status), resp)
}

// HandleHealth returns the readiness report plus hub and runtime figures.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := DetailedHealthResponse{
		HealthResponse: h.report(r.Context(), statusDegraded),
		Runtime: RuntimeStats{
			AllocBytes: mem.Alloc,
			SysBytes:   mem.Sys,
			NumGC:      mem.NumGC,
			Goroutines: runtime.NumGoroutine(),
		},
	}
	if h.rooms != nil {
		resp.Realtime = &RealtimeStats{
			Connections: h.rooms.GetClientCount(),
			Rooms:       h.rooms.GetRoomCount(),
		}
	}

	WriteJSON(w, probeStatusCode(resp.Status), resp)
}

// report runs the dependency checks. failed is the overall status used when
// one of them is not healthy.
func (h *HealthHandler) report(ctx context.Context, failed string) HealthResponse {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	db := h.checkDatabase(ctx)
	overall := statusHealthy
	if db.Status != statusHealthy {
		overall = failed
	}

	return HealthResponse{
		Status:    overall,
		Timestamp: now(),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    map[string]Check{"database": db},
	}
}

// checkDatabase checks the database connection
func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	if h.db == nil {
		return Check{Status: statusUnhealthy, Message: "Database not configured"}
	}

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start).String()
	if err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error(), Latency: latency}
	}
	return Check{Status: statusHealthy, Latency: latency}
}

func probeStatusCode(status string) int {
	if status == statusHealthy {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
