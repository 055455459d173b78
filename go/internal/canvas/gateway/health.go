package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type HealthStatus struct {
	Healthy        bool
	Rooms          int
	Connections    int
	Strokes        int
	NATSConfigured bool
	NATSConnected  bool
	EventsMirrored uint64
	MirrorFailures uint64
	Errors         []string
}

type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// ServiceHealthChecker reports on the gateway and its optional NATS mirror.
type ServiceHealthChecker struct {
	service   *Service
	publisher *NATSPublisher
}

// NewServiceHealthChecker creates a checker. publisher may be nil when
// mirroring is disabled.
func NewServiceHealthChecker(service *Service, publisher *NATSPublisher) *ServiceHealthChecker {
	return &ServiceHealthChecker{service: service, publisher: publisher}
}

func (h *ServiceHealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Healthy:     true,
		Rooms:       h.service.rooms.Len(),
		Connections: h.service.connectionManager.Len(),
		Errors:      []string{},
	}
	for _, rs := range h.service.rooms.Rooms() {
		status.Strokes += rs.Strokes
	}

	// Check NATS connection
	if h.publisher != nil {
		status.NATSConfigured = true
		status.NATSConnected = h.publisher.Connected()
		status.EventsMirrored, status.MirrorFailures = h.publisher.Stats()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	return status
}

// HTTP handler helper
func (h *ServiceHealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	response := map[string]interface{}{
		"healthy":         status.Healthy,
		"rooms":           status.Rooms,
		"connections":     status.Connections,
		"strokes":         status.Strokes,
		"nats_configured": status.NATSConfigured,
		"nats_connected":  status.NATSConnected,
		"events_mirrored": status.EventsMirrored,
		"mirror_failures": status.MirrorFailures,
		"errors":          status.Errors,
	}

	w.Header().Set("Content-Type", "application/json")

	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("failed to encode health response")
	}
}

// MetricsHandler serves the health status in the Prometheus text format
type MetricsHandler struct {
	checker HealthChecker
}

func NewMetricsHandler(checker HealthChecker) *MetricsHandler {
	return &MetricsHandler{checker: checker}
}

func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprint(w, m.Export(r.Context()))
}

func (m *MetricsHandler) Export(ctx context.Context) string {
	status := m.checker.Check(ctx)

	return fmt.Sprintf(`# HELP canvas_healthy Whether the canvas server is healthy
# TYPE canvas_healthy gauge
canvas_healthy %d

# HELP canvas_rooms Number of rooms
# TYPE canvas_rooms gauge
canvas_rooms %d

# HELP canvas_connections Number of live websocket connections
# TYPE canvas_connections gauge
canvas_connections %d

# HELP canvas_strokes Number of strokes held across all rooms
# TYPE canvas_strokes gauge
canvas_strokes %d

# HELP canvas_nats_connected Whether the NATS mirror is connected
# TYPE canvas_nats_connected gauge
canvas_nats_connected %d

# HELP canvas_events_mirrored_total Room events published to NATS
# TYPE canvas_events_mirrored_total counter
canvas_events_mirrored_total %d

# HELP canvas_mirror_failures_total Room events NATS rejected
# TYPE canvas_mirror_failures_total counter
canvas_mirror_failures_total %d
`,
		boolGauge(status.Healthy),
		status.Rooms,
		status.Connections,
		status.Strokes,
		boolGauge(status.NATSConnected),
		status.EventsMirrored,
		status.MirrorFailures,
	)
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}
