package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sketchroom/go/internal/canvas/room"
)

// DefaultDisplayName is used when a client connects without a name.
const DefaultDisplayName = "Anonymous"

// WebSocketHandler handles WebSocket upgrade requests for canvas rooms
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandleRoomConnection handles GET /ws?room=<id>&name=<display name>
func (h *WebSocketHandler) HandleRoomConnection(w http.ResponseWriter, r *http.Request) {
	roomID := strings.TrimSpace(r.URL.Query().Get("room"))
	if roomID == "" {
		roomID = room.DefaultRoomID
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = DefaultDisplayName
	}

	// The upgrader has already replied when this fails
	if _, err := h.connectionManager.UpgradeConnection(w, r, roomID, name); err != nil {
		log.Error().
			Err(err).
			Str("room_id", roomID).
			Str("name", name).
			Msg("failed to open room connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}

// RegisterRoutes registers WebSocket routes
func (h *WebSocketHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws", h.HandleRoomConnection).Methods(http.MethodGet)
	r.HandleFunc("/ws/stats", h.HandleConnectionStats).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
