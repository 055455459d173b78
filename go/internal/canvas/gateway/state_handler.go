package gateway

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sketchroom/go/internal/canvas/export"
	"github.com/mcdev12/sketchroom/go/internal/canvas/room"
	"github.com/mcdev12/sketchroom/go/internal/models"
)

// ExportConfig sets the canvas size used for server-side exports.
type ExportConfig struct {
	Width  int
	Height int
}

// DefaultExportConfig returns the default export size.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{Width: 1280, Height: 720}
}

// RoomStateResponse is the full state of one room
type RoomStateResponse struct {
	Room    room.Stats        `json:"room"`
	Users   []models.UserInfo `json:"users"`
	Strokes []models.Stroke   `json:"strokes"`
}

// StateHandler serves read-only room state over HTTP. It never creates rooms.
type StateHandler struct {
	rooms  *room.Manager
	export ExportConfig
}

// NewStateHandler creates a new state handler
func NewStateHandler(rooms *room.Manager, cfg ExportConfig) *StateHandler {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg = DefaultExportConfig()
	}
	return &StateHandler{rooms: rooms, export: cfg}
}

// HandleListRooms handles GET /api/rooms
func (h *StateHandler) HandleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rooms.Rooms())
}

// HandleGetRoomState handles GET /api/rooms/{room}/state
func (h *StateHandler) HandleGetRoomState(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, RoomStateResponse{
		Room:    rm.Stats(),
		Users:   rm.Roster(),
		Strokes: rm.Snapshot(),
	})
}

// HandleExportPNG handles GET /api/rooms/{room}/export.png
func (h *StateHandler) HandleExportPNG(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.lookup(w, r)
	if !ok {
		return
	}
	width, height := h.size(r)

	var buf bytes.Buffer
	if err := export.PNG(&buf, width, height, rm.Snapshot()); err != nil {
		log.Error().Err(err).Str("room_id", rm.ID).Msg("failed to export png")
		http.Error(w, "Failed to export room", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// HandleExportPDF handles GET /api/rooms/{room}/export.pdf
func (h *StateHandler) HandleExportPDF(w http.ResponseWriter, r *http.Request) {
	rm, ok := h.lookup(w, r)
	if !ok {
		return
	}
	width, height := h.size(r)

	var buf bytes.Buffer
	if err := export.PDF(&buf, float64(width), float64(height), rm.Snapshot()); err != nil {
		log.Error().Err(err).Str("room_id", rm.ID).Msg("failed to export pdf")
		http.Error(w, "Failed to export room", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+rm.ID+`.pdf"`)
	w.Write(buf.Bytes())
}

func (h *StateHandler) lookup(w http.ResponseWriter, r *http.Request) (*room.Room, bool) {
	id := mux.Vars(r)["room"]
	rm, err := h.rooms.Get(id)
	if errors.Is(err, room.ErrRoomNotFound) {
		http.Error(w, "Room not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Str("room_id", id).Msg("failed to get room")
		http.Error(w, "Failed to get room", http.StatusInternalServerError)
		return nil, false
	}
	return rm, true
}

// size reads optional w/h query overrides, capped at 4x the configured size.
func (h *StateHandler) size(r *http.Request) (int, int) {
	width := queryInt(r, "w", h.export.Width, 4*h.export.Width)
	height := queryInt(r, "h", h.export.Height, 4*h.export.Height)
	return width, height
}

func queryInt(r *http.Request, key string, def, max int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// RegisterStateRoutes registers state-related HTTP routes
func (h *StateHandler) RegisterStateRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/rooms").Subrouter()
	api.HandleFunc("", h.HandleListRooms).Methods(http.MethodGet)
	api.HandleFunc("/{room}/state", h.HandleGetRoomState).Methods(http.MethodGet)
	api.HandleFunc("/{room}/export.png", h.HandleExportPNG).Methods(http.MethodGet)
	api.HandleFunc("/{room}/export.pdf", h.HandleExportPDF).Methods(http.MethodGet)
}
