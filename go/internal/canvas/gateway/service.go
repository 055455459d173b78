package gateway

import (
	"context"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sketchroom/go/internal/canvas/room"
)

// Service is the canvas gateway: WebSocket connections plus the read-only
// room API.
type Service struct {
	rooms             *room.Manager
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// Config holds configuration for the canvas gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	ExportConfig     ExportConfig
}

// DefaultConfig returns default configuration for the canvas gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		ExportConfig:     DefaultExportConfig(),
	}
}

// NewService creates a new canvas gateway service
func NewService(config Config, rooms *room.Manager, clock clockwork.Clock) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, rooms, clock)

	return &Service{
		rooms:             rooms,
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		stateHandler:      NewStateHandler(rooms, config.ExportConfig),
	}
}

// Start blocks until ctx is cancelled, then closes every connection.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting canvas gateway service")
	<-ctx.Done()
	log.Info().Msg("canvas gateway service shutting down")
	return s.Stop()
}

// Stop closes every live connection. Each close removes the member from its
// room.
func (s *Service) Stop() error {
	s.connectionManager.mu.RLock()
	conns := make([]*Connection, 0, len(s.connectionManager.connections))
	for _, c := range s.connectionManager.connections {
		conns = append(conns, c)
	}
	s.connectionManager.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
	log.Info().Int("closed_connections", len(conns)).Msg("canvas gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket and state routes
func (s *Service) RegisterRoutes(r *mux.Router) {
	s.wsHandler.RegisterRoutes(r)
	s.stateHandler.RegisterStateRoutes(r)
	log.Info().Msg("canvas gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "canvas_gateway"
	stats["status"] = "running"
	return stats
}

// Rooms returns the room registry.
func (s *Service) Rooms() *room.Manager {
	return s.rooms
}
