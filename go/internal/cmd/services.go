package main

import (
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sketchroom/go/internal/canvas/gateway"
	"github.com/mcdev12/sketchroom/go/internal/canvas/room"
)

type Services struct {
	Rooms     *room.Manager
	Gateway   *gateway.Service
	Publisher *gateway.NATSPublisher
}

func setupServices(config *Config) *Services {
	// Publisher → room registry → gateway
	clock := clockwork.NewRealClock()

	var publisher room.Publisher = room.NoOpPublisher{}
	var natsPublisher *gateway.NATSPublisher
	if config.NATS.URL != "" {
		natsConfig := gateway.DefaultNATSConfig()
		natsConfig.URL = config.NATS.URL
		natsConfig.SubjectPrefix = config.NATS.SubjectPrefix

		p, err := gateway.NewNATSPublisher(natsConfig, clock)
		if err != nil {
			// Mirroring is optional; the canvas works without it
			log.Error().Err(err).Str("url", config.NATS.URL).Msg("NATS unavailable, room events will not be mirrored")
		} else {
			publisher = p
			natsPublisher = p
		}
	}

	rooms := room.NewManager(clock, publisher)

	gatewayConfig := gateway.DefaultConfig()
	ws := &gatewayConfig.ConnectionConfig
	ws.WriteTimeout = config.WebSocket.WriteTimeout
	ws.ReadTimeout = config.WebSocket.ReadTimeout
	ws.PingInterval = config.WebSocket.PingInterval
	ws.MaxMessageSize = config.WebSocket.MaxMessageSize
	ws.ReadBufferSize = config.WebSocket.ReadBufferSize
	ws.WriteBufferSize = config.WebSocket.WriteBufferSize
	ws.SendQueueSize = config.WebSocket.SendQueueSize
	gatewayConfig.ExportConfig = gateway.ExportConfig{
		Width:  config.Export.Width,
		Height: config.Export.Height,
	}

	return &Services{
		Rooms:     rooms,
		Gateway:   gateway.NewService(gatewayConfig, rooms, clock),
		Publisher: natsPublisher,
	}
}
