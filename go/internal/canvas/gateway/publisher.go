package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sketchroom/go/internal/canvas/events"
)

// NATSConfig holds configuration for the room event mirror
type NATSConfig struct {
	URL           string
	SubjectPrefix string // e.g. "canvas.events"
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns default NATS configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "canvas.events",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// MirroredEvent is the record published for every room broadcast
type MirroredEvent struct {
	EventID   string          `json:"eventId"`
	EventType events.Type     `json:"eventType"`
	RoomID    string          `json:"roomId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// NATSPublisher mirrors room broadcasts to <prefix>.<room>.<type> subjects.
// Publishing is fire-and-forget; failures are logged and never reach the room.
type NATSPublisher struct {
	nc     *nats.Conn
	config NATSConfig
	clock  clockwork.Clock

	published atomic.Uint64
	failed    atomic.Uint64
}

// NewNATSPublisher connects to NATS
func NewNATSPublisher(config NATSConfig, clock clockwork.Clock) (*NATSPublisher, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	opts := []nats.Option{
		nats.Name("sketchroom"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	log.Info().Str("url", nc.ConnectedUrl()).Str("prefix", config.SubjectPrefix).Msg("mirroring room events to NATS")
	return &NATSPublisher{nc: nc, config: config, clock: clock}, nil
}

// Publish implements room.Publisher.
func (p *NATSPublisher) Publish(roomID string, env events.Envelope) {
	data, err := json.Marshal(MirroredEvent{
		EventID:   uuid.NewString(),
		EventType: env.Type,
		RoomID:    roomID,
		Timestamp: p.clock.Now().UTC(),
		Payload:   env.Payload,
	})
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to marshal mirrored event")
		return
	}

	subject := Subject(p.config.SubjectPrefix, roomID, env.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		p.failed.Add(1)
		log.Warn().Err(err).Str("subject", subject).Msg("failed to publish room event")
		return
	}
	p.published.Add(1)
}

// Connected reports whether the NATS connection is currently up.
func (p *NATSPublisher) Connected() bool {
	return p != nil && p.nc != nil && p.nc.IsConnected()
}

// Stats returns the number of published and failed events.
func (p *NATSPublisher) Stats() (published, failed uint64) {
	return p.published.Load(), p.failed.Load()
}

// Close drains pending publishes and closes the connection
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("drain NATS connection: %w", err)
	}
	return nil
}

var subjectReplacer = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_", "\t", "_")

// Subject builds the NATS subject for a room event. Room ids are user input,
// so characters with meaning in subjects are replaced.
func Subject(prefix, roomID string, t events.Type) string {
	token := subjectReplacer.Replace(roomID)
	if token == "" {
		token = "_"
	}
	if prefix == "" {
		return token + "." + string(t)
	}
	return prefix + "." + token + "." + string(t)
}
