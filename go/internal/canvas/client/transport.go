package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sketchroom/go/internal/canvas/events"
)

// ErrTransportClosed is returned by Run once its context is cancelled.
var ErrTransportClosed = errors.New("transport closed")

// State is the connection lifecycle of a Transport.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TransportConfig holds transport tunables.
type TransportConfig struct {
	URL            string
	ReconnectDelay time.Duration
	WriteTimeout   time.Duration
	SendQueueSize  int
	Dialer         *websocket.Dialer
	Clock          clockwork.Clock
}

// DefaultTransportConfig returns the standard configuration for url.
func DefaultTransportConfig(rawURL string) TransportConfig {
	return TransportConfig{
		URL:            rawURL,
		ReconnectDelay: 3 * time.Second,
		WriteTimeout:   10 * time.Second,
		SendQueueSize:  256,
		Dialer:         websocket.DefaultDialer,
		Clock:          clockwork.NewRealClock(),
	}
}

// Transport keeps one websocket connection to the server alive, reconnecting
// after a fixed delay whenever it drops. Messages sent while disconnected are
// dropped; the next welcome resynchronizes the engine.
type Transport struct {
	cfg     TransportConfig
	handler func(events.Envelope)

	mu       sync.Mutex
	state    State
	out      chan []byte
	onChange []func(State)
}

// NewTransport creates a transport that hands every decoded message to handler.
func NewTransport(cfg TransportConfig, handler func(events.Envelope)) *Transport {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 3 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.SendQueueSize <= 0 {
		cfg.SendQueueSize = 256
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &Transport{cfg: cfg, handler: handler}
}

// SetHandler replaces the message handler. It must be called before Run.
func (t *Transport) SetHandler(handler func(events.Envelope)) {
	t.handler = handler
}

// OnStateChange registers fn to be called after every state transition.
func (t *Transport) OnStateChange(fn func(State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = append(t.onChange, fn)
}

// State returns the current connection state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Send encodes and queues a message. It reports false when the transport is
// not connected or the outbound queue is full.
func (t *Transport) Send(typ events.Type, payload interface{}) bool {
	data, err := events.Encode(typ, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to encode message")
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateConnected || t.out == nil {
		return false
	}
	select {
	case t.out <- data:
		return true
	default:
		log.Warn().Str("event_type", string(typ)).Msg("send queue full, dropping message")
		return false
	}
}

// Run connects and keeps reconnecting until ctx is cancelled.
func (t *Transport) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			t.transition(StateClosed, nil)
			return ErrTransportClosed
		}

		t.transition(StateConnecting, nil)
		conn, _, err := t.cfg.Dialer.DialContext(ctx, t.cfg.URL, nil)
		if err != nil {
			log.Warn().Err(err).Str("url", t.cfg.URL).Msg("connect failed")
		} else {
			t.serve(ctx, conn)
		}

		t.transition(StateDisconnected, nil)

		select {
		case <-ctx.Done():
			t.transition(StateClosed, nil)
			return ErrTransportClosed
		case <-t.cfg.Clock.After(t.cfg.ReconnectDelay):
			log.Info().Str("url", t.cfg.URL).Msg("reconnecting")
		}
	}
}

func (t *Transport) serve(ctx context.Context, conn *websocket.Conn) {
	out := make(chan []byte, t.cfg.SendQueueSize)
	done := make(chan struct{})

	t.transition(StateConnected, out)
	log.Info().Str("url", t.cfg.URL).Msg("connected")

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	go func() {
		for {
			select {
			case <-done:
				return
			case data := <-out:
				conn.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Debug().Err(err).Msg("write failed")
					t.detach(out)
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				log.Warn().Err(err).Msg("connection lost")
			}
			break
		}

		env, err := events.Decode(data)
		if err != nil {
			log.Warn().Err(err).Msg("dropping malformed message")
			continue
		}
		if t.handler != nil {
			t.handler(env)
		}
	}

	// Send must stop accepting frames before the writer exits.
	t.transition(StateDisconnected, nil)
	close(done)
	conn.Close()
}

// detach stops Send from queueing onto out once its writer is gone.
func (t *Transport) detach(out chan []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.out == out {
		t.out = nil
	}
}

func (t *Transport) transition(s State, out chan []byte) {
	t.mu.Lock()
	if t.state == s {
		t.mu.Unlock()
		return
	}
	t.state = s
	t.out = out
	listeners := append([]func(State){}, t.onChange...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(s)
	}
}

// BuildURL derives the websocket endpoint for a room from a server address.
// http and https schemes map to ws and wss; a bare host:port gets ws.
func BuildURL(base, room, name string) (string, error) {
	if base == "" {
		return "", errors.New("empty server address")
	}
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		u, err = url.Parse("ws://" + base)
		if err != nil {
			return "", fmt.Errorf("parse server address: %w", err)
		}
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	q := u.Query()
	if room != "" {
		q.Set("room", room)
	}
	if name != "" {
		q.Set("name", name)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
