package gateway

import (
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sketchroom/go/internal/canvas/room"
	"github.com/mcdev12/sketchroom/go/internal/models"
)

// ConnectionManager manages WebSocket connections for canvas rooms
type ConnectionManager struct {
	// Live connections keyed by user id
	connections map[string]*Connection
	mu          sync.RWMutex

	rooms      *room.Manager
	dispatcher *Dispatcher

	upgrader websocket.Upgrader
	config   ConnectionConfig
	clock    clockwork.Clock
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	*models.User
	RoomID  string
	Conn    *websocket.Conn
	Manager *ConnectionManager

	room   *room.Room
	send   chan []byte
	sendMu sync.Mutex
	closed bool
	once   sync.Once

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendQueueSize   int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  16 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendQueueSize:   256,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig, rooms *room.Manager, clock clockwork.Clock) *ConnectionManager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if config.SendQueueSize <= 0 {
		config.SendQueueSize = 256
	}
	return &ConnectionManager{
		connections: make(map[string]*Connection),
		rooms:       rooms,
		dispatcher:  NewDispatcher(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
		clock:  clock,
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and joins the
// caller to roomID under a fresh identity.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, roomID, name string) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	rm, _ := cm.rooms.GetOrCreate(roomID)

	now := cm.clock.Now()
	connection := &Connection{
		User: &models.User{
			ID:       uuid.NewString(),
			Name:     name,
			Color:    randomColor(),
			JoinedAt: now,
		},
		RoomID:      rm.ID,
		Conn:        conn,
		Manager:     cm,
		room:        rm,
		send:        make(chan []byte, cm.config.SendQueueSize),
		ConnectedAt: now,
	}

	cm.registerConnection(connection)
	go connection.writePump()

	if err := rm.Join(connection); err != nil {
		connection.close()
		return nil, fmt.Errorf("join room %s: %w", rm.ID, err)
	}

	go connection.readPump()

	log.Info().
		Str("user_id", connection.ID).
		Str("name", name).
		Str("room_id", rm.ID).
		Msg("WebSocket connection established")

	return connection, nil
}

// randomColor picks a uniformly random #rrggbb color.
func randomColor() string {
	return fmt.Sprintf("#%06x", rand.Intn(0x1000000))
}

// registerConnection adds a connection to the manager
func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.connections[conn.ID] = conn

	log.Debug().
		Str("user_id", conn.ID).
		Str("room_id", conn.RoomID).
		Int("total_connections", len(cm.connections)).
		Msg("connection registered")
}

// unregisterConnection removes a connection from the manager and its room
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	delete(cm.connections, conn.ID)
	cm.mu.Unlock()

	conn.room.RemoveMember(conn.ID)

	log.Info().
		Str("user_id", conn.ID).
		Str("room_id", conn.RoomID).
		Msg("connection unregistered")
}

// Len returns the number of live connections.
func (cm *ConnectionManager) Len() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	roomCounts := make(map[string]int)
	for _, c := range cm.connections {
		roomCounts[c.RoomID]++
	}
	total := len(cm.connections)
	cm.mu.RUnlock()

	return map[string]interface{}{
		"total_connections": total,
		"active_rooms":      len(roomCounts),
		"room_connections":  roomCounts,
		"rooms":             cm.rooms.Len(),
	}
}

// UserInfo implements room.Member.
func (c *Connection) UserInfo() models.UserInfo {
	return c.User.Info()
}

// Send queues a frame for the write pump. It never blocks: a full or closed
// queue drops the frame and reports false.
func (c *Connection) Send(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		log.Warn().
			Str("user_id", c.ID).
			Str("room_id", c.RoomID).
			Msg("connection send buffer full, dropping message")
		return false
	}
}

// close tears the connection down exactly once, however many pumps notice
// the failure.
func (c *Connection) close() {
	c.once.Do(func() {
		c.Manager.unregisterConnection(c)

		c.sendMu.Lock()
		c.closed = true
		close(c.send)
		c.sendMu.Unlock()

		c.Conn.Close()
	})
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := c.Manager.clock.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("user_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.Chan():
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("user_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump feeds every inbound frame to the dispatcher in arrival order
func (c *Connection) readPump() {
	defer c.close()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn().
					Err(err).
					Str("user_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.Manager.dispatcher.Dispatch(c, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
