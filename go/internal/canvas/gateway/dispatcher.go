package gateway

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sketchroom/go/internal/canvas/events"
)

// HandlerFunc applies one decoded client payload on behalf of c.
type HandlerFunc func(c *Connection, payload interface{}) error

// Dispatcher routes client messages to room operations by type. The sender's
// identity always comes from the connection, never from the payload.
type Dispatcher struct {
	handlers map[events.Type]HandlerFunc
}

// NewDispatcher returns a dispatcher for every message type a client may send.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{handlers: make(map[events.Type]HandlerFunc)}
	d.handlers[events.TypeDrawStart] = handleDrawStart
	d.handlers[events.TypeDrawPoint] = handleDrawPoint
	d.handlers[events.TypeDrawEnd] = handleDrawEnd
	d.handlers[events.TypeUndo] = handleUndo
	d.handlers[events.TypeRedo] = handleRedo
	d.handlers[events.TypeClear] = handleClear
	d.handlers[events.TypeCursor] = handleCursor
	return d
}

// Dispatch decodes and applies one frame. Malformed or unknown frames are
// logged and dropped; the connection stays open.
func (d *Dispatcher) Dispatch(c *Connection, data []byte) {
	env, err := events.Decode(data)
	if err != nil {
		log.Warn().Err(err).Str("user_id", c.ID).Msg("dropping malformed message")
		return
	}

	handler, ok := d.handlers[env.Type]
	if !ok {
		log.Debug().
			Str("user_id", c.ID).
			Str("event_type", string(env.Type)).
			Msg("ignoring unknown message type")
		return
	}

	payload, err := events.ParsePayload(env)
	if err == nil {
		err = handler(c, payload)
	}
	if err != nil {
		log.Warn().
			Err(err).
			Str("user_id", c.ID).
			Str("room_id", c.RoomID).
			Str("event_type", string(env.Type)).
			Msg("dropping message")
	}
}

func handleDrawStart(c *Connection, payload interface{}) error {
	p, ok := payload.(events.DrawStartPayload)
	if !ok {
		return unexpectedPayload(payload)
	}
	c.room.DrawStart(c.ID, p)
	return nil
}

func handleDrawPoint(c *Connection, payload interface{}) error {
	p, ok := payload.(events.DrawPointPayload)
	if !ok {
		return unexpectedPayload(payload)
	}
	c.room.DrawPoint(c.ID, p)
	return nil
}

func handleDrawEnd(c *Connection, payload interface{}) error {
	p, ok := payload.(events.DrawEndPayload)
	if !ok {
		return unexpectedPayload(payload)
	}
	c.room.DrawEnd(c.ID, p)
	return nil
}

func handleUndo(c *Connection, _ interface{}) error {
	c.room.Undo(c.ID)
	return nil
}

func handleRedo(c *Connection, _ interface{}) error {
	c.room.Redo(c.ID)
	return nil
}

func handleClear(c *Connection, _ interface{}) error {
	c.room.Clear(c.ID)
	return nil
}

func handleCursor(c *Connection, payload interface{}) error {
	p, ok := payload.(events.CursorPayload)
	if !ok {
		return unexpectedPayload(payload)
	}
	c.room.Cursor(c.ID, p)
	return nil
}

func unexpectedPayload(payload interface{}) error {
	return fmt.Errorf("unexpected payload %T", payload)
}
