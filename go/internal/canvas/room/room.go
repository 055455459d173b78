package room

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sketchroom/go/internal/canvas/events"
	"github.com/mcdev12/sketchroom/go/internal/canvas/ledger"
	"github.com/mcdev12/sketchroom/go/internal/models"
)

// DefaultStrokeWidth is used when a client starts a stroke without a usable width.
const DefaultStrokeWidth = 5.0

// Member is a room participant as seen by the router. Send must never block:
// it reports false when the underlying connection is closed or backed up.
type Member interface {
	UserInfo() models.UserInfo
	Send(data []byte) bool
}

// Publisher mirrors room broadcasts to an external sink.
type Publisher interface {
	Publish(roomID string, env events.Envelope)
}

// NoOpPublisher discards everything.
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(string, events.Envelope) {}

// Stats summarizes a room for the HTTP API.
type Stats struct {
	ID        string    `json:"id"`
	Members   int       `json:"members"`
	Strokes   int       `json:"strokes"`
	RedoDepth int       `json:"redo_depth"`
	CreatedAt time.Time `json:"created_at"`
}

// Room owns one stroke history and one member set. Its mutex is the single
// serialization point for the room: every mutation and the broadcast that
// follows it happen in one critical section.
type Room struct {
	ID string

	mu        sync.Mutex
	members   map[string]Member
	joinOrder []string
	ledger    *ledger.Ledger
	publisher Publisher
	createdAt time.Time
}

// New creates an empty room.
func New(id string, clock clockwork.Clock, publisher Publisher) *Room {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if publisher == nil {
		publisher = NoOpPublisher{}
	}
	return &Room{
		ID:        id,
		members:   make(map[string]Member),
		ledger:    ledger.New(clock),
		publisher: publisher,
		createdAt: clock.Now(),
	}
}

// AddMember inserts m and announces it to every other member.
func (r *Room) AddMember(m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addMemberLocked(m)
}

// Join adds m and sends it, and only it, the welcome snapshot. Both happen in
// one critical section so no room event can fall between the snapshot and the
// member's first relayed message.
func (r *Room) Join(m Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.addMemberLocked(m)

	info := m.UserInfo()
	data, err := events.Encode(events.TypeWelcome, events.WelcomePayload{
		UserID:  info.ID,
		Color:   info.Color,
		History: r.ledger.Snapshot(),
		Users:   r.rosterLocked(),
	})
	if err != nil {
		return fmt.Errorf("encode welcome: %w", err)
	}
	if !m.Send(data) {
		log.Warn().Str("room_id", r.ID).Str("user_id", info.ID).Msg("welcome not delivered")
	}
	return nil
}

func (r *Room) addMemberLocked(m Member) {
	info := m.UserInfo()
	if _, exists := r.members[info.ID]; !exists {
		r.joinOrder = append(r.joinOrder, info.ID)
	}
	r.members[info.ID] = m

	r.broadcastLocked(events.TypeUserJoined, events.UserJoinedPayload{
		UserID: info.ID,
		Name:   info.Name,
		Color:  info.Color,
	}, info.ID)

	log.Info().
		Str("room_id", r.ID).
		Str("user_id", info.ID).
		Int("members", len(r.members)).
		Msg("member joined")
}

// RemoveMember deletes the member and tells the rest of the room. Absent ids
// are ignored so late or duplicate close events never re-broadcast.
func (r *Room) RemoveMember(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.members[userID]; !exists {
		return false
	}
	delete(r.members, userID)
	for i, id := range r.joinOrder {
		if id == userID {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}

	r.broadcastLocked(events.TypeUserLeft, events.UserLeftPayload{UserID: userID}, "")

	log.Info().
		Str("room_id", r.ID).
		Str("user_id", userID).
		Int("members", len(r.members)).
		Msg("member left")
	return true
}

// Broadcast sends a message to every member except excludeUserID (which may
// be empty).
func (r *Room) Broadcast(t events.Type, payload interface{}, excludeUserID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(t, payload, excludeUserID)
}

func (r *Room) broadcastLocked(t events.Type, payload interface{}, excludeUserID string) {
	env, err := events.NewEnvelope(t, payload)
	if err != nil {
		log.Error().Err(err).Str("room_id", r.ID).Msg("failed to build broadcast envelope")
		return
	}
	// Marshal the envelope once for every recipient
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("room_id", r.ID).Msg("failed to marshal broadcast")
		return
	}

	sent, skipped := 0, 0
	for id, m := range r.members {
		if id == excludeUserID {
			continue
		}
		if m.Send(data) {
			sent++
		} else {
			skipped++
		}
	}

	log.Debug().
		Str("room_id", r.ID).
		Str("event_type", string(t)).
		Int("sent", sent).
		Int("skipped", skipped).
		Msg("event broadcasted")

	r.publisher.Publish(r.ID, env)
}

// DrawStart appends a new stroke for userID and relays it to everyone else.
func (r *Room) DrawStart(userID string, p events.DrawStartPayload) models.Stroke {
	r.mu.Lock()
	defer r.mu.Unlock()

	color := p.Color
	if color == "" {
		if m, ok := r.members[userID]; ok {
			color = m.UserInfo().Color
		}
	}
	width := p.Width
	if width <= 0 {
		width = DefaultStrokeWidth
	}

	stroke := r.ledger.AddStroke(userID, color, width, p.StartPoint(), p.ID).Clone()
	r.broadcastLocked(events.TypeDrawStart, events.DrawStartFromStroke(stroke), userID)
	return stroke
}

// DrawPoint appends a point and relays it. The relay happens even for
// unknown ids; peers drop what they don't know.
func (r *Room) DrawPoint(userID string, p events.DrawPointPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ledger.AddPoint(p.StrokeID, models.Point{X: p.X, Y: p.Y})
	r.broadcastLocked(events.TypeDrawPoint, events.DrawPointPayload{
		UserID:   userID,
		StrokeID: p.StrokeID,
		X:        p.X,
		Y:        p.Y,
	}, userID)
}

// DrawEnd seals a stroke and relays the end marker.
func (r *Room) DrawEnd(userID string, p events.DrawEndPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ledger.FinishStroke(p.StrokeID)
	r.broadcastLocked(events.TypeDrawEnd, events.DrawEndPayload{
		UserID:   userID,
		StrokeID: p.StrokeID,
	}, userID)
}

// Undo removes the most recent stroke in the room, whoever drew it, and tells
// every member including the requester. Nothing is sent when history is empty.
func (r *Room) Undo(userID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	strokeID, ok := r.ledger.Undo()
	if !ok {
		log.Debug().Str("room_id", r.ID).Str("user_id", userID).Msg("undo on empty history")
		return "", false
	}
	r.broadcastLocked(events.TypeUndo, events.UndoPayload{StrokeID: strokeID}, "")
	return strokeID, true
}

// Redo restores the most recently undone stroke for every member.
func (r *Room) Redo(userID string) (models.Stroke, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stroke, ok := r.ledger.Redo()
	if !ok {
		log.Debug().Str("room_id", r.ID).Str("user_id", userID).Msg("redo with empty buffer")
		return models.Stroke{}, false
	}
	r.broadcastLocked(events.TypeRedo, events.RedoPayload{Stroke: &stroke}, "")
	return stroke, true
}

// Clear wipes the room history for every member.
func (r *Room) Clear(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.ledger.Clear()
	r.broadcastLocked(events.TypeClear, events.ClearPayload{}, "")

	log.Info().Str("room_id", r.ID).Str("user_id", userID).Msg("room cleared")
}

// Cursor relays a pointer position to everyone but its owner.
func (r *Room) Cursor(userID string, p events.CursorPayload) {
	r.Broadcast(events.TypeCursor, events.CursorPayload{UserID: userID, X: p.X, Y: p.Y}, userID)
}

// Snapshot returns a copy of the stroke history.
func (r *Room) Snapshot() []models.Stroke {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ledger.Snapshot()
}

// Roster returns the members in join order.
func (r *Room) Roster() []models.UserInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked()
}

func (r *Room) rosterLocked() []models.UserInfo {
	users := make([]models.UserInfo, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		if m, ok := r.members[id]; ok {
			users = append(users, m.UserInfo())
		}
	}
	return users
}

// MemberCount returns the number of connected members.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Stats returns a summary of the room.
func (r *Room) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		ID:        r.ID,
		Members:   len(r.members),
		Strokes:   r.ledger.Len(),
		RedoDepth: r.ledger.RedoLen(),
		CreatedAt: r.createdAt,
	}
}
