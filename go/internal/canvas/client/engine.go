// Package client is the participant side of a canvas room: the sync engine
// that mirrors room state and authors strokes optimistically, and the
// reconnecting transport that carries its messages.
package client

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"

	"github.com/mcdev12/sketchroom/go/internal/canvas/events"
	"github.com/mcdev12/sketchroom/go/internal/canvas/render"
	"github.com/mcdev12/sketchroom/go/internal/models"
)

const (
	// CursorThrottle is the minimum spacing between outgoing cursor updates.
	CursorThrottle = 50 * time.Millisecond
	// CursorTTL is how long a silent remote cursor stays visible.
	CursorTTL = 5 * time.Second

	DefaultColor = "#000000"
	DefaultWidth = 5.0
	EraserColor  = "#FFFFFF"
)

// Sender delivers a message to the server. Delivery is best effort.
type Sender interface {
	Send(t events.Type, payload interface{}) bool
}

// StaticLayer is the baked layer of finished strokes.
type StaticLayer interface {
	Bake(stroke models.Stroke)
	Rebuild(strokes []models.Stroke)
}

// PointerKind distinguishes input devices.
type PointerKind int

const (
	PointerMouse PointerKind = iota
	PointerTouch
	PointerPen
)

// PrimaryButton is the mouse button that draws.
const PrimaryButton = 0

// PointerEvent is one input sample in canvas-local coordinates.
type PointerEvent struct {
	X      float64
	Y      float64
	Button int
	Kind   PointerKind
}

// Engine mirrors one room's strokes, users and cursors and applies local
// input optimistically. All methods are safe for concurrent use: network
// handlers, input and the render loop each run on their own goroutine and
// every handler runs under one lock, so the render loop never observes a
// half-applied event.
type Engine struct {
	mu     sync.Mutex
	sender Sender
	layer  StaticLayer
	clock  clockwork.Clock
	newID  func() string

	userID     string
	color      string
	savedColor string
	width      float64
	eraser     bool

	strokes map[string]*models.Stroke
	order   []string
	cursors map[string]*models.Cursor
	users   map[string]models.UserInfo

	current        string
	pending        []events.DrawPointPayload
	lastCursorSent time.Time
	dirty          bool
}

// NewEngine creates an engine that talks through sender and bakes onto layer.
func NewEngine(sender Sender, layer StaticLayer, clock clockwork.Clock) *Engine {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Engine{
		sender:  sender,
		layer:   layer,
		clock:   clock,
		newID:   func() string { return ksuid.New().String() },
		color:   DefaultColor,
		width:   DefaultWidth,
		strokes: make(map[string]*models.Stroke),
		cursors: make(map[string]*models.Cursor),
		users:   make(map[string]models.UserInfo),
	}
}

// Handle applies one message received from the server.
func (e *Engine) Handle(env events.Envelope) {
	e.mu.Lock()
	defer e.mu.Unlock()

	payload, err := events.ParsePayload(env)
	if errors.Is(err, events.ErrUnknownType) {
		log.Debug().Str("event_type", string(env.Type)).Msg("ignoring unknown message type")
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("event_type", string(env.Type)).Msg("dropping malformed message")
		return
	}

	switch p := payload.(type) {
	case events.WelcomePayload:
		e.applyWelcome(p)
	case events.UserJoinedPayload:
		e.users[p.UserID] = models.UserInfo{ID: p.UserID, Name: p.Name, Color: p.Color}
	case events.UserLeftPayload:
		delete(e.users, p.UserID)
		delete(e.cursors, p.UserID)
		e.dirty = true
	case events.DrawStartPayload:
		e.applyDrawStart(p)
	case events.DrawPointPayload:
		if s, ok := e.strokes[p.StrokeID]; ok && !s.Finished {
			s.Points = append(s.Points, models.Point{X: p.X, Y: p.Y})
			e.dirty = true
		}
	case events.DrawEndPayload:
		e.finishLocked(p.StrokeID)
	case events.UndoPayload:
		if e.removeLocked(p.StrokeID) {
			e.rebuildLocked()
		}
	case events.RedoPayload:
		if p.Stroke != nil {
			s := p.Stroke.Clone()
			e.putLocked(&s)
			if s.Finished {
				e.layer.Bake(s.Clone())
			}
		}
	case events.ClearPayload:
		e.strokes = make(map[string]*models.Stroke)
		e.order = nil
		e.rebuildLocked()
	case events.CursorPayload:
		e.applyCursor(p)
	}
}

// applyWelcome replaces local state wholesale. The server's view wins over
// anything authored before a reconnect.
func (e *Engine) applyWelcome(p events.WelcomePayload) {
	e.userID = p.UserID
	if p.Color != "" {
		if e.eraser {
			e.savedColor = p.Color
		} else {
			e.color = p.Color
		}
	}

	e.strokes = make(map[string]*models.Stroke, len(p.History))
	e.order = make([]string, 0, len(p.History))
	for i := range p.History {
		s := p.History[i].Clone()
		e.putLocked(&s)
	}

	e.users = make(map[string]models.UserInfo, len(p.Users))
	for _, u := range p.Users {
		e.users[u.ID] = u
	}
	for id := range e.cursors {
		if _, ok := e.users[id]; !ok {
			delete(e.cursors, id)
		}
	}

	e.current = ""
	e.pending = nil
	e.rebuildLocked()

	log.Info().
		Str("user_id", p.UserID).
		Int("strokes", len(p.History)).
		Int("users", len(p.Users)).
		Msg("room state loaded")
}

func (e *Engine) applyDrawStart(p events.DrawStartPayload) {
	if p.ID == "" {
		return
	}
	points := p.Points
	if len(points) == 0 {
		points = []models.Point{p.StartPoint()}
	}
	s := &models.Stroke{
		ID:        p.ID,
		AuthorID:  p.UserID,
		Color:     p.Color,
		Width:     p.Width,
		Points:    append([]models.Point(nil), points...),
		CreatedAt: p.CreatedAt,
	}
	e.putLocked(s)
}

func (e *Engine) applyCursor(p events.CursorPayload) {
	user, ok := e.users[p.UserID]
	if !ok {
		return
	}
	e.cursors[p.UserID] = &models.Cursor{
		UserID:     p.UserID,
		X:          p.X,
		Y:          p.Y,
		Color:      user.Color,
		LastUpdate: e.clock.Now(),
	}
	e.dirty = true
}

func (e *Engine) putLocked(s *models.Stroke) {
	if _, exists := e.strokes[s.ID]; !exists {
		e.order = append(e.order, s.ID)
	}
	e.strokes[s.ID] = s
	e.dirty = true
}

func (e *Engine) removeLocked(id string) bool {
	if _, ok := e.strokes[id]; !ok {
		return false
	}
	delete(e.strokes, id)
	for i, sid := range e.order {
		if sid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	e.dirty = true
	return true
}

// finishLocked seals a stroke and bakes it. A stroke is baked at most once:
// a repeated end marker finds it already finished and does nothing.
func (e *Engine) finishLocked(id string) bool {
	s, ok := e.strokes[id]
	if !ok || s.Finished {
		return false
	}
	s.Finished = true
	e.layer.Bake(s.Clone())
	e.dirty = true
	return true
}

func (e *Engine) rebuildLocked() {
	e.layer.Rebuild(e.snapshotLocked())
	e.dirty = true
}

func (e *Engine) snapshotLocked() []models.Stroke {
	out := make([]models.Stroke, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.strokes[id].Clone())
	}
	return out
}

// PointerDown starts a new stroke. It is inserted locally before the server
// has seen it. Non-primary mouse buttons are ignored.
func (e *Engine) PointerDown(ev PointerEvent) {
	if ev.Kind == PointerMouse && ev.Button != PrimaryButton {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current != "" {
		e.endStrokeLocked()
	}

	s := &models.Stroke{
		ID:        e.newID(),
		AuthorID:  e.userID,
		Color:     e.color,
		Width:     e.width,
		Points:    []models.Point{{X: ev.X, Y: ev.Y}},
		CreatedAt: e.clock.Now().UnixMilli(),
	}
	e.putLocked(s)
	e.current = s.ID

	e.sender.Send(events.TypeDrawStart, events.DrawStartPayload{
		ID:    s.ID,
		X:     ev.X,
		Y:     ev.Y,
		Color: s.Color,
		Width: s.Width,
	})
}

// PointerMove updates the cursor for peers and extends the stroke being
// drawn. It reports whether the move belongs to an active stroke, in which
// case touch input must not scroll the page.
func (e *Engine) PointerMove(ev PointerEvent) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if now.Sub(e.lastCursorSent) >= CursorThrottle {
		e.sender.Send(events.TypeCursor, events.CursorPayload{X: ev.X, Y: ev.Y})
		e.lastCursorSent = now
	}

	if e.current == "" {
		return false
	}
	// The stroke may have been undone by someone else mid-gesture
	if s, ok := e.strokes[e.current]; ok && !s.Finished {
		s.Points = append(s.Points, models.Point{X: ev.X, Y: ev.Y})
		e.pending = append(e.pending, events.DrawPointPayload{StrokeID: s.ID, X: ev.X, Y: ev.Y})
		e.dirty = true
	}
	return true
}

// PointerUp completes the stroke being drawn.
func (e *Engine) PointerUp() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == "" {
		return
	}
	e.endStrokeLocked()
}

func (e *Engine) endStrokeLocked() {
	e.flushLocked()
	id := e.current
	e.current = ""
	if e.finishLocked(id) {
		e.sender.Send(events.TypeDrawEnd, events.DrawEndPayload{StrokeID: id})
	}
}

// FlushPoints sends the points buffered since the last flush. The render
// loop calls it once per frame.
func (e *Engine) FlushPoints() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushLocked()
}

func (e *Engine) flushLocked() {
	for _, p := range e.pending {
		e.sender.Send(events.TypeDrawPoint, p)
	}
	e.pending = e.pending[:0]
}

// Undo asks the server to remove the most recent stroke in the room. Local
// state only changes when the server's undo comes back.
func (e *Engine) Undo() bool {
	return e.sender.Send(events.TypeUndo, events.UndoPayload{})
}

// Redo asks the server to restore the most recently undone stroke.
func (e *Engine) Redo() bool {
	return e.sender.Send(events.TypeRedo, events.RedoPayload{})
}

// Clear asks the server to wipe the room.
func (e *Engine) Clear() bool {
	return e.sender.Send(events.TypeClear, events.ClearPayload{})
}

// SetColor changes the pen color. Picking a color leaves eraser mode.
func (e *Engine) SetColor(color string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.eraser = false
	e.color = color
}

// SetWidth changes the pen width.
func (e *Engine) SetWidth(width float64) {
	if width <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.width = width
}

// ToggleEraser switches between the pen and an eraser that paints the
// background color.
func (e *Engine) ToggleEraser() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.eraser = !e.eraser
	if e.eraser {
		e.savedColor = e.color
		e.color = EraserColor
	} else {
		e.color = e.savedColor
	}
	return e.eraser
}

// EraserMode reports whether the eraser is active.
func (e *Engine) EraserMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eraser
}

// Color returns the current pen color.
func (e *Engine) Color() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.color
}

// UserID returns the id assigned by the server's last welcome.
func (e *Engine) UserID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userID
}

// Drawing reports whether a local stroke is in progress.
func (e *Engine) Drawing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != ""
}

// Scene returns what the active layer should show at now and resets the
// change flag.
func (e *Engine) Scene(now time.Time) render.Scene {
	e.mu.Lock()
	defer e.mu.Unlock()

	var scene render.Scene
	for _, id := range e.order {
		s := e.strokes[id]
		if !s.Finished && len(s.Points) >= 2 {
			scene.Active = append(scene.Active, s.Clone())
		}
	}
	for _, c := range e.cursors {
		if !c.Expired(now, CursorTTL) {
			scene.Cursors = append(scene.Cursors, *c)
		}
	}
	sort.Slice(scene.Cursors, func(i, j int) bool { return scene.Cursors[i].UserID < scene.Cursors[j].UserID })

	scene.Dirty = e.dirty
	e.dirty = false
	return scene
}

// Strokes returns a copy of every known stroke in insertion order.
func (e *Engine) Strokes() []models.Stroke {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Stroke returns a copy of one stroke.
func (e *Engine) Stroke(id string) (models.Stroke, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.strokes[id]
	if !ok {
		return models.Stroke{}, false
	}
	return s.Clone(), true
}

// Users returns the known room members ordered by id.
func (e *Engine) Users() []models.UserInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	users := make([]models.UserInfo, 0, len(e.users))
	for _, u := range e.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// UserCount returns the number of members in the room, this client included.
func (e *Engine) UserCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.users)
}

// Cursor returns the last known cursor of a remote user, expired or not.
func (e *Engine) Cursor(userID string) (models.Cursor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.cursors[userID]
	if !ok {
		return models.Cursor{}, false
	}
	return *c, true
}
