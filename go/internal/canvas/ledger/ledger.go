// Package ledger holds the ordered stroke history of a single room.
//
// The history is the unit of global undo: Undo always removes the most
// recently appended stroke, whoever authored it and whether or not it has been
// finished. A user who undoes while someone else has just started drawing will
// remove that other user's stroke; that is the intended product behavior.
//
// A Ledger is not safe for concurrent use. Its owning room serializes access.
package ledger

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/sketchroom/go/internal/models"
)

// Ledger is the authoritative, mutable stroke history of one room.
type Ledger struct {
	strokes []*models.Stroke          // append order
	index   map[string]*models.Stroke // id -> stroke in strokes
	redo    []*models.Stroke          // undone strokes, most recent last
	clock   clockwork.Clock
}

// New creates an empty ledger stamping strokes with the given clock.
func New(clock clockwork.Clock) *Ledger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Ledger{
		index: make(map[string]*models.Stroke),
		clock: clock,
	}
}

// AddStroke appends a new unfinished stroke holding only the start point and
// drops the redo buffer. A non-empty suggestedID is used verbatim so the
// author's optimistic stroke and the relayed copy share one identity.
func (l *Ledger) AddStroke(authorID, color string, width float64, start models.Point, suggestedID string) *models.Stroke {
	id := suggestedID
	if id == "" {
		id = uuid.NewString()
	}

	stroke := &models.Stroke{
		ID:        id,
		AuthorID:  authorID,
		Color:     color,
		Width:     width,
		Points:    []models.Point{start},
		CreatedAt: l.clock.Now().UnixMilli(),
	}

	// A reused id replaces the index entry; the older stroke stays in history
	// but can no longer be addressed by id.
	l.strokes = append(l.strokes, stroke)
	l.index[id] = stroke
	l.redo = nil

	return stroke
}

// AddPoint appends p to an unfinished stroke. Unknown or sealed ids are
// ignored; they are expected under network reordering.
func (l *Ledger) AddPoint(strokeID string, p models.Point) bool {
	stroke, ok := l.index[strokeID]
	if !ok || stroke.Finished {
		return false
	}
	stroke.Points = append(stroke.Points, p)
	return true
}

// FinishStroke seals a stroke. Idempotent.
func (l *Ledger) FinishStroke(strokeID string) bool {
	stroke, ok := l.index[strokeID]
	if !ok || stroke.Finished {
		return false
	}
	stroke.Finished = true
	return true
}

// Undo removes the last appended stroke and returns its id.
func (l *Ledger) Undo() (string, bool) {
	if len(l.strokes) == 0 {
		return "", false
	}

	last := l.strokes[len(l.strokes)-1]
	l.strokes[len(l.strokes)-1] = nil
	l.strokes = l.strokes[:len(l.strokes)-1]
	if l.index[last.ID] == last {
		delete(l.index, last.ID)
	}
	l.redo = append(l.redo, last)

	return last.ID, true
}

// Redo re-appends the most recently undone stroke. The buffer only survives
// until the next AddStroke or Clear.
func (l *Ledger) Redo() (models.Stroke, bool) {
	if len(l.redo) == 0 {
		return models.Stroke{}, false
	}

	stroke := l.redo[len(l.redo)-1]
	l.redo[len(l.redo)-1] = nil
	l.redo = l.redo[:len(l.redo)-1]
	l.strokes = append(l.strokes, stroke)
	l.index[stroke.ID] = stroke

	return stroke.Clone(), true
}

// Clear discards the history and the redo buffer irrecoverably.
func (l *Ledger) Clear() {
	l.strokes = nil
	l.redo = nil
	l.index = make(map[string]*models.Stroke)
}

// Snapshot returns a deep copy of the history in append order.
func (l *Ledger) Snapshot() []models.Stroke {
	out := make([]models.Stroke, 0, len(l.strokes))
	for _, s := range l.strokes {
		out = append(out, s.Clone())
	}
	return out
}

// Get returns a copy of the stroke with the given id.
func (l *Ledger) Get(strokeID string) (models.Stroke, bool) {
	stroke, ok := l.index[strokeID]
	if !ok {
		return models.Stroke{}, false
	}
	return stroke.Clone(), true
}

// Len returns the number of strokes in history.
func (l *Ledger) Len() int {
	return len(l.strokes)
}

// RedoLen returns the number of strokes that Redo could restore.
func (l *Ledger) RedoLen() int {
	return len(l.redo)
}
