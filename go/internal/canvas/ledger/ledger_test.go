package ledger

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/sketchroom/go/internal/models"
)

func newTestLedger() (*Ledger, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	return New(clock), clock
}

func TestLedgerSingleStroke(t *testing.T) {
	l, clock := newTestLedger()

	s := l.AddStroke("u1", "#000", 5, models.Point{X: 0, Y: 0}, "")
	require.NotEmpty(t, s.ID)
	assert.Equal(t, clock.Now().UnixMilli(), s.CreatedAt)
	assert.False(t, s.Finished)

	assert.True(t, l.AddPoint(s.ID, models.Point{X: 10, Y: 0}))
	assert.True(t, l.FinishStroke(s.ID))

	snap := l.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, []models.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, snap[0].Points)
	assert.True(t, snap[0].Finished)
	assert.Equal(t, "u1", snap[0].AuthorID)
}

func TestLedgerSuggestedID(t *testing.T) {
	l, _ := newTestLedger()

	s := l.AddStroke("u1", "#000", 5, models.Point{}, "client-chosen")
	assert.Equal(t, "client-chosen", s.ID)

	got, ok := l.Get("client-chosen")
	require.True(t, ok)
	assert.Equal(t, "u1", got.AuthorID)
}

func TestLedgerUndo(t *testing.T) {
	t.Run("empty history", func(t *testing.T) {
		l, _ := newTestLedger()

		id, ok := l.Undo()
		assert.False(t, ok)
		assert.Empty(t, id)
		assert.Equal(t, 0, l.Len())
	})

	t.Run("removes most recent regardless of author", func(t *testing.T) {
		l, _ := newTestLedger()
		s1 := l.AddStroke("u1", "#000", 5, models.Point{}, "")
		l.FinishStroke(s1.ID)
		s2 := l.AddStroke("u2", "#f00", 5, models.Point{X: 1, Y: 1}, "")

		// s2 is unfinished and authored by someone else; it still goes first
		id, ok := l.Undo()
		require.True(t, ok)
		assert.Equal(t, s2.ID, id)

		snap := l.Snapshot()
		require.Len(t, snap, 1)
		assert.Equal(t, s1.ID, snap[0].ID)
	})

	t.Run("undone stroke is no longer addressable", func(t *testing.T) {
		l, _ := newTestLedger()
		s := l.AddStroke("u1", "#000", 5, models.Point{}, "")
		l.Undo()

		assert.False(t, l.AddPoint(s.ID, models.Point{X: 3, Y: 3}))
		assert.False(t, l.FinishStroke(s.ID))
		_, ok := l.Get(s.ID)
		assert.False(t, ok)
	})
}

func TestLedgerSealedStrokeIsImmutable(t *testing.T) {
	l, _ := newTestLedger()
	s := l.AddStroke("u1", "#000", 5, models.Point{}, "")
	l.AddPoint(s.ID, models.Point{X: 1, Y: 1})
	require.True(t, l.FinishStroke(s.ID))

	assert.False(t, l.AddPoint(s.ID, models.Point{X: 2, Y: 2}))
	assert.False(t, l.FinishStroke(s.ID))

	got, ok := l.Get(s.ID)
	require.True(t, ok)
	assert.Len(t, got.Points, 2)
	assert.True(t, got.Finished)
}

func TestLedgerUnknownStrokeIsIgnored(t *testing.T) {
	l, _ := newTestLedger()
	l.AddStroke("u1", "#000", 5, models.Point{}, "known")

	assert.False(t, l.AddPoint("missing", models.Point{X: 1}))
	assert.False(t, l.FinishStroke("missing"))
	assert.Equal(t, 1, l.Len())
}

func TestLedgerClear(t *testing.T) {
	l, _ := newTestLedger()
	l.AddStroke("u1", "#000", 5, models.Point{}, "")
	l.AddStroke("u2", "#000", 5, models.Point{}, "")
	l.Undo()
	require.Equal(t, 1, l.RedoLen())

	l.Clear()

	assert.Empty(t, l.Snapshot())
	assert.Equal(t, 0, l.RedoLen())
	_, ok := l.Undo()
	assert.False(t, ok)
	_, ok = l.Redo()
	assert.False(t, ok)
}

func TestLedgerRedo(t *testing.T) {
	t.Run("restores last undone", func(t *testing.T) {
		l, _ := newTestLedger()
		s1 := l.AddStroke("u1", "#000", 5, models.Point{}, "")
		s2 := l.AddStroke("u1", "#000", 5, models.Point{}, "")
		l.Undo()
		l.Undo()

		restored, ok := l.Redo()
		require.True(t, ok)
		assert.Equal(t, s1.ID, restored.ID)

		restored, ok = l.Redo()
		require.True(t, ok)
		assert.Equal(t, s2.ID, restored.ID)

		snap := l.Snapshot()
		require.Len(t, snap, 2)
		assert.Equal(t, s1.ID, snap[0].ID)
		assert.Equal(t, s2.ID, snap[1].ID)
	})

	t.Run("new stroke drops redo buffer", func(t *testing.T) {
		l, _ := newTestLedger()
		l.AddStroke("u1", "#000", 5, models.Point{}, "")
		l.Undo()
		l.AddStroke("u2", "#000", 5, models.Point{}, "")

		assert.Equal(t, 0, l.RedoLen())
		_, ok := l.Redo()
		assert.False(t, ok)
	})
}

func TestLedgerSnapshotIsACopy(t *testing.T) {
	l, _ := newTestLedger()
	s := l.AddStroke("u1", "#000", 5, models.Point{X: 1, Y: 1}, "")

	snap := l.Snapshot()
	snap[0].Points[0] = models.Point{X: 99, Y: 99}
	snap[0].Finished = true

	got, _ := l.Get(s.ID)
	assert.Equal(t, models.Point{X: 1, Y: 1}, got.Points[0])
	assert.False(t, got.Finished)
}

// History length always equals strokes added minus strokes removed by undo
// or clear, whatever the interleaving of point and finish calls.
func TestLedgerLengthInvariant(t *testing.T) {
	l, _ := newTestLedger()
	added, removed := 0, 0

	ops := []string{"add", "point", "add", "finish", "undo", "add", "point", "undo", "undo", "undo", "add", "add", "finish", "clear", "add"}
	var last string
	for _, op := range ops {
		switch op {
		case "add":
			last = l.AddStroke("u1", "#000", 1, models.Point{}, "").ID
			added++
		case "point":
			l.AddPoint(last, models.Point{X: 1})
		case "finish":
			l.FinishStroke(last)
		case "undo":
			if _, ok := l.Undo(); ok {
				removed++
			}
		case "clear":
			removed += l.Len()
			l.Clear()
		}
		assert.Equal(t, added-removed, len(l.Snapshot()), "after %s", op)
	}
}
