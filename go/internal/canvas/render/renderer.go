// Package render draws strokes and cursors onto two raster layers.
//
// The static layer holds finished strokes. It is only touched on structural
// events: a stroke being baked the moment it finishes, or a full rebuild after
// a history load, undo or clear. A single shape cannot be subtracted from a
// flattened raster, so removal always means rebuilding from the strokes that
// remain.
//
// The active layer is cleared and redrawn every frame with the strokes still
// in progress and the live remote cursors.
package render

import (
	"image"
	"image/draw"
	"sync"

	"github.com/fogleman/gg"

	"github.com/mcdev12/sketchroom/go/internal/models"
)

// CursorRadius is the radius of a remote cursor marker.
const CursorRadius = 5.0

// Scene is what the active layer shows in one frame.
type Scene struct {
	// Active holds unfinished strokes with at least two points.
	Active []models.Stroke
	// Cursors holds remote cursors that have not expired.
	Cursors []models.Cursor
	// Dirty is set when anything changed since the previous scene.
	Dirty bool
}

// Empty reports whether the scene has nothing to draw.
func (s Scene) Empty() bool {
	return len(s.Active) == 0 && len(s.Cursors) == 0
}

// Renderer owns the two layers. It keeps no stroke state of its own.
type Renderer struct {
	mu          sync.Mutex
	static      *gg.Context
	active      *gg.Context
	activeBlank bool
}

// NewRenderer creates transparent layers of the given size.
func NewRenderer(width, height int) *Renderer {
	return &Renderer{
		static:      newLayer(width, height),
		active:      newLayer(width, height),
		activeBlank: true,
	}
}

func newLayer(width, height int) *gg.Context {
	dc := gg.NewContext(width, height)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	return dc
}

func clearLayer(dc *gg.Context) {
	dc.SetRGBA(0, 0, 0, 0)
	dc.Clear()
}

// Bake draws one finished stroke onto the static layer.
func (r *Renderer) Bake(stroke models.Stroke) {
	r.mu.Lock()
	defer r.mu.Unlock()
	DrawStroke(r.static, stroke)
}

// Rebuild clears the static layer and redraws every finished stroke in order.
func (r *Renderer) Rebuild(strokes []models.Stroke) {
	r.mu.Lock()
	defer r.mu.Unlock()

	clearLayer(r.static)
	for _, s := range strokes {
		if s.Finished {
			DrawStroke(r.static, s)
		}
	}
}

// Frame repaints the active layer from scene and reports whether it did.
// Nothing is repainted when the scene is unchanged and the layer is already
// blank.
func (r *Renderer) Frame(scene Scene) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	empty := scene.Empty()
	if empty && !scene.Dirty && r.activeBlank {
		return false
	}

	clearLayer(r.active)
	for _, s := range scene.Active {
		if !s.Finished && len(s.Points) >= 2 {
			DrawStroke(r.active, s)
		}
	}
	for _, c := range scene.Cursors {
		r.active.DrawCircle(c.X, c.Y, CursorRadius)
		r.active.SetHexColor(c.Color)
		r.active.Fill()
	}
	r.activeBlank = empty
	return true
}

// DrawStroke paints a stroke: nothing for zero points, a disc as wide as the
// stroke for one point, a smoothed path otherwise.
func DrawStroke(dc *gg.Context, stroke models.Stroke) {
	switch len(stroke.Points) {
	case 0:
		return
	case 1:
		p := stroke.Points[0]
		dc.NewSubPath()
		dc.DrawCircle(p.X, p.Y, stroke.Width/2)
		dc.SetHexColor(stroke.Color)
		dc.Fill()
		return
	}

	dc.NewSubPath()
	TracePath(dc, stroke.Points)
	dc.SetHexColor(stroke.Color)
	dc.SetLineWidth(stroke.Width)
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)
	dc.Stroke()
}

// StaticImage returns a copy of the static layer.
func (r *Renderer) StaticImage() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneRGBA(r.static.Image())
}

// ActiveImage returns a copy of the active layer.
func (r *Renderer) ActiveImage() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneRGBA(r.active.Image())
}

// Composite returns the active layer drawn over the static layer.
func (r *Renderer) Composite() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := cloneRGBA(r.static.Image())
	draw.Draw(out, out.Bounds(), r.active.Image(), image.Point{}, draw.Over)
	return out
}

// RenderStrokes draws the finished strokes onto a fresh image.
func RenderStrokes(width, height int, strokes []models.Stroke) *image.RGBA {
	r := NewRenderer(width, height)
	r.Rebuild(strokes)
	return r.StaticImage()
}

func cloneRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return dst
}
