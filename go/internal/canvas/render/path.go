package render

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/mcdev12/sketchroom/go/internal/models"
)

// PathBuilder is the subset of a 2D path API needed to trace a stroke. Both
// *gg.Context and the PDF exporter satisfy it.
type PathBuilder interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	QuadraticTo(x1, y1, x2, y2 float64)
}

// TracePath emits the smoothed outline of a stroke with two or more points.
// Each input point becomes the control point of a quadratic curve that ends
// halfway to the next point; the last curve collapses onto the final point so
// the path always ends exactly where the pointer was released. Strokes with
// fewer than two points produce no path: callers draw them as dots.
func TracePath(p PathBuilder, points []models.Point) {
	if len(points) < 2 {
		return
	}

	p.MoveTo(points[0].X, points[0].Y)
	if len(points) == 2 {
		p.LineTo(points[1].X, points[1].Y)
		return
	}

	for i := 1; i < len(points)-1; i++ {
		xc := (points[i].X + points[i+1].X) / 2
		yc := (points[i].Y + points[i+1].Y) / 2
		p.QuadraticTo(points[i].X, points[i].Y, xc, yc)
	}
	last := points[len(points)-1]
	p.QuadraticTo(last.X, last.Y, last.X, last.Y)
}

// ParseHexColor parses #rgb, #rrggbb and #rrggbbaa. Anything else is black.
// The raster layers use gg's SetHexColor; this is for backends that take
// numeric channels, like the PDF exporter.
func ParseHexColor(s string) color.NRGBA {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	black := color.NRGBA{A: 0xff}

	switch len(hex) {
	case 3:
		v, err := strconv.ParseUint(hex, 16, 16)
		if err != nil {
			return black
		}
		r, g, b := uint8(v>>8&0xf), uint8(v>>4&0xf), uint8(v&0xf)
		return color.NRGBA{R: r<<4 | r, G: g<<4 | g, B: b<<4 | b, A: 0xff}
	case 6:
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return black
		}
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
	case 8:
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return black
		}
		return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	default:
		return black
	}
}
