// Package export writes room snapshots to portable formats.
package export

import (
	"fmt"
	"image/png"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/mcdev12/sketchroom/go/internal/canvas/render"
	"github.com/mcdev12/sketchroom/go/internal/models"
)

// pdfPath adapts a gofpdf document to render.PathBuilder so PDF strokes use
// the same smoothing as the raster layers.
type pdfPath struct {
	pdf *gofpdf.Fpdf
}

func (p pdfPath) MoveTo(x, y float64)              { p.pdf.MoveTo(x, y) }
func (p pdfPath) LineTo(x, y float64)              { p.pdf.LineTo(x, y) }
func (p pdfPath) QuadraticTo(cx, cy, x, y float64) { p.pdf.CurveTo(cx, cy, x, y) }

// PDF writes the finished strokes as vector paths on one page of
// width x height points.
func PDF(w io.Writer, width, height float64, strokes []models.Stroke) error {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")

	for _, s := range strokes {
		if !s.Finished || len(s.Points) == 0 {
			continue
		}
		c := render.ParseHexColor(s.Color)
		r, g, b := int(c.R), int(c.G), int(c.B)

		if len(s.Points) == 1 {
			pdf.SetFillColor(r, g, b)
			pdf.Circle(s.Points[0].X, s.Points[0].Y, s.Width/2, "F")
			continue
		}
		pdf.SetDrawColor(r, g, b)
		pdf.SetLineWidth(s.Width)
		render.TracePath(pdfPath{pdf: pdf}, s.Points)
		pdf.DrawPath("D")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// PNG rasterizes the finished strokes at width x height pixels.
func PNG(w io.Writer, width, height int, strokes []models.Stroke) error {
	img := render.RenderStrokes(width, height, strokes)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
