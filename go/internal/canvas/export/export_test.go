package export

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/sketchroom/go/internal/models"
)

func sampleStrokes() []models.Stroke {
	return []models.Stroke{
		{ID: "line", Color: "#ff0000", Width: 4, Finished: true, Points: []models.Point{{X: 10, Y: 10}, {X: 50, Y: 10}}},
		{ID: "curve", Color: "#00f", Width: 2, Finished: true, Points: []models.Point{{X: 5, Y: 40}, {X: 20, Y: 30}, {X: 35, Y: 50}, {X: 60, Y: 40}}},
		{ID: "dot", Color: "#000000", Width: 6, Finished: true, Points: []models.Point{{X: 30, Y: 60}}},
		{ID: "live", Color: "#000000", Width: 6, Points: []models.Point{{X: 0, Y: 0}, {X: 64, Y: 64}}},
	}
}

func TestPDF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, 640, 480, sampleStrokes()))

	out := buf.Bytes()
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, string(out), "%%EOF")
}

func TestPDFEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PDF(&buf, 100, 100, nil))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, 64, 64, sampleStrokes()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())

	_, _, _, a := img.At(30, 10).RGBA()
	assert.NotZero(t, a, "finished stroke is drawn")

	// the unfinished diagonal must not appear
	_, _, _, a = img.At(62, 62).RGBA()
	assert.Zero(t, a)
}
