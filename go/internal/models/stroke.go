package models

// Point is a position in canvas-local coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous freehand path from pointer-down to pointer-up.
// Points only grow while Finished is false; a finished stroke is never mutated.
type Stroke struct {
	ID        string  `json:"id"`
	AuthorID  string  `json:"userId"`
	Color     string  `json:"color"`
	Width     float64 `json:"width"`
	Points    []Point `json:"points"`
	Finished  bool    `json:"isFinished"`
	CreatedAt int64   `json:"startTime"` // unix millis
}

// Clone returns a deep copy so the points slice can be handed across goroutines.
func (s *Stroke) Clone() Stroke {
	c := *s
	c.Points = make([]Point, len(s.Points))
	copy(c.Points, s.Points)
	return c
}
