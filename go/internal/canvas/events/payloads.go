package events

import (
	"github.com/mcdev12/sketchroom/go/internal/models"
)

// Payload types shared by the server gateway and the client engine

// WelcomePayload is sent to a newly (re)connected client only.
type WelcomePayload struct {
	UserID  string            `json:"userId"`
	Color   string            `json:"color"`
	History []models.Stroke   `json:"history"`
	Users   []models.UserInfo `json:"users"`
}

// UserJoinedPayload announces a new member to the rest of the room.
type UserJoinedPayload struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// UserLeftPayload announces a departed member.
type UserLeftPayload struct {
	UserID string `json:"userId"`
}

// DrawStartPayload is sent by the author as {id,x,y,color,width} and relayed by
// the server with the full stroke fields.
type DrawStartPayload struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId,omitempty"`
	X         float64        `json:"x"`
	Y         float64        `json:"y"`
	Color     string         `json:"color"`
	Width     float64        `json:"width"`
	Points    []models.Point `json:"points,omitempty"`
	Finished  bool           `json:"isFinished,omitempty"`
	CreatedAt int64          `json:"startTime,omitempty"`
}

// StartPoint returns the first point of the stroke being started.
func (p DrawStartPayload) StartPoint() models.Point {
	if len(p.Points) > 0 {
		return p.Points[0]
	}
	return models.Point{X: p.X, Y: p.Y}
}

// DrawStartFromStroke builds the relayed form of a freshly created stroke.
func DrawStartFromStroke(s models.Stroke) DrawStartPayload {
	p := DrawStartPayload{
		ID:        s.ID,
		UserID:    s.AuthorID,
		Color:     s.Color,
		Width:     s.Width,
		Points:    s.Points,
		Finished:  s.Finished,
		CreatedAt: s.CreatedAt,
	}
	if len(s.Points) > 0 {
		p.X, p.Y = s.Points[0].X, s.Points[0].Y
	}
	return p
}

// DrawPointPayload appends one point to an in-progress stroke. UserID is only
// set on the server relay.
type DrawPointPayload struct {
	UserID   string  `json:"userId,omitempty"`
	StrokeID string  `json:"strokeId"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// DrawEndPayload seals a stroke.
type DrawEndPayload struct {
	UserID   string `json:"userId,omitempty"`
	StrokeID string `json:"strokeId"`
}

// UndoPayload is empty from the client and carries the removed id from the server.
type UndoPayload struct {
	StrokeID string `json:"strokeId,omitempty"`
}

// RedoPayload is empty from the client and carries the restored stroke from the server.
type RedoPayload struct {
	Stroke *models.Stroke `json:"stroke,omitempty"`
}

// ClearPayload is always empty.
type ClearPayload struct{}

// CursorPayload is {x,y} from the client and {userId,x,y} on relay.
type CursorPayload struct {
	UserID string  `json:"userId,omitempty"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}
