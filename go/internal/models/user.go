package models

import "time"

// User is a participant connected to a room. Color is assigned once at join
// time and never renegotiated.
type User struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joined_at"`
}

// UserInfo is the roster projection of a User sent to clients.
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Info returns the roster projection of the user.
func (u *User) Info() UserInfo {
	return UserInfo{ID: u.ID, Name: u.Name, Color: u.Color}
}

// Cursor is the last known pointer position of a remote user. It is
// client-only and never part of the room history.
type Cursor struct {
	UserID     string
	X          float64
	Y          float64
	Color      string
	LastUpdate time.Time
}

// Expired reports whether the cursor has been silent for longer than ttl.
func (c Cursor) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.LastUpdate) > ttl
}
