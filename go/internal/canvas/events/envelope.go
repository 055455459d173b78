package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Type identifies a message on the canvas socket. The set is closed: anything
// else is dropped by the dispatchers on both sides.
type Type string

const (
	TypeWelcome    Type = "welcome"
	TypeUserJoined Type = "user_joined"
	TypeUserLeft   Type = "user_left"
	TypeDrawStart  Type = "draw_start"
	TypeDrawPoint  Type = "draw_point"
	TypeDrawEnd    Type = "draw_end"
	TypeUndo       Type = "undo"
	TypeRedo       Type = "redo"
	TypeClear      Type = "clear"
	TypeCursor     Type = "cursor"
)

var (
	// ErrUnknownType is returned by ParsePayload for a type outside the protocol.
	ErrUnknownType = errors.New("unknown message type")
	// ErrMissingPayload is returned by ParsePayload when a data-carrying
	// message has no payload object.
	ErrMissingPayload = errors.New("message has no payload")
)

// Envelope is the {type, payload} frame used in both directions.
type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(t Type, payload interface{}) (Envelope, error) {
	if payload == nil {
		payload = struct{}{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	return Envelope{Type: t, Payload: raw}, nil
}

// Encode marshals a complete envelope ready to be written to a socket.
func Encode(t Type, payload interface{}) ([]byte, error) {
	env, err := NewEnvelope(t, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// Decode parses one socket frame into an envelope. The payload is left raw.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, errors.New("envelope has no type")
	}
	return env, nil
}

// DecodePayload unmarshals the raw payload into v. A missing or null payload
// leaves v untouched.
func (e Envelope) DecodePayload(v interface{}) error {
	if !e.HasPayload() {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}

// HasPayload reports whether the envelope carries a non-null payload.
func (e Envelope) HasPayload() bool {
	return len(e.Payload) > 0 && !bytes.Equal(bytes.TrimSpace(e.Payload), []byte("null"))
}

// ParsePayload parses the envelope payload into the struct matching its type.
// Undo, redo and clear may arrive without a payload; every other type must
// carry one.
func ParsePayload(env Envelope) (interface{}, error) {
	switch env.Type {
	case TypeWelcome:
		return parse[WelcomePayload](env, true)
	case TypeUserJoined:
		return parse[UserJoinedPayload](env, true)
	case TypeUserLeft:
		return parse[UserLeftPayload](env, true)
	case TypeDrawStart:
		return parse[DrawStartPayload](env, true)
	case TypeDrawPoint:
		return parse[DrawPointPayload](env, true)
	case TypeDrawEnd:
		return parse[DrawEndPayload](env, true)
	case TypeUndo:
		return parse[UndoPayload](env, false)
	case TypeRedo:
		return parse[RedoPayload](env, false)
	case TypeClear:
		return parse[ClearPayload](env, false)
	case TypeCursor:
		return parse[CursorPayload](env, true)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

func parse[T any](env Envelope, required bool) (interface{}, error) {
	var payload T
	if required && !env.HasPayload() {
		return nil, fmt.Errorf("%w: %s", ErrMissingPayload, env.Type)
	}
	if err := env.DecodePayload(&payload); err != nil {
		return nil, err
	}
	return payload, nil
}
