package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/sketchroom/go/internal/models"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		payload interface{}
		into    func() interface{}
	}{
		{
			name: "welcome",
			typ:  TypeWelcome,
			payload: WelcomePayload{
				UserID: "u1",
				Color:  "#112233",
				History: []models.Stroke{{
					ID: "s1", AuthorID: "u1", Color: "#000000", Width: 5,
					Points: []models.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}, Finished: true, CreatedAt: 42,
				}},
				Users: []models.UserInfo{{ID: "u1", Name: "ada", Color: "#112233"}},
			},
			into: func() interface{} { return &WelcomePayload{} },
		},
		{
			name:    "draw point",
			typ:     TypeDrawPoint,
			payload: DrawPointPayload{UserID: "u2", StrokeID: "s1", X: 1.5, Y: -2.25},
			into:    func() interface{} { return &DrawPointPayload{} },
		},
		{
			name:    "cursor",
			typ:     TypeCursor,
			payload: CursorPayload{UserID: "u3", X: 100, Y: 200},
			into:    func() interface{} { return &CursorPayload{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.typ, tt.payload)
			require.NoError(t, err)

			env, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, tt.typ, env.Type)

			got := tt.into()
			require.NoError(t, env.DecodePayload(got))
			// compare through the pointer target
			want, _ := json.Marshal(tt.payload)
			have, _ := json.Marshal(got)
			assert.JSONEq(t, string(want), string(have))
		})
	}
}

func TestEnvelopeWireNames(t *testing.T) {
	data, err := Encode(TypeDrawEnd, DrawEndPayload{UserID: "u1", StrokeID: "abc"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"draw_end","payload":{"userId":"u1","strokeId":"abc"}}`, string(data))

	data, err = Encode(TypeClear, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"clear","payload":{}}`, string(data))
}

func TestDecodeRejectsMalformed(t *testing.T) {
	t.Run("not json", func(t *testing.T) {
		_, err := Decode([]byte("{nope"))
		assert.Error(t, err)
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := Decode([]byte(`{"payload":{}}`))
		assert.Error(t, err)
	})

	t.Run("bad payload body", func(t *testing.T) {
		env, err := Decode([]byte(`{"type":"draw_point","payload":{"strokeId":7}}`))
		require.NoError(t, err)
		_, err = ParsePayload(env)
		assert.Error(t, err)
	})
}

func TestParsePayload(t *testing.T) {
	env, err := Decode([]byte(`{"type":"draw_start","payload":{"id":"a","x":3,"y":4,"color":"#fff","width":2}}`))
	require.NoError(t, err)

	payload, err := ParsePayload(env)
	require.NoError(t, err)
	start, ok := payload.(DrawStartPayload)
	require.True(t, ok)
	assert.Equal(t, "a", start.ID)
	assert.Equal(t, models.Point{X: 3, Y: 4}, start.StartPoint())

	env.Type = "teleport"
	_, err = ParsePayload(env)
	assert.ErrorIs(t, err, ErrUnknownType)

	undo, err := ParsePayload(Envelope{Type: TypeUndo})
	require.NoError(t, err)
	assert.Equal(t, UndoPayload{}, undo)
}

func TestDrawStartFromStroke(t *testing.T) {
	s := models.Stroke{ID: "s1", AuthorID: "u1", Color: "#000", Width: 3, Points: []models.Point{{X: 7, Y: 8}}, CreatedAt: 99}
	p := DrawStartFromStroke(s)

	assert.Equal(t, "s1", p.ID)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, 7.0, p.X)
	assert.Equal(t, 8.0, p.Y)
	assert.Equal(t, models.Point{X: 7, Y: 8}, p.StartPoint())
	assert.Equal(t, int64(99), p.CreatedAt)
}

func TestParsePayloadRequiresBody(t *testing.T) {
	for _, typ := range []Type{TypeWelcome, TypeUserJoined, TypeUserLeft, TypeDrawStart, TypeDrawPoint, TypeDrawEnd, TypeCursor} {
		t.Run(string(typ), func(t *testing.T) {
			_, err := ParsePayload(Envelope{Type: typ})
			assert.ErrorIs(t, err, ErrMissingPayload)

			_, err = ParsePayload(Envelope{Type: typ, Payload: json.RawMessage(`null`)})
			assert.ErrorIs(t, err, ErrMissingPayload)
		})
	}

	for _, typ := range []Type{TypeUndo, TypeRedo, TypeClear} {
		t.Run(string(typ)+" without body", func(t *testing.T) {
			_, err := ParsePayload(Envelope{Type: typ, Payload: json.RawMessage(`null`)})
			assert.NoError(t, err)
		})
	}
}
