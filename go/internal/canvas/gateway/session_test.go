package gateway

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/sketchroom/go/internal/canvas/client"
	"github.com/mcdev12/sketchroom/go/internal/canvas/render"
)

func startSession(t *testing.T, ctx context.Context, base, name string) *client.Session {
	t.Helper()
	url, err := client.BuildURL(base, "shared", name)
	require.NoError(t, err)

	s := client.NewSession(client.DefaultTransportConfig(url), 96, 96)
	go s.Run(ctx)
	require.Eventually(t, func() bool { return s.Engine.UserID() != "" }, 2*time.Second, 10*time.Millisecond)
	return s
}

func TestSessionsConverge(t *testing.T) {
	srv, _ := newTestServer(t)
	base := strings.TrimPrefix(srv.URL, "http://")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := startSession(t, ctx, base, "Alice")
	bob := startSession(t, ctx, base, "Bob")
	require.Eventually(t, func() bool { return alice.Engine.UserCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	alice.Engine.PointerDown(client.PointerEvent{X: 10, Y: 48})
	alice.Engine.PointerMove(client.PointerEvent{X: 40, Y: 40})
	alice.Engine.PointerMove(client.PointerEvent{X: 80, Y: 48})
	alice.Engine.PointerUp()

	strokes := alice.Engine.Strokes()
	require.Len(t, strokes, 1)
	id := strokes[0].ID

	require.Eventually(t, func() bool {
		s, ok := bob.Engine.Stroke(id)
		return ok && s.Finished && len(s.Points) == 3
	}, 2*time.Second, 10*time.Millisecond)

	got, _ := bob.Engine.Stroke(id)
	assert.Equal(t, strokes[0].Points, got.Points)
	assert.Equal(t, alice.Engine.UserID(), got.AuthorID)
	assert.Equal(t, render.RenderStrokes(96, 96, bob.Engine.Strokes()).Pix, bob.Renderer.StaticImage().Pix)

	// Global undo: Bob removes Alice's stroke for everyone.
	require.True(t, bob.Engine.Undo())
	require.Eventually(t, func() bool {
		return len(alice.Engine.Strokes()) == 0 && len(bob.Engine.Strokes()) == 0
	}, 2*time.Second, 10*time.Millisecond)

	require.True(t, alice.Engine.Redo())
	require.Eventually(t, func() bool {
		_, a := alice.Engine.Stroke(id)
		_, b := bob.Engine.Stroke(id)
		return a && b
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionResyncsAfterServerDrop(t *testing.T) {
	srv, svc := newTestServer(t)
	base := strings.TrimPrefix(srv.URL, "http://")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alice := startSession(t, ctx, base, "Alice")
	first := alice.Engine.UserID()

	alice.Engine.PointerDown(client.PointerEvent{X: 5, Y: 5})
	alice.Engine.PointerMove(client.PointerEvent{X: 15, Y: 15})
	alice.Engine.PointerUp()
	require.Eventually(t, func() bool {
		rm, err := svc.Rooms().Get("shared")
		return err == nil && len(rm.Snapshot()) == 1 && rm.Snapshot()[0].Finished
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Stop())

	// The transport waits its fixed delay, reconnects and receives a new welcome.
	require.Eventually(t, func() bool {
		id := alice.Engine.UserID()
		return id != "" && id != first
	}, 6*time.Second, 50*time.Millisecond)
	assert.Len(t, alice.Engine.Strokes(), 1, "history survives the reconnect")
	assert.Equal(t, client.StateConnected, alice.Transport.State())
}
