package client

import (
	"context"
	"errors"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/sketchroom/go/internal/canvas/render"
)

// Session wires one engine, renderer and transport together.
type Session struct {
	Engine    *Engine
	Renderer  *render.Renderer
	Transport *Transport

	clock clockwork.Clock
}

// NewSession builds a session for a canvas of the given size.
func NewSession(cfg TransportConfig, width, height int) *Session {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	r := render.NewRenderer(width, height)
	t := NewTransport(cfg, nil)
	e := NewEngine(t, r, cfg.Clock)
	t.SetHandler(e.Handle)
	return &Session{Engine: e, Renderer: r, Transport: t, clock: cfg.Clock}
}

// Run drives the transport and the frame loop until ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		render.RunFrames(ctx, s.clock, render.FrameInterval, s.Engine, s.Renderer)
	}()

	err := s.Transport.Run(ctx)
	wg.Wait()
	if errors.Is(err, ErrTransportClosed) {
		return nil
	}
	return err
}
