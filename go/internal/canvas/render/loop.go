package render

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// FrameInterval is the frame budget of the render loop (~60 Hz).
const FrameInterval = 16 * time.Millisecond

// FrameSource feeds the render loop. FlushPoints is called once per frame so
// buffered network traffic goes out at frame rate.
type FrameSource interface {
	FlushPoints()
	Scene(now time.Time) Scene
}

// RunFrames drives r from src on every tick until ctx is cancelled.
func RunFrames(ctx context.Context, clock clockwork.Clock, interval time.Duration, src FrameSource, r *Renderer) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if interval <= 0 {
		interval = FrameInterval
	}

	ticker := clock.NewTicker(interval)
	defer ticker.Stop()

	log.Debug().Dur("interval", interval).Msg("render loop started")
	frames := 0
	for {
		select {
		case <-ctx.Done():
			log.Debug().Int("frames_drawn", frames).Msg("render loop stopped")
			return
		case now := <-ticker.Chan():
			src.FlushPoints()
			if r.Frame(src.Scene(now)) {
				frames++
			}
		}
	}
}
