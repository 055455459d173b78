package main

import (
	"context"
	"flag"
	"image/png"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/sketchroom/go/internal/canvas/client"
	"github.com/mcdev12/sketchroom/go/internal/canvas/discovery"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	addr := flag.String("addr", getEnv("CANVAS_ADDR", "localhost:8080"), "server address")
	roomID := flag.String("room", "", "room to join")
	name := flag.String("name", getEnv("CANVAS_NAME", "Headless"), "display name")
	discover := flag.Bool("discover", false, "find the server on the local network")
	scribble := flag.Bool("scribble", false, "draw a demo stroke once connected")
	out := flag.String("out", "", "write the canvas to this PNG on exit")
	width := flag.Int("width", 1280, "canvas width")
	height := flag.Int("height", 720, "canvas height")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *discover {
		found, err := discovery.Browse(ctx, 3*time.Second)
		if err != nil {
			log.Fatal().Err(err).Msg("server discovery failed")
		}
		log.Info().Str("addr", found).Msg("discovered server")
		*addr = found
	}

	url, err := client.BuildURL(*addr, *roomID, *name)
	if err != nil {
		log.Fatal().Err(err).Str("addr", *addr).Msg("invalid server address")
	}

	session := client.NewSession(client.DefaultTransportConfig(url), *width, *height)
	session.Transport.OnStateChange(func(s client.State) {
		log.Info().Str("state", s.String()).Msg("transport state changed")
	})

	if *scribble {
		go func() {
			for session.Transport.State() != client.StateConnected || session.Engine.UserID() == "" {
				select {
				case <-ctx.Done():
					return
				case <-time.After(50 * time.Millisecond):
				}
			}
			drawSpiral(ctx, session.Engine, float64(*width)/2, float64(*height)/2)
		}()
	}

	if err := session.Run(ctx); err != nil {
		log.Error().Err(err).Msg("session ended")
	}

	log.Info().
		Int("strokes", len(session.Engine.Strokes())).
		Int("users", session.Engine.UserCount()).
		Msg("disconnected")

	if *out != "" {
		if err := writePNG(*out, session); err != nil {
			log.Fatal().Err(err).Str("path", *out).Msg("failed to write canvas")
		}
		log.Info().Str("path", *out).Msg("canvas written")
	}
}

// drawSpiral feeds a spiral through the engine as if a user drew it.
func drawSpiral(ctx context.Context, e *client.Engine, cx, cy float64) {
	const steps = 120
	e.PointerDown(client.PointerEvent{X: cx, Y: cy})
	for i := 1; i <= steps; i++ {
		a := float64(i) * 0.2
		r := float64(i) * 1.5
		e.PointerMove(client.PointerEvent{X: cx + r*math.Cos(a), Y: cy + r*math.Sin(a)})
		select {
		case <-ctx.Done():
			e.PointerUp()
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
	e.PointerUp()
	log.Info().Msg("demo stroke drawn")
}

func writePNG(path string, s *client.Session) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, s.Renderer.Composite()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
