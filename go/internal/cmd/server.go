package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/sketchroom/go/internal/canvas/gateway"
)

func setupServer(config *Config, services *Services) *http.Server {
	r := mux.NewRouter()
	r.Use(accessLog)

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
		},
		AllowedOrigins: config.CORS.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	// Register gateway routes (WebSocket and REST)
	services.Gateway.RegisterRoutes(r)

	setupHealthCheck(r, services)
	setupStats(r, services)

	handler := c.Handler(r)

	return &http.Server{
		Addr:        fmt.Sprintf(":%s", config.Port),
		Handler:     h2c.NewHandler(handler, &http2.Server{}),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		log.Debug().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", m.Code).
			Dur("duration", m.Duration).
			Int64("bytes", m.Written).
			Msg("handled")
	})
}

func setupHealthCheck(r *mux.Router, services *Services) {
	checker := gateway.NewServiceHealthChecker(services.Gateway, services.Publisher)
	r.Handle("/health", checker).Methods(http.MethodGet)
	r.Handle("/metrics", gateway.NewMetricsHandler(checker)).Methods(http.MethodGet)
}

func setupStats(r *mux.Router, services *Services) {
	r.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := services.Gateway.GetStats()
		stats["room_stats"] = services.Rooms.Rooms()
		stats["nats_mirror"] = services.Publisher != nil

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Error().Err(err).Msg("failed to encode stats response")
		}
	}).Methods(http.MethodGet)
}
