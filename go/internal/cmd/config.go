package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration. Environment variables set the
// defaults; a YAML file named by CANVAS_CONFIG overrides them.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	WebSocket struct {
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		PingInterval    time.Duration `yaml:"ping_interval"`
		MaxMessageSize  int64         `yaml:"max_message_size"`
		ReadBufferSize  int           `yaml:"read_buffer_size"`
		WriteBufferSize int           `yaml:"write_buffer_size"`
		SendQueueSize   int           `yaml:"send_queue_size"`
	} `yaml:"websocket"`

	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	MDNS struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"mdns"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"cors"`

	Export struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"export"`
}

func configFromEnv() *Config {
	var c Config
	c.Port = getEnv("PORT", "8080")
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogJSON = getEnvAsBool("LOG_JSON", false)

	c.WebSocket.WriteTimeout = getEnvAsDuration("WS_WRITE_TIMEOUT", 10*time.Second)
	c.WebSocket.ReadTimeout = getEnvAsDuration("WS_READ_TIMEOUT", 60*time.Second)
	c.WebSocket.PingInterval = getEnvAsDuration("WS_PING_INTERVAL", 30*time.Second)
	c.WebSocket.MaxMessageSize = int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 16*1024))
	c.WebSocket.ReadBufferSize = getEnvAsInt("WS_READ_BUFFER_SIZE", 1024)
	c.WebSocket.WriteBufferSize = getEnvAsInt("WS_WRITE_BUFFER_SIZE", 1024)
	c.WebSocket.SendQueueSize = getEnvAsInt("WS_SEND_QUEUE_SIZE", 256)

	c.NATS.URL = getEnv("NATS_URL", "")
	c.NATS.SubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", "canvas.events")

	c.MDNS.Enabled = getEnvAsBool("MDNS_ENABLED", false)
	c.CORS.AllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	c.Export.Width = getEnvAsInt("EXPORT_WIDTH", 1280)
	c.Export.Height = getEnvAsInt("EXPORT_HEIGHT", 720)
	return &c
}

// loadConfig reads the environment and then applies the YAML file at path,
// if any. Keys missing from the file keep their environment value.
func loadConfig(path string) (*Config, error) {
	config := configFromEnv()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
