package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "NATS_URL", "CORS_ALLOWED_ORIGINS", "MDNS_ENABLED", "WS_WRITE_TIMEOUT", "WS_SEND_QUEUE_SIZE"} {
		t.Setenv(key, "")
	}
	c := configFromEnv()

	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, 10*time.Second, c.WebSocket.WriteTimeout)
	assert.Equal(t, 256, c.WebSocket.SendQueueSize)
	assert.Empty(t, c.NATS.URL)
	assert.Equal(t, []string{"*"}, c.CORS.AllowedOrigins)
	assert.False(t, c.MDNS.Enabled)
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WS_PING_INTERVAL", "5s")
	t.Setenv("WS_SEND_QUEUE_SIZE", "not-a-number")
	t.Setenv("MDNS_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("NATS_URL", "nats://example:4222")

	c := configFromEnv()

	assert.Equal(t, "9000", c.Port)
	assert.Equal(t, 5*time.Second, c.WebSocket.PingInterval)
	assert.Equal(t, 256, c.WebSocket.SendQueueSize, "unparseable values fall back")
	assert.True(t, c.MDNS.Enabled)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.CORS.AllowedOrigins)
	assert.Equal(t, "nats://example:4222", c.NATS.URL)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("PORT", "9000")
	path := filepath.Join(t.TempDir(), "canvas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
websocket:
  read_timeout: 90s
  send_queue_size: 64
nats:
  url: nats://yaml:4222
export:
  width: 800
`), 0o600))

	c, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9000", c.Port, "keys missing from the file keep the env value")
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 90*time.Second, c.WebSocket.ReadTimeout)
	assert.Equal(t, 64, c.WebSocket.SendQueueSize)
	assert.Equal(t, "nats://yaml:4222", c.NATS.URL)
	assert.Equal(t, 800, c.Export.Width)
	assert.Equal(t, 720, c.Export.Height)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("websocket: [1, 2"), 0o600))
	_, err = loadConfig(path)
	assert.Error(t, err)
}
