package discovery

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryAddr(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
		want  string
	}{
		{name: "nil", entry: nil, want: ""},
		{name: "no ipv4", entry: &mdns.ServiceEntry{Port: 8080}, want: ""},
		{name: "no port", entry: &mdns.ServiceEntry{AddrV4: net.IPv4(10, 0, 0, 2)}, want: ""},
		{name: "complete", entry: &mdns.ServiceEntry{AddrV4: net.IPv4(10, 0, 0, 2), Port: 8080}, want: "10.0.0.2:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, entryAddr(tt.entry))
		})
	}
}

func TestCloseNilAdvertisement(t *testing.T) {
	var a *Advertisement
	assert.NoError(t, a.Close())
}

func TestBrowse(t *testing.T) {
	server := &mdns.ServiceEntry{AddrV4: net.IPv4(10, 0, 0, 7), Port: 9000}

	t.Run("answer sent just before the query returns", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			addr, err := browse(context.Background(), func(entries chan<- *mdns.ServiceEntry) error {
				entries <- &mdns.ServiceEntry{Port: 1}
				entries <- server
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, "10.0.0.7:9000", addr)
		}
	})

	t.Run("no answer", func(t *testing.T) {
		_, err := browse(context.Background(), func(chan<- *mdns.ServiceEntry) error { return nil })
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("query error", func(t *testing.T) {
		boom := errors.New("no multicast")
		_, err := browse(context.Background(), func(chan<- *mdns.ServiceEntry) error { return boom })
		assert.ErrorIs(t, err, boom)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		release := make(chan struct{})
		defer close(release)

		_, err := browse(ctx, func(chan<- *mdns.ServiceEntry) error {
			<-release
			return nil
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
