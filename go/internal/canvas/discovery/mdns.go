// Package discovery advertises a canvas server on the local network and finds
// one from the client side.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

// ServiceType is the DNS-SD service type of a canvas server.
const ServiceType = "_sketchroom._tcp"

// ErrNotFound is returned when no server answered before the deadline.
var ErrNotFound = errors.New("no canvas server found")

// Advertisement is a running mDNS responder.
type Advertisement struct {
	server *mdns.Server
}

// Advertise announces a server listening on port. info is published as TXT
// records.
func Advertise(port int, info ...string) (*Advertisement, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("get hostname: %w", err)
	}
	if len(info) == 0 {
		info = []string{"sketchroom"}
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, info)
	if err != nil {
		return nil, fmt.Errorf("create mdns service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("start mdns server: %w", err)
	}

	log.Info().Str("service", ServiceType).Int("port", port).Msg("advertising on local network")
	return &Advertisement{server: server}, nil
}

// Close stops the responder.
func (a *Advertisement) Close() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// Browse returns the host:port of the first server that answers within
// timeout.
func Browse(ctx context.Context, timeout time.Duration) (string, error) {
	params := mdns.DefaultParams(ServiceType)
	params.Timeout = timeout
	params.DisableIPv6 = true

	return browse(ctx, func(entries chan<- *mdns.ServiceEntry) error {
		params.Entries = entries
		return mdns.Query(params)
	})
}

// browse runs query and returns the first usable address it reports. Entries
// still buffered when query returns are read before giving up.
func browse(ctx context.Context, query func(chan<- *mdns.ServiceEntry) error) (string, error) {
	entries := make(chan *mdns.ServiceEntry, 8)
	found := make(chan string, 1)
	drained := make(chan struct{})

	go func() {
		defer close(drained)
		for e := range entries {
			if addr := entryAddr(e); addr != "" {
				select {
				case found <- addr:
				default:
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- query(entries)
		close(entries)
	}()

	select {
	case addr := <-found:
		return addr, nil
	case err := <-errCh:
		if err != nil {
			return "", fmt.Errorf("mdns query: %w", err)
		}
		select {
		case <-drained:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		select {
		case addr := <-found:
			return addr, nil
		default:
			return "", ErrNotFound
		}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func entryAddr(e *mdns.ServiceEntry) string {
	if e == nil || e.AddrV4 == nil || e.Port == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port)
}
