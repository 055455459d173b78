package room

import (
	"errors"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultRoomID is used when a client connects without naming a room.
const DefaultRoomID = "default"

// ErrRoomNotFound is returned by lookups that must not create rooms.
var ErrRoomNotFound = errors.New("room not found")

// Manager is the registry of live rooms. Rooms are created on first use and
// live for the rest of the process.
type Manager struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	clock     clockwork.Clock
	publisher Publisher
}

// NewManager creates a registry holding the default room.
func NewManager(clock clockwork.Clock, publisher Publisher) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if publisher == nil {
		publisher = NoOpPublisher{}
	}
	m := &Manager{
		rooms:     make(map[string]*Room),
		clock:     clock,
		publisher: publisher,
	}
	m.GetOrCreate(DefaultRoomID)
	return m
}

// GetOrCreate returns the named room, creating it when unseen. An empty id
// resolves to the default room.
func (m *Manager) GetOrCreate(id string) (*Room, bool) {
	if id == "" {
		id = DefaultRoomID
	}

	m.mu.RLock()
	r, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return r, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// Another connection may have created it between the two locks
	if r, ok := m.rooms[id]; ok {
		return r, false
	}
	r = New(id, m.clock, m.publisher)
	m.rooms[id] = r

	log.Info().Str("room_id", id).Int("total_rooms", len(m.rooms)).Msg("room created")
	return r, true
}

// Get returns an existing room.
func (m *Manager) Get(id string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[id]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Rooms returns a summary of every room ordered by id.
func (m *Manager) Rooms() []Stats {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	stats := make([]Stats, 0, len(rooms))
	for _, r := range rooms {
		stats = append(stats, r.Stats())
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].ID < stats[j].ID })
	return stats
}

// Len returns the number of rooms.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
