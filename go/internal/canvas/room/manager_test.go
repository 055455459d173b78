package room

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerDefaultRoom(t *testing.T) {
	m := NewManager(nil, nil)

	r, err := m.Get(DefaultRoomID)
	require.NoError(t, err)
	assert.Equal(t, DefaultRoomID, r.ID)

	same, created := m.GetOrCreate("")
	assert.False(t, created)
	assert.Same(t, r, same)
}

func TestManagerGetOrCreate(t *testing.T) {
	m := NewManager(nil, nil)

	_, err := m.Get("sketches")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	r, created := m.GetOrCreate("sketches")
	assert.True(t, created)

	again, created := m.GetOrCreate("sketches")
	assert.False(t, created)
	assert.Same(t, r, again)
	assert.Equal(t, 2, m.Len())
}

func TestManagerConcurrentCreate(t *testing.T) {
	m := NewManager(nil, nil)

	var wg sync.WaitGroup
	rooms := make([]*Room, 50)
	for i := range rooms {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rooms[i], _ = m.GetOrCreate("busy")
		}(i)
	}
	wg.Wait()

	for _, r := range rooms {
		assert.Same(t, rooms[0], r)
	}
}

func TestManagerRooms(t *testing.T) {
	m := NewManager(nil, nil)
	for i := 3; i > 0; i-- {
		m.GetOrCreate(fmt.Sprintf("room-%d", i))
	}

	stats := m.Rooms()
	require.Len(t, stats, 4)
	ids := []string{stats[0].ID, stats[1].ID, stats[2].ID, stats[3].ID}
	assert.Equal(t, []string{"default", "room-1", "room-2", "room-3"}, ids)
}
