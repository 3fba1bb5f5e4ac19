package registry

import (
	"github.com/imtaco/watch-party/internal/sync"
	"github.com/imtaco/watch-party/party"
)

// Memory keeps rooms in process memory. Rooms are not copied: callers own
// the synchronization of a room's fields.
type Memory struct {
	rooms *sync.Map[string, *party.Room]
}

func NewMemory() *Memory {
	return &Memory{
		rooms: sync.NewMap[string, *party.Room](),
	}
}

func (m *Memory) Get(roomID string) (*party.Room, bool) {
	return m.rooms.Load(roomID)
}

func (m *Memory) Upsert(room *party.Room) {
	m.rooms.Store(room.ID, room)
}

func (m *Memory) Delete(roomID string) {
	m.rooms.Delete(roomID)
}

func (m *Memory) Range(fn func(room *party.Room) bool) {
	m.rooms.Range(func(_ string, room *party.Room) bool {
		return fn(room)
	})
}

func (m *Memory) Len() int {
	return m.rooms.Len()
}
