package cache

import (
	"sync"

	"github.com/dropfour/server/internal/domain"
)

// RoomCache is the in-process read-through cache in front of the durable
// store. It is an explicit component injected into the room service at
// construction; entries are advisory only and always refreshed after a
// successful durable write.
type RoomCache struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room
}

func NewRoomCache() *RoomCache {
	return &RoomCache{rooms: make(map[string]*domain.Room)}
}

func (c *RoomCache) Get(id string) (*domain.Room, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	room, exists := c.rooms[id]
	if !exists {
		return nil, false
	}
	return room.Clone(), true
}

func (c *RoomCache) Set(room *domain.Room) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms[room.ID] = room.Clone()
}

func (c *RoomCache) Evict(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rooms, id)
}
