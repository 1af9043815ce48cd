package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropfour/server/internal/domain"
)

type entry struct {
	room      *domain.Room
	expiresAt time.Time
}

// Store is the in-memory RoomStore used when no Redis is configured.
// Rooms are stored and returned as deep copies so callers never share
// board slices with the store, matching the serialization boundary of
// the Redis backend.
type Store struct {
	mu     sync.RWMutex
	rooms  map[string]*entry
	keys   map[string]string // roomKey -> roomID
	ttl    time.Duration
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		rooms: make(map[string]*entry),
		keys:  make(map[string]string),
		ttl:   ttl,
	}
}

func (s *Store) GetRoom(_ context.Context, id string) (*domain.Room, error) {
	s.mu.RLock()
	e, exists := s.rooms[id]
	s.mu.RUnlock()

	if !exists {
		return nil, domain.ErrRoomNotFound
	}
	if s.expired(e) {
		s.dropExpired(id, e)
		return nil, domain.ErrRoomNotFound
	}
	return e.room.Clone(), nil
}

func (s *Store) GetRoomIDByKey(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.keys[key]
	if !exists {
		return "", domain.ErrRoomNotFound
	}
	return id, nil
}

func (s *Store) SaveRoom(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[room.ID] = &entry{room: room.Clone(), expiresAt: time.Now().Add(s.ttl)}
	s.keys[room.RoomKey] = room.ID
	return nil
}

func (s *Store) DeleteRoom(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.rooms[id]
	if !exists {
		return false, nil
	}
	delete(s.rooms, id)
	delete(s.keys, e.room.RoomKey)
	return true, nil
}

func (s *Store) ListRooms(_ context.Context) ([]*domain.Room, error) {
	s.mu.RLock()
	rooms := make([]*domain.Room, 0, len(s.rooms))
	stale := []string(nil)
	for id, e := range s.rooms {
		if s.expired(e) {
			stale = append(stale, id)
			continue
		}
		rooms = append(rooms, e.room.Clone())
	}
	s.mu.RUnlock()

	for _, id := range stale {
		s.mu.Lock()
		if e, exists := s.rooms[id]; exists && s.expired(e) {
			delete(s.rooms, id)
			delete(s.keys, e.room.RoomKey)
		}
		s.mu.Unlock()
	}
	return rooms, nil
}

func (s *Store) expired(e *entry) bool {
	return s.ttl > 0 && time.Now().After(e.expiresAt)
}

func (s *Store) dropExpired(id string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, exists := s.rooms[id]; exists && cur == e {
		delete(s.rooms, id)
		delete(s.keys, e.room.RoomKey)
	}
}
