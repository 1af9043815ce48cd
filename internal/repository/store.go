package repository

import (
	"context"

	"github.com/dropfour/server/internal/domain"
)

// RoomStore is the durable source of truth for rooms. Implementations
// index rooms twice: by id (primary) and by roomKey (join lookups).
// Missing rooms surface as domain.ErrRoomNotFound, never as nil/nil.
type RoomStore interface {
	GetRoom(ctx context.Context, id string) (*domain.Room, error)
	GetRoomIDByKey(ctx context.Context, key string) (string, error)
	// SaveRoom persists the room and refreshes both indexes and the TTL.
	SaveRoom(ctx context.Context, room *domain.Room) error
	// DeleteRoom removes the room and its key index; reports whether a
	// room existed.
	DeleteRoom(ctx context.Context, id string) (bool, error)
	ListRooms(ctx context.Context) ([]*domain.Room, error)
}
