package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dropfour/server/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	roomKeyPrefix  = "room:"
	indexKeyPrefix = "roomkey:"
)

// Store keeps rooms in Redis: `room:{id}` holds the JSON-encoded room,
// `roomkey:{key}` holds the id for join-by-key lookups. Both carry the
// same TTL so an expired room never leaves a dangling key index behind.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

// Connect dials Redis and verifies the connection.
func Connect(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	log.Println("[REDIS] Connected successfully")
	return client, nil
}

func (s *Store) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	data, err := s.client.Get(ctx, roomKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room %s: %w", id, err)
	}

	var room domain.Room
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, fmt.Errorf("failed to decode room %s: %w", id, err)
	}
	return &room, nil
}

func (s *Store) GetRoomIDByKey(ctx context.Context, key string) (string, error) {
	id, err := s.client.Get(ctx, indexKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrRoomNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve room key %s: %w", key, err)
	}
	return id, nil
}

func (s *Store) SaveRoom(ctx context.Context, room *domain.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to encode room %s: %w", room.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, roomKeyPrefix+room.ID, data, s.ttl)
	pipe.Set(ctx, indexKeyPrefix+room.RoomKey, room.ID, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save room %s: %w", room.ID, err)
	}
	return nil
}

func (s *Store) DeleteRoom(ctx context.Context, id string) (bool, error) {
	room, err := s.GetRoom(ctx, id)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, roomKeyPrefix+id)
	pipe.Del(ctx, indexKeyPrefix+room.RoomKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to delete room %s: %w", id, err)
	}
	return true, nil
}

// ListRooms scans for room records. Used by the live-rooms endpoint and
// the cleanup sweep; expiry itself is handled by Redis TTLs.
func (s *Store) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	var rooms []*domain.Room

	iter := s.client.Scan(ctx, 0, roomKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Result()
		if errors.Is(err, redis.Nil) {
			continue // expired between scan and get
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get %s during scan: %w", iter.Val(), err)
		}

		var room domain.Room
		if err := json.Unmarshal([]byte(data), &room); err != nil {
			log.Printf("[REDIS] Skipping undecodable room record %s: %v", iter.Val(), err)
			continue
		}
		rooms = append(rooms, &room)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("room scan failed: %w", err)
	}
	return rooms, nil
}
