package room

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dropfour/server/internal/domain"
	"github.com/dropfour/server/internal/monitor"
	"github.com/dropfour/server/internal/repository"
	"github.com/dropfour/server/pkg/uid"
	"github.com/google/uuid"
)

// Broadcast event names, shared with the websocket clients.
const (
	EventRoomUpdate = "room_update"
	EventGameOver   = "game_over"
	EventPlayerLeft = "player_left"
)

const maxRoomKeyAttempts = 25

// Broadcaster delivers state-change events to whoever is watching a
// room. Delivery is best-effort; implementations must not block.
type Broadcaster interface {
	Notify(roomID, event string, payload any)
}

// Cache is the in-process read-through cache in front of the store.
type Cache interface {
	Get(id string) (*domain.Room, bool)
	Set(room *domain.Room)
	Evict(id string)
}

// Archiver receives a record for every finished game. Failures are
// logged and swallowed; gameplay never depends on it.
type Archiver interface {
	SaveResult(ctx context.Context, rec domain.GameRecord) error
}

// Options fix the geometry and limits shared by all rooms this service
// creates. Zero fields fall back to the domain defaults.
type Options struct {
	Rows              int
	Cols              int
	MaxPlayers        int
	WinningLength     int
	InactivityTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Rows <= 0 {
		o.Rows = domain.DefaultRows
	}
	if o.Cols <= 0 {
		o.Cols = domain.DefaultColumns
	}
	if o.MaxPlayers <= 0 {
		o.MaxPlayers = domain.DefaultMaxPlayers
	}
	if o.WinningLength <= 0 {
		o.WinningLength = domain.DefaultWinningLength
	}
	if o.InactivityTimeout <= 0 {
		o.InactivityTimeout = 24 * time.Hour
	}
	return o
}

// MoveResult reports an accepted move back to the transport layer.
type MoveResult struct {
	Room    *domain.Room `json:"room"`
	Row     int          `json:"row"`
	Column  int          `json:"column"`
	Message string       `json:"message"`
}

// Service is the room manager: the sole writer of room state. Every
// mutation runs under the room's lock, covering the cache-then-store
// read-modify-write as one unit.
type Service struct {
	store       repository.RoomStore
	cache       Cache
	broadcaster Broadcaster      // may be nil
	archiver    Archiver         // may be nil
	metrics     *monitor.Metrics // may be nil
	opts        Options
	locks       *roomLocks
}

func NewService(store repository.RoomStore, cache Cache, broadcaster Broadcaster, archiver Archiver, metrics *monitor.Metrics, opts Options) *Service {
	return &Service{
		store:       store,
		cache:       cache,
		broadcaster: broadcaster,
		archiver:    archiver,
		metrics:     metrics,
		opts:        opts.withDefaults(),
		locks:       newRoomLocks(),
	}
}

// CreateRoom allocates a fresh room with the host seated as player 1.
// winningLength <= 0 selects the configured default.
func (s *Service) CreateRoom(ctx context.Context, hostID, hostName string, winningLength int) (*domain.Room, error) {
	if winningLength <= 0 {
		winningLength = s.opts.WinningLength
	}

	roomKey, err := s.allocateRoomKey(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	room := &domain.Room{
		ID:      uuid.NewString(),
		RoomKey: roomKey,
		Host:    hostID,
		Players: []domain.Player{
			{ID: hostID, Name: hostName, PlayerNumber: 1},
		},
		Spectators:    []string{},
		Board:         domain.NewBoard(s.opts.Rows, s.opts.Cols),
		CurrentPlayer: 1,
		Status:        domain.StatusWaiting,
		MaxPlayers:    s.opts.MaxPlayers,
		WinningLength: winningLength,
		CreatedAt:     now,
		LastActivity:  now,
	}

	if err := s.persist(ctx, room); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ActiveRooms.Inc()
	}
	log.Printf("[ROOM] Created room %s (key %s) for host %s", room.ID, room.RoomKey, hostName)

	s.notify(room.ID, EventRoomUpdate, room)
	return room, nil
}

// allocateRoomKey draws short codes until one is unused. Collisions are
// rare with a 32^6 space, so a bounded retry loop is plenty.
func (s *Service) allocateRoomKey(ctx context.Context) (string, error) {
	for i := 0; i < maxRoomKeyAttempts; i++ {
		key := uid.GenerateRoomKey()
		_, err := s.store.GetRoomIDByKey(ctx, key)
		if errors.Is(err, domain.ErrRoomNotFound) {
			return key, nil
		}
		if err != nil {
			return "", fmt.Errorf("room key lookup failed: %w", err)
		}
	}
	return "", fmt.Errorf("could not allocate a unique room key after %d attempts", maxRoomKeyAttempts)
}

// GetRoom is a read-through lookup: cache first, then the durable
// store. Absence is an expected outcome (domain.ErrRoomNotFound), not a
// failure.
func (s *Service) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	lock := s.locks.acquire(id)
	defer s.locks.release(id, lock)

	return s.loadRoom(ctx, id)
}

// GetRoomByKey resolves the shareable code to an id, then delegates.
func (s *Service) GetRoomByKey(ctx context.Context, key string) (*domain.Room, error) {
	id, err := s.store.GetRoomIDByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.GetRoom(ctx, id)
}

// JoinRoomAsPlayer seats playerID at the next free seat. Rejoining is a
// no-op success; a full room rejects with ErrRoomFull. The second seat
// filling moves the room from waiting to playing.
func (s *Service) JoinRoomAsPlayer(ctx context.Context, id, playerID, playerName string) (*domain.Room, error) {
	lock := s.locks.acquire(id)
	defer s.locks.release(id, lock)

	room, err := s.loadRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, isPlayer := room.PlayerByID(playerID); isPlayer || room.HasSpectator(playerID) {
		return room, nil // idempotent rejoin
	}

	if len(room.Players) >= room.MaxPlayers {
		return nil, domain.ErrRoomFull
	}

	seat := room.NextFreeSeat()
	room.Players = append(room.Players, domain.Player{
		ID:           playerID,
		Name:         playerName,
		PlayerNumber: seat,
	})

	if len(room.Players) >= 2 && room.Status == domain.StatusWaiting {
		room.Status = domain.StatusPlaying
	}

	if err := s.persist(ctx, room); err != nil {
		return nil, err
	}

	log.Printf("[ROOM] %s joined room %s as player %d", playerName, room.ID, seat)
	s.notify(room.ID, EventRoomUpdate, room)
	return room, nil
}

// JoinRoomAsSpectator adds spectatorID to the spectator set. Players
// cannot double as spectators; for them this is a no-op success.
func (s *Service) JoinRoomAsSpectator(ctx context.Context, id, spectatorID string) (*domain.Room, error) {
	lock := s.locks.acquire(id)
	defer s.locks.release(id, lock)

	room, err := s.loadRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	if room.HasSpectator(spectatorID) {
		return room, nil
	}
	if _, isPlayer := room.PlayerByID(spectatorID); isPlayer {
		return room, nil
	}

	room.Spectators = append(room.Spectators, spectatorID)

	if err := s.persist(ctx, room); err != nil {
		return nil, err
	}

	s.notify(room.ID, EventRoomUpdate, room)
	return room, nil
}

// MakeMove validates and applies one move. All rejection branches leave
// persisted state untouched and emit nothing.
func (s *Service) MakeMove(ctx context.Context, id, playerID string, column int) (*MoveResult, error) {
	lock := s.locks.acquire(id)
	defer s.locks.release(id, lock)

	room, err := s.loadRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	if room.IsFinished() {
		s.countRejected()
		return nil, domain.ErrGameFinished
	}

	player, exists := room.PlayerByID(playerID)
	if !exists {
		s.countRejected()
		return nil, domain.ErrPlayerNotInRoom
	}

	if player.PlayerNumber != room.CurrentPlayer {
		s.countRejected()
		return nil, domain.ErrNotYourTurn
	}

	row, err := room.ApplyMove(player.PlayerNumber, column)
	if err != nil {
		s.countRejected()
		return nil, err
	}

	finishedAt := time.Now()
	if err := s.persist(ctx, room); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.MovesTotal.Inc()
	}

	result := &MoveResult{Room: room, Row: row, Column: column, Message: "Move made"}

	if room.IsFinished() {
		event := "draw"
		result.Message = "Draw!"
		if *room.Winner != domain.WinnerDraw {
			event = "win"
			result.Message = fmt.Sprintf("Player %d wins!", *room.Winner)
		}

		if s.metrics != nil {
			s.metrics.GamesFinished.WithLabelValues(event).Inc()
		}

		s.notify(room.ID, EventGameOver, map[string]any{
			"winner":     *room.Winner,
			"winnerName": winnerName(room),
		})
		s.archive(room, event, finishedAt)
	}

	s.notify(room.ID, EventRoomUpdate, room)
	return result, nil
}

// ResetGame empties the board and restarts play with the same roster.
func (s *Service) ResetGame(ctx context.Context, id string) (*domain.Room, error) {
	lock := s.locks.acquire(id)
	defer s.locks.release(id, lock)

	room, err := s.loadRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	room.Board = domain.NewBoard(room.Board.Rows(), room.Board.Cols())
	room.CurrentPlayer = 1
	room.Status = domain.StatusPlaying
	room.Winner = nil
	room.MoveCount = 0

	if err := s.persist(ctx, room); err != nil {
		return nil, err
	}

	log.Printf("[ROOM] Room %s reset", room.ID)
	s.notify(room.ID, EventRoomUpdate, room)
	return room, nil
}

// LeaveRoom removes a player or spectator. Remaining seats keep their
// numbers; if it was the leaver's turn the turn passes to the next
// occupied seat. The last player leaving deletes the room. Returns the
// updated room, or nil if the room was deleted.
func (s *Service) LeaveRoom(ctx context.Context, id, participantID string) (*domain.Room, error) {
	lock := s.locks.acquire(id)
	defer s.locks.release(id, lock)

	room, err := s.loadRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	if room.HasSpectator(participantID) {
		spectators := make([]string, 0, len(room.Spectators))
		for _, spec := range room.Spectators {
			if spec != participantID {
				spectators = append(spectators, spec)
			}
		}
		room.Spectators = spectators

		if err := s.persist(ctx, room); err != nil {
			return nil, err
		}
		s.notify(room.ID, EventRoomUpdate, room)
		return room, nil
	}

	leaver, exists := room.PlayerByID(participantID)
	if !exists {
		return nil, domain.ErrPlayerNotInRoom
	}

	players := make([]domain.Player, 0, len(room.Players))
	for _, p := range room.Players {
		if p.ID != participantID {
			players = append(players, p)
		}
	}
	room.Players = players

	if len(room.Players) == 0 {
		if err := s.deleteLocked(ctx, id); err != nil {
			return nil, err
		}
		log.Printf("[ROOM] Room %s deleted after last player left", id)
		return nil, nil
	}

	if room.CurrentPlayer == leaver.PlayerNumber && !room.IsFinished() {
		room.CurrentPlayer = room.NextTurn()
	}

	if err := s.persist(ctx, room); err != nil {
		return nil, err
	}

	log.Printf("[ROOM] Player %s left room %s", participantID, room.ID)
	s.notify(room.ID, EventPlayerLeft, map[string]any{"playerId": participantID})
	s.notify(room.ID, EventRoomUpdate, room)
	return room, nil
}

// DeleteRoom removes the room; reports whether one existed.
func (s *Service) DeleteRoom(ctx context.Context, id string) (bool, error) {
	lock := s.locks.acquire(id)
	defer s.locks.release(id, lock)

	existed, err := s.store.DeleteRoom(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete room %s: %w", id, err)
	}
	s.cache.Evict(id)

	if existed && s.metrics != nil {
		s.metrics.ActiveRooms.Dec()
	}
	return existed, nil
}

// ListRooms returns every live room, for the watch endpoint and the
// cleanup sweep.
func (s *Service) ListRooms(ctx context.Context) ([]*domain.Room, error) {
	return s.store.ListRooms(ctx)
}

// CleanupInactiveRooms sweeps out rooms idle past the configured
// timeout and returns how many were removed. Redis-backed stores expire
// records by TTL as well; the sweep keeps the memory backend honest and
// frees cache entries either way.
func (s *Service) CleanupInactiveRooms(ctx context.Context) (int, error) {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup listing failed: %w", err)
	}

	cutoff := time.Now().Add(-s.opts.InactivityTimeout)
	removed := 0
	for _, room := range rooms {
		if room.LastActivity.After(cutoff) {
			continue
		}
		existed, err := s.DeleteRoom(ctx, room.ID)
		if err != nil {
			log.Printf("[CLEANUP] Failed to remove stale room %s: %v", room.ID, err)
			continue
		}
		if existed {
			removed++
		}
	}

	if removed > 0 {
		log.Printf("[CLEANUP] Removed %d inactive rooms", removed)
	}
	return removed, nil
}

// loadRoom resolves the room cache-first. Caller must hold the room
// lock so a cache fill cannot race a mutation into staleness. The
// returned room is a private copy, safe to mutate and throw away.
func (s *Service) loadRoom(ctx context.Context, id string) (*domain.Room, error) {
	if room, hit := s.cache.Get(id); hit {
		return room, nil
	}

	room, err := s.store.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Set(room)
	return room, nil
}

// persist writes through to the store and only then refreshes the
// cache, so a failed durable write leaves both layers on the pre-move
// state.
func (s *Service) persist(ctx context.Context, room *domain.Room) error {
	room.LastActivity = time.Now()
	if err := s.store.SaveRoom(ctx, room); err != nil {
		return fmt.Errorf("failed to persist room %s: %w", room.ID, err)
	}
	s.cache.Set(room)
	return nil
}

func (s *Service) deleteLocked(ctx context.Context, id string) error {
	if _, err := s.store.DeleteRoom(ctx, id); err != nil {
		return fmt.Errorf("failed to delete room %s: %w", id, err)
	}
	s.cache.Evict(id)
	if s.metrics != nil {
		s.metrics.ActiveRooms.Dec()
	}
	return nil
}

func (s *Service) notify(roomID, event string, payload any) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.Notify(roomID, event, payload)
}

// archive hands the finished game to the sink in the background so slow
// storage never blocks the game-over broadcast.
func (s *Service) archive(room *domain.Room, event string, finishedAt time.Time) {
	if s.archiver == nil {
		return
	}

	rec := domain.GameRecord{
		RoomID:     room.ID,
		Event:      event,
		Winner:     *room.Winner,
		Players:    append([]domain.Player(nil), room.Players...),
		FinalBoard: room.Board.Copy(),
		MoveCount:  room.MoveCount,
		CreatedAt:  room.CreatedAt,
		FinishedAt: finishedAt,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.archiver.SaveResult(ctx, rec); err != nil {
			log.Printf("[ARCHIVE] Error saving game record for room %s: %v", rec.RoomID, err)
		}
	}()
}

func (s *Service) countRejected() {
	if s.metrics != nil {
		s.metrics.RejectedMoves.Inc()
	}
}

func winnerName(room *domain.Room) string {
	if room.Winner == nil || *room.Winner == domain.WinnerDraw {
		return ""
	}
	for _, p := range room.Players {
		if p.PlayerNumber == *room.Winner {
			return p.Name
		}
	}
	return ""
}
