package room

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dropfour/server/internal/cache"
	"github.com/dropfour/server/internal/domain"
	"github.com/dropfour/server/internal/repository"
	"github.com/dropfour/server/internal/repository/memory"
)

// mockBroadcaster records every Notify call for assertions.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

type recordedEvent struct {
	RoomID  string
	Event   string
	Payload any
}

func (m *mockBroadcaster) Notify(roomID, event string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, recordedEvent{RoomID: roomID, Event: event, Payload: payload})
}

func (m *mockBroadcaster) names(roomID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var names []string
	for _, e := range m.events {
		if e.RoomID == roomID {
			names = append(names, e.Event)
		}
	}
	return names
}

// mockArchiver delivers records on a channel so tests can wait for the
// async archive goroutine.
type mockArchiver struct {
	records chan domain.GameRecord
}

func newMockArchiver() *mockArchiver {
	return &mockArchiver{records: make(chan domain.GameRecord, 8)}
}

func (m *mockArchiver) SaveResult(_ context.Context, rec domain.GameRecord) error {
	m.records <- rec
	return nil
}

// failingStore lets tests flip the durable write path into an error
// state mid-game.
type failingStore struct {
	repository.RoomStore
	mu        sync.Mutex
	failWrite bool
}

func (f *failingStore) setFailWrite(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrite = fail
}

func (f *failingStore) SaveRoom(ctx context.Context, room *domain.Room) error {
	f.mu.Lock()
	fail := f.failWrite
	f.mu.Unlock()

	if fail {
		return errors.New("store unavailable")
	}
	return f.RoomStore.SaveRoom(ctx, room)
}

type testEnv struct {
	svc         *Service
	store       *failingStore
	broadcaster *mockBroadcaster
	archiver    *mockArchiver
}

func newTestEnv(opts Options) *testEnv {
	store := &failingStore{RoomStore: memory.NewStore(time.Hour)}
	broadcaster := &mockBroadcaster{}
	archiver := newMockArchiver()
	svc := NewService(store, cache.NewRoomCache(), broadcaster, archiver, nil, opts)
	return &testEnv{svc: svc, store: store, broadcaster: broadcaster, archiver: archiver}
}

func TestCreateRoom(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()

	room, err := env.svc.CreateRoom(ctx, "host-1", "Alice", 0)
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	if room.Status != domain.StatusWaiting {
		t.Errorf("new room status = %s, want waiting", room.Status)
	}
	if room.CurrentPlayer != 1 {
		t.Errorf("currentPlayer = %d, want 1", room.CurrentPlayer)
	}
	if room.Winner != nil {
		t.Errorf("winner should be nil on a fresh room")
	}
	if len(room.Players) != 1 || room.Players[0].PlayerNumber != 1 || room.Players[0].ID != "host-1" {
		t.Errorf("host not seated as player 1: %+v", room.Players)
	}
	if room.Board.Rows() != domain.DefaultRows || room.Board.Cols() != domain.DefaultColumns {
		t.Errorf("board is %dx%d, want defaults", room.Board.Rows(), room.Board.Cols())
	}
	if room.WinningLength != domain.DefaultWinningLength {
		t.Errorf("winningLength = %d, want default", room.WinningLength)
	}
	if len(room.RoomKey) == 0 {
		t.Error("room key not assigned")
	}
}

func TestGetRoom_NotFound(t *testing.T) {
	env := newTestEnv(Options{})

	if _, err := env.svc.GetRoom(context.Background(), "nope"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestGetRoomByKey(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()

	created, _ := env.svc.CreateRoom(ctx, "host-1", "Alice", 0)

	found, err := env.svc.GetRoomByKey(ctx, created.RoomKey)
	if err != nil {
		t.Fatalf("GetRoomByKey failed: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("resolved room %s, want %s", found.ID, created.ID)
	}

	if _, err := env.svc.GetRoomByKey(ctx, "ZZZZZZ"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("unknown key should give ErrRoomNotFound, got %v", err)
	}
}

func TestJoinRoomAsPlayer(t *testing.T) {
	env := newTestEnv(Options{MaxPlayers: 2})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "host-1", "Alice", 0)

	joined, err := env.svc.JoinRoomAsPlayer(ctx, room.ID, "p2", "Bob")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if joined.Status != domain.StatusPlaying {
		t.Errorf("second join should start the game, status = %s", joined.Status)
	}
	if joined.Players[1].PlayerNumber != 2 {
		t.Errorf("Bob seated as %d, want 2", joined.Players[1].PlayerNumber)
	}
	if joined.CurrentPlayer != 1 {
		t.Errorf("currentPlayer = %d after join, want 1", joined.CurrentPlayer)
	}

	if _, err := env.svc.JoinRoomAsPlayer(ctx, room.ID, "p3", "Carol"); !errors.Is(err, domain.ErrRoomFull) {
		t.Errorf("expected ErrRoomFull, got %v", err)
	}
}

func TestJoinRoomAsPlayer_Idempotent(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "host-1", "Alice", 0)
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "p2", "Bob")

	again, err := env.svc.JoinRoomAsPlayer(ctx, room.ID, "p2", "Bob")
	if err != nil {
		t.Fatalf("rejoin should succeed, got %v", err)
	}
	if len(again.Players) != 2 {
		t.Errorf("rejoin duplicated the player: %d seats", len(again.Players))
	}
	if again.Players[1].PlayerNumber != 2 {
		t.Errorf("rejoin changed playerNumber to %d", again.Players[1].PlayerNumber)
	}
}

func TestJoinRoomAsPlayer_ReusesVacatedSeat(t *testing.T) {
	env := newTestEnv(Options{MaxPlayers: 3})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "p1", "Alice", 0)
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "p2", "Bob")
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "p3", "Carol")

	// Bob vacates seat 2; the next joiner must take it rather than
	// colliding with Carol on seat 3.
	env.svc.LeaveRoom(ctx, room.ID, "p2")

	joined, err := env.svc.JoinRoomAsPlayer(ctx, room.ID, "p4", "Dave")
	if err != nil {
		t.Fatalf("join after leave failed: %v", err)
	}

	seats := make(map[int]string)
	for _, p := range joined.Players {
		if other, taken := seats[p.PlayerNumber]; taken {
			t.Fatalf("duplicate seat %d held by %s and %s; roster %+v", p.PlayerNumber, other, p.ID, joined.Players)
		}
		seats[p.PlayerNumber] = p.ID
	}
	if seats[2] != "p4" {
		t.Errorf("vacated seat 2 not reused, roster %+v", joined.Players)
	}

	// The reseated roster still rotates cleanly: 1 -> 2 -> 3 -> 1.
	for _, id := range []string{"p1", "p4", "p3"} {
		if _, err := env.svc.MakeMove(ctx, room.ID, id, 0); err != nil {
			t.Fatalf("move by %s failed: %v", id, err)
		}
	}
	after, _ := env.svc.GetRoom(ctx, room.ID)
	if after.CurrentPlayer != 1 {
		t.Errorf("currentPlayer = %d after a full cycle, want 1", after.CurrentPlayer)
	}
}

func TestJoinRoomAsSpectator(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "host-1", "Alice", 0)

	withSpec, err := env.svc.JoinRoomAsSpectator(ctx, room.ID, "watcher")
	if err != nil {
		t.Fatalf("spectate failed: %v", err)
	}
	if len(withSpec.Spectators) != 1 || withSpec.Spectators[0] != "watcher" {
		t.Errorf("spectator not recorded: %v", withSpec.Spectators)
	}
	if withSpec.Status != domain.StatusWaiting {
		t.Errorf("spectator join must not change status, got %s", withSpec.Status)
	}

	// Idempotent re-add.
	again, _ := env.svc.JoinRoomAsSpectator(ctx, room.ID, "watcher")
	if len(again.Spectators) != 1 {
		t.Errorf("spectator duplicated: %v", again.Spectators)
	}

	// A seated player never enters the spectator set.
	asSpec, _ := env.svc.JoinRoomAsSpectator(ctx, room.ID, "host-1")
	if len(asSpec.Spectators) != 1 {
		t.Errorf("player leaked into spectators: %v", asSpec.Spectators)
	}
}

func TestMakeMove_TurnRotation(t *testing.T) {
	env := newTestEnv(Options{MaxPlayers: 3})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "p1", "Alice", 0)
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "p2", "Bob")
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "p3", "Carol")

	ids := []string{"p1", "p2", "p3"}
	for i, playerID := range ids {
		before, _ := env.svc.GetRoom(ctx, room.ID)
		res, err := env.svc.MakeMove(ctx, room.ID, playerID, i)
		if err != nil {
			t.Fatalf("move %d by %s failed: %v", i, playerID, err)
		}
		want := (before.CurrentPlayer % 3) + 1
		if res.Room.CurrentPlayer != want {
			t.Errorf("after move %d currentPlayer = %d, want %d", i, res.Room.CurrentPlayer, want)
		}
	}

	// A full cycle of 3 legal moves brings the turn back to player 1.
	final, _ := env.svc.GetRoom(ctx, room.ID)
	if final.CurrentPlayer != 1 {
		t.Errorf("after full cycle currentPlayer = %d, want 1", final.CurrentPlayer)
	}
}

func TestMakeMove_Rejections(t *testing.T) {
	env := newTestEnv(Options{MaxPlayers: 2})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "p1", "Alice", 0)
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "p2", "Bob")

	if _, err := env.svc.MakeMove(ctx, "missing-room", "p1", 0); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := env.svc.MakeMove(ctx, room.ID, "stranger", 0); !errors.Is(err, domain.ErrPlayerNotInRoom) {
		t.Errorf("expected ErrPlayerNotInRoom, got %v", err)
	}
	if _, err := env.svc.MakeMove(ctx, room.ID, "p2", 0); !errors.Is(err, domain.ErrNotYourTurn) {
		t.Errorf("expected ErrNotYourTurn, got %v", err)
	}
	if _, err := env.svc.MakeMove(ctx, room.ID, "p1", -1); !errors.Is(err, domain.ErrInvalidMove) {
		t.Errorf("expected ErrInvalidMove for out-of-range column, got %v", err)
	}

	// Rejections must not advance the turn or touch the board.
	after, _ := env.svc.GetRoom(ctx, room.ID)
	if after.CurrentPlayer != 1 || after.MoveCount != 0 {
		t.Errorf("rejected moves mutated state: currentPlayer=%d moveCount=%d", after.CurrentPlayer, after.MoveCount)
	}
}

func TestMakeMove_ColumnFull(t *testing.T) {
	env := newTestEnv(Options{MaxPlayers: 2, Rows: 4, WinningLength: 100})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "p1", "Alice", 100)
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "p2", "Bob")

	// Alternate into column 0 until its 4 rows are taken.
	players := []string{"p1", "p2", "p1", "p2"}
	for i, id := range players {
		if _, err := env.svc.MakeMove(ctx, room.ID, id, 0); err != nil {
			t.Fatalf("fill move %d failed: %v", i, err)
		}
	}

	if _, err := env.svc.MakeMove(ctx, room.ID, "p1", 0); !errors.Is(err, domain.ErrColumnFull) {
		t.Fatalf("expected ErrColumnFull, got %v", err)
	}

	after, _ := env.svc.GetRoom(ctx, room.ID)
	if after.MoveCount != 4 {
		t.Errorf("rejected move changed moveCount to %d", after.MoveCount)
	}
	if after.CurrentPlayer != 1 {
		t.Errorf("rejected move advanced the turn to %d", after.CurrentPlayer)
	}
}

// Alice stacks column 3 while Bob plays elsewhere; Alice's fourth
// piece in the column wins vertically.
func TestMakeMove_VerticalWin(t *testing.T) {
	env := newTestEnv(Options{MaxPlayers: 2})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "alice", "Alice", 4)
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "bob", "Bob")

	var last *MoveResult
	for i := 0; i < 4; i++ {
		res, err := env.svc.MakeMove(ctx, room.ID, "alice", 3)
		if err != nil {
			t.Fatalf("Alice move %d failed: %v", i, err)
		}
		last = res

		if i < 3 {
			if _, err := env.svc.MakeMove(ctx, room.ID, "bob", i); err != nil {
				t.Fatalf("Bob move %d failed: %v", i, err)
			}
		}
	}

	final := last.Room
	if final.Status != domain.StatusFinished {
		t.Fatalf("status = %s, want finished", final.Status)
	}
	if final.Winner == nil || *final.Winner != 1 {
		t.Fatalf("winner = %v, want 1", final.Winner)
	}
	if last.Message != "Player 1 wins!" {
		t.Errorf("message = %q", last.Message)
	}

	// Finished rooms reject every further move until reset.
	if _, err := env.svc.MakeMove(ctx, room.ID, "bob", 0); !errors.Is(err, domain.ErrGameFinished) {
		t.Errorf("expected ErrGameFinished, got %v", err)
	}

	// game_over must have been broadcast.
	sawGameOver := false
	for _, name := range env.broadcaster.names(room.ID) {
		if name == EventGameOver {
			sawGameOver = true
		}
	}
	if !sawGameOver {
		t.Error("no game_over event broadcast")
	}

	// The archive record arrives asynchronously.
	select {
	case rec := <-env.archiver.records:
		if rec.Event != "win" || rec.Winner != 1 {
			t.Errorf("archive record = %+v", rec)
		}
		if rec.MoveCount != 7 {
			t.Errorf("archived moveCount = %d, want 7", rec.MoveCount)
		}
	case <-time.After(2 * time.Second):
		t.Error("archive record never arrived")
	}
}

func TestMakeMove_DrawPrecedence(t *testing.T) {
	// 1x2 grid with an unreachable winning length: the second move fills
	// the board without a line.
	env := newTestEnv(Options{MaxPlayers: 2, Rows: 1, Cols: 2})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "p1", "Alice", 4)
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "p2", "Bob")

	if _, err := env.svc.MakeMove(ctx, room.ID, "p1", 0); err != nil {
		t.Fatalf("first move failed: %v", err)
	}
	res, err := env.svc.MakeMove(ctx, room.ID, "p2", 1)
	if err != nil {
		t.Fatalf("second move failed: %v", err)
	}

	if res.Room.Status != domain.StatusFinished {
		t.Errorf("status = %s, want finished", res.Room.Status)
	}
	if res.Room.Winner == nil || *res.Room.Winner != domain.WinnerDraw {
		t.Errorf("winner = %v, want draw (0)", res.Room.Winner)
	}
	if res.Message != "Draw!" {
		t.Errorf("message = %q", res.Message)
	}

	select {
	case rec := <-env.archiver.records:
		if rec.Event != "draw" {
			t.Errorf("archive event = %q, want draw", rec.Event)
		}
	case <-time.After(2 * time.Second):
		t.Error("draw archive record never arrived")
	}
}

func TestResetGame(t *testing.T) {
	env := newTestEnv(Options{MaxPlayers: 2})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "alice", "Alice", 4)
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "bob", "Bob")
	env.svc.JoinRoomAsSpectator(ctx, room.ID, "watcher")

	// Play to a finish.
	for i := 0; i < 4; i++ {
		env.svc.MakeMove(ctx, room.ID, "alice", 3)
		if i < 3 {
			env.svc.MakeMove(ctx, room.ID, "bob", i)
		}
	}

	reset, err := env.svc.ResetGame(ctx, room.ID)
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if reset.Status != domain.StatusPlaying {
		t.Errorf("status = %s, want playing", reset.Status)
	}
	if reset.Winner != nil {
		t.Errorf("winner not cleared: %v", *reset.Winner)
	}
	if reset.CurrentPlayer != 1 {
		t.Errorf("currentPlayer = %d, want 1", reset.CurrentPlayer)
	}
	if reset.MoveCount != 0 {
		t.Errorf("moveCount = %d, want 0", reset.MoveCount)
	}
	if len(reset.Players) != 2 || len(reset.Spectators) != 1 {
		t.Errorf("reset touched the roster: %d players, %d spectators", len(reset.Players), len(reset.Spectators))
	}
	for r := 0; r < reset.Board.Rows(); r++ {
		for c := 0; c < reset.Board.Cols(); c++ {
			if reset.Board[r][c] != domain.Empty {
				t.Fatalf("board not emptied at (%d,%d)", r, c)
			}
		}
	}

	if _, err := env.svc.ResetGame(ctx, "missing"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("reset of missing room: got %v", err)
	}
}

func TestLeaveRoom(t *testing.T) {
	env := newTestEnv(Options{MaxPlayers: 3})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "p1", "Alice", 0)
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "p2", "Bob")
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "p3", "Carol")

	// It is player 1's turn; when they leave, the turn passes on and
	// the remaining seats keep their numbers.
	after, err := env.svc.LeaveRoom(ctx, room.ID, "p1")
	if err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if len(after.Players) != 2 {
		t.Fatalf("seat count = %d, want 2", len(after.Players))
	}
	if after.Players[0].PlayerNumber != 2 || after.Players[1].PlayerNumber != 3 {
		t.Errorf("remaining seats renumbered: %+v", after.Players)
	}
	if after.CurrentPlayer != 2 {
		t.Errorf("turn after leave = %d, want 2", after.CurrentPlayer)
	}

	// Seat 3 can still move, and rotation wraps over the gap.
	env.svc.MakeMove(ctx, room.ID, "p2", 0)
	res, err := env.svc.MakeMove(ctx, room.ID, "p3", 1)
	if err != nil {
		t.Fatalf("move by remaining seat failed: %v", err)
	}
	if res.Room.CurrentPlayer != 2 {
		t.Errorf("rotation over the vacated seat gave %d, want 2", res.Room.CurrentPlayer)
	}

	// Last players out delete the room.
	env.svc.LeaveRoom(ctx, room.ID, "p2")
	gone, err := env.svc.LeaveRoom(ctx, room.ID, "p3")
	if err != nil {
		t.Fatalf("final leave failed: %v", err)
	}
	if gone != nil {
		t.Error("expected nil room after last player left")
	}
	if _, err := env.svc.GetRoom(ctx, room.ID); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("room should be deleted, got %v", err)
	}
}

func TestLeaveRoom_Spectator(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "p1", "Alice", 0)
	env.svc.JoinRoomAsSpectator(ctx, room.ID, "watcher")

	after, err := env.svc.LeaveRoom(ctx, room.ID, "watcher")
	if err != nil {
		t.Fatalf("spectator leave failed: %v", err)
	}
	if len(after.Spectators) != 0 {
		t.Errorf("spectator still present: %v", after.Spectators)
	}
	if len(after.Players) != 1 {
		t.Errorf("spectator leave touched players: %v", after.Players)
	}
}

func TestDeleteRoom(t *testing.T) {
	env := newTestEnv(Options{})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "p1", "Alice", 0)

	existed, err := env.svc.DeleteRoom(ctx, room.ID)
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}

	existed, err = env.svc.DeleteRoom(ctx, room.ID)
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}

func TestPersistenceFailure_RollsBack(t *testing.T) {
	env := newTestEnv(Options{MaxPlayers: 2})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "p1", "Alice", 0)
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "p2", "Bob")

	env.store.setFailWrite(true)
	if _, err := env.svc.MakeMove(ctx, room.ID, "p1", 0); err == nil {
		t.Fatal("move should fail when the store is down")
	}
	env.store.setFailWrite(false)

	// Neither the cache nor the store may have seen the half-applied
	// move: the same player is still on turn with an empty board.
	after, err := env.svc.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("room lost after failed write: %v", err)
	}
	if after.MoveCount != 0 || after.CurrentPlayer != 1 {
		t.Errorf("partial state leaked: moveCount=%d currentPlayer=%d", after.MoveCount, after.CurrentPlayer)
	}

	// And the rejected turn can be replayed once the store is back.
	if _, err := env.svc.MakeMove(ctx, room.ID, "p1", 0); err != nil {
		t.Errorf("replay after recovery failed: %v", err)
	}
}

func TestConcurrentMoves_SingleWinner(t *testing.T) {
	env := newTestEnv(Options{MaxPlayers: 2})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "p1", "Alice", 0)
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "p2", "Bob")

	// Two copies of the same move race; linearization must let exactly
	// one through and reject the other as out of turn.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.MakeMove(ctx, room.ID, "p1", 3)
		}(i)
	}
	wg.Wait()

	successes, rejections := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrNotYourTurn):
			rejections++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || rejections != 1 {
		t.Fatalf("got %d successes and %d rejections, want exactly 1 and 1", successes, rejections)
	}

	after, _ := env.svc.GetRoom(ctx, room.ID)
	pieces := 0
	for r := 0; r < after.Board.Rows(); r++ {
		for c := 0; c < after.Board.Cols(); c++ {
			if after.Board[r][c] != domain.Empty {
				pieces++
			}
		}
	}
	if pieces != 1 {
		t.Errorf("%d pieces on the board after one accepted move", pieces)
	}
}

func TestConcurrentMoves_NoLostUpdates(t *testing.T) {
	// An unreachable winning length keeps the game open until the board
	// fills; both players hammer moves in parallel. Every accepted move
	// must correspond to exactly one piece on the final board.
	env := newTestEnv(Options{MaxPlayers: 2, Rows: 4, Cols: 4})
	ctx := context.Background()

	room, _ := env.svc.CreateRoom(ctx, "p1", "Alice", 99)
	env.svc.JoinRoomAsPlayer(ctx, room.ID, "p2", "Bob")

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0

	for _, playerID := range []string{"p1", "p2"} {
		wg.Add(1)
		go func(playerID string) {
			defer wg.Done()
			for attempt := 0; attempt < 200; attempt++ {
				_, err := env.svc.MakeMove(ctx, room.ID, playerID, attempt%4)
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				} else if errors.Is(err, domain.ErrGameFinished) {
					return
				}
			}
		}(playerID)
	}
	wg.Wait()

	after, err := env.svc.GetRoom(ctx, room.ID)
	if err != nil {
		t.Fatalf("room vanished: %v", err)
	}

	pieces := 0
	for r := 0; r < after.Board.Rows(); r++ {
		for c := 0; c < after.Board.Cols(); c++ {
			if after.Board[r][c] != domain.Empty {
				pieces++
			}
		}
	}
	if pieces != accepted {
		t.Errorf("%d accepted moves but %d pieces on the board", accepted, pieces)
	}
	if after.MoveCount != accepted {
		t.Errorf("moveCount = %d, want %d", after.MoveCount, accepted)
	}
}

func TestCleanupInactiveRooms(t *testing.T) {
	env := newTestEnv(Options{InactivityTimeout: 50 * time.Millisecond})
	ctx := context.Background()

	stale, _ := env.svc.CreateRoom(ctx, "p1", "Alice", 0)
	time.Sleep(80 * time.Millisecond)
	fresh, _ := env.svc.CreateRoom(ctx, "p2", "Bob", 0)

	removed, err := env.svc.CleanupInactiveRooms(ctx)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	if _, err := env.svc.GetRoom(ctx, stale.ID); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Errorf("stale room survived cleanup: %v", err)
	}
	if _, err := env.svc.GetRoom(ctx, fresh.ID); err != nil {
		t.Errorf("fresh room was swept: %v", err)
	}
}
