package domain

import "time"

// Player is one seat in a room. PlayerNumber is the 1-based seat index
// assigned in join order; ID is the caller-supplied stable identity.
type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PlayerNumber int    `json:"playerNumber"`
}

// Room is the aggregate root for one game: board, roster, and turn
// state. It is a plain value: all mutation ordering lives in the room
// service, and persistence stores it as JSON.
type Room struct {
	ID            string     `json:"id"`
	RoomKey       string     `json:"roomKey"`
	Host          string     `json:"host"`
	Players       []Player   `json:"players"`
	Spectators    []string   `json:"spectators"`
	Board         Board      `json:"board"`
	CurrentPlayer int        `json:"currentPlayer"`
	Status        RoomStatus `json:"status"`
	Winner        *int       `json:"winner"`
	MaxPlayers    int        `json:"maxPlayers"`
	WinningLength int        `json:"winningLength"`
	MoveCount     int        `json:"moveCount"`
	CreatedAt     time.Time  `json:"createdAt"`
	LastActivity  time.Time  `json:"lastActivity"`
}

// PlayerByID returns the seat for the given identity, if any.
func (r *Room) PlayerByID(playerID string) (Player, bool) {
	for _, p := range r.Players {
		if p.ID == playerID {
			return p, true
		}
	}
	return Player{}, false
}

func (r *Room) HasSpectator(spectatorID string) bool {
	for _, s := range r.Spectators {
		if s == spectatorID {
			return true
		}
	}
	return false
}

func (r *Room) IsFinished() bool {
	return r.Status == StatusFinished
}

// ApplyMove drops a piece for the given seat and resolves the outcome:
// win, draw, or turn advancement. Turn and membership checks are the
// caller's job; this only owns the board transition.
func (r *Room) ApplyMove(playerNumber, column int) (int, error) {
	row, err := r.Board.DropPiece(column, Cell(playerNumber))
	if err != nil {
		return -1, err
	}

	r.MoveCount++

	if CheckWin(r.Board, row, column, Cell(playerNumber), r.WinningLength) {
		winner := playerNumber
		r.Winner = &winner
		r.Status = StatusFinished
		return row, nil
	}

	if r.Board.IsFull() {
		draw := WinnerDraw
		r.Winner = &draw
		r.Status = StatusFinished
		return row, nil
	}

	r.CurrentPlayer = r.NextTurn()
	return row, nil
}

// NextTurn picks the next occupied seat in ascending cyclic order. For a
// gapless roster of k players this is (current mod k) + 1; after a
// leave, seats keep their numbers and vacated ones are skipped.
func (r *Room) NextTurn() int {
	if len(r.Players) == 0 {
		return r.CurrentPlayer
	}

	next := 0
	lowest := 0
	for _, p := range r.Players {
		if lowest == 0 || p.PlayerNumber < lowest {
			lowest = p.PlayerNumber
		}
		if p.PlayerNumber > r.CurrentPlayer && (next == 0 || p.PlayerNumber < next) {
			next = p.PlayerNumber
		}
	}
	if next == 0 {
		return lowest // wrap around
	}
	return next
}

// NextFreeSeat returns the lowest seat number not currently occupied.
// Seats vacated by a leave are reused before the roster grows, so no
// two players ever share a number.
func (r *Room) NextFreeSeat() int {
	taken := make(map[int]bool, len(r.Players))
	for _, p := range r.Players {
		taken[p.PlayerNumber] = true
	}
	seat := 1
	for taken[seat] {
		seat++
	}
	return seat
}

// Clone creates a deep copy so a mutation can be discarded if the
// durable write fails.
func (r *Room) Clone() *Room {
	clone := *r
	clone.Board = r.Board.Copy()
	clone.Players = append([]Player(nil), r.Players...)
	clone.Spectators = append([]string(nil), r.Spectators...)
	if r.Winner != nil {
		w := *r.Winner
		clone.Winner = &w
	}
	return &clone
}
