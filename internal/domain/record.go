package domain

import "time"

// GameRecord is the archival entry written when a game finishes.
type GameRecord struct {
	RoomID     string    `json:"roomId"`
	Event      string    `json:"event"` // "win" or "draw"
	Winner     int       `json:"winner"`
	Players    []Player  `json:"players"`
	FinalBoard Board     `json:"finalBoard"`
	MoveCount  int       `json:"moveCount"`
	CreatedAt  time.Time `json:"createdAt"`
	FinishedAt time.Time `json:"finishedAt"`
}
