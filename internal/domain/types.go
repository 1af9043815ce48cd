package domain

// Cell holds either Empty or the playerNumber (1..maxPlayers) that placed it.
type Cell int

const Empty Cell = 0

// Defaults for room creation. Each room freezes its own geometry at
// creation, so these only seed the config layer.
const (
	DefaultRows          = 6
	DefaultColumns       = 7
	DefaultWinningLength = 4
	DefaultMaxPlayers    = 3
)

// to represent the room status
type RoomStatus string

const (
	StatusWaiting  RoomStatus = "waiting"
	StatusPlaying  RoomStatus = "playing"
	StatusFinished RoomStatus = "finished"
)

// WinnerDraw is stored in Room.Winner when the board fills with no line.
const WinnerDraw = 0

// basic error that can occur
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrRoomNotFound    Error = "room not found"
	ErrRoomFull        Error = "room is full"
	ErrPlayerNotInRoom Error = "player not in this room"
	ErrNotYourTurn     Error = "not your turn"
	ErrInvalidMove     Error = "invalid move"
	ErrColumnFull      Error = "column is full"
	ErrGameFinished    Error = "game already finished"
)
