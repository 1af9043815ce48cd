package domain

// Board is a rows x cols grid. Row 0 is the top; gravity pulls pieces
// toward the highest-index empty row of a column.
type Board [][]Cell

func NewBoard(rows, cols int) Board {
	board := make(Board, rows)
	for i := range board {
		board[i] = make([]Cell, cols)
	}
	return board
}

func (b Board) Rows() int {
	return len(b)
}

func (b Board) Cols() int {
	if len(b) == 0 {
		return 0
	}
	return len(b[0])
}

// DropPiece places player into the lowest empty cell of column, mutating
// the board in place, and returns the row it landed in. Out-of-range
// columns and full columns are ordinary rejections, not failures.
func (b Board) DropPiece(column int, player Cell) (int, error) {
	if column < 0 || column >= b.Cols() {
		return -1, ErrInvalidMove
	}

	// shifting the disk from top to bottom till it
	// reaches the end or another disk
	for row := b.Rows() - 1; row >= 0; row-- {
		if b[row][column] == Empty {
			b[row][column] = player
			return row, nil
		}
	}

	return -1, ErrColumnFull
}

// IsFull reports whether no more moves are possible. With gravity a
// column is full exactly when its top cell is taken, so checking row 0
// covers the whole board.
func (b Board) IsFull() bool {
	for c := 0; c < b.Cols(); c++ {
		if b[0][c] == Empty {
			return false
		}
	}
	return true
}

// Copy creates a deep copy of the board
func (b Board) Copy() Board {
	newBoard := make(Board, len(b))
	for i := range b {
		newBoard[i] = make([]Cell, len(b[i]))
		copy(newBoard[i], b[i])
	}
	return newBoard
}

// countInDirection counts contiguous cells owned by player starting one
// step away from (row, col) along (deltaRow, deltaCol).
func (b Board) countInDirection(row, col, deltaRow, deltaCol int, player Cell) int {
	count := 0
	r, c := row+deltaRow, col+deltaCol
	for r >= 0 && r < b.Rows() && c >= 0 && c < b.Cols() && b[r][c] == player {
		count++
		r += deltaRow
		c += deltaCol
	}
	return count
}
