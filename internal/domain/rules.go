package domain

// winAxes are the four line orientations a drop can complete. Each axis
// is walked outward in both directions from the placed cell.
var winAxes = [4][2]int{
	{0, 1},  // horizontal
	{1, 0},  // vertical
	{1, 1},  // diagonal \
	{1, -1}, // diagonal /
}

// CheckWin reports whether the piece just placed at (row, column)
// completes a run of at least winningLength for player. Only runs
// through the placed cell count; a pre-existing line elsewhere on the
// board never triggers here.
func CheckWin(board Board, row, column int, player Cell, winningLength int) bool {
	for _, axis := range winAxes {
		count := 1 // the placed cell itself
		count += board.countInDirection(row, column, axis[0], axis[1], player)
		count += board.countInDirection(row, column, -axis[0], -axis[1], player)
		if count >= winningLength {
			return true
		}
	}
	return false
}
