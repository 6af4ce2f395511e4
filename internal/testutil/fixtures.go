package testutil

import (
	"testing"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/mapgen"
	"github.com/stretchr/testify/require"
)

// CreateTestBoard builds an n×n board with mines at the given row-major indices
func CreateTestBoard(t *testing.T, n int, mines ...int) *core.Board {
	t.Helper()
	board, err := mapgen.BoardFromMines(n, mines)
	require.NoError(t, err)
	return board
}

// CornerMineBoard is the 3×3 board with its single mine at (0,0):
//
//	*1.
//	11.
//	...
func CornerMineBoard(t *testing.T) *core.Board {
	t.Helper()
	return CreateTestBoard(t, 3, 0)
}

// SafeActions returns every action on board that does not hit a mine, in
// ascending order.
func SafeActions(board *core.Board) []int {
	safe := make([]int, 0, board.Len())
	for i, c := range board.Cells {
		if !c.IsMine() {
			safe = append(safe, i)
		}
	}
	return safe
}
