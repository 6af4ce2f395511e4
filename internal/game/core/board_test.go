package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoard(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{"minimum board", 1},
		{"small board", 3},
		{"large board", 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := NewBoard(tt.n)

			assert.Equal(t, tt.n, board.N)
			assert.Len(t, board.Cells, tt.n*tt.n)
			assert.Equal(t, 0, board.MineCount())
			for i, c := range board.Cells {
				assert.Equal(t, Cell(0), c, "cell %d should start at zero", i)
			}
		})
	}
}

func TestBoard_IdxRowCol(t *testing.T) {
	board := NewBoard(3)

	tests := []struct {
		row, col int
		idx      int
	}{
		{0, 0, 0},
		{0, 2, 2},
		{1, 0, 3},
		{1, 1, 4},
		{2, 2, 8},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.idx, board.Idx(tt.row, tt.col), "Idx(%d,%d)", tt.row, tt.col)
		row, col := board.RowCol(tt.idx)
		assert.Equal(t, tt.row, row, "row for idx %d", tt.idx)
		assert.Equal(t, tt.col, col, "col for idx %d", tt.idx)
	}
}

func TestBoard_InBounds(t *testing.T) {
	board := NewBoard(3)

	tests := []struct {
		name     string
		row, col int
		expected bool
	}{
		{"top-left corner", 0, 0, true},
		{"bottom-right corner", 2, 2, true},
		{"negative row", -1, 0, false},
		{"negative col", 0, -1, false},
		{"row too large", 3, 0, false},
		{"col too large", 0, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, board.InBounds(tt.row, tt.col))
		})
	}
}

func TestBoard_PaintCounts(t *testing.T) {
	t.Run("corner mine", func(t *testing.T) {
		board := NewBoard(3)
		board.Cells[0] = CellMine
		board.PaintCounts()

		expected := []Cell{
			CellMine, 1, 0,
			1, 1, 0,
			0, 0, 0,
		}
		assert.Equal(t, expected, board.Cells)
	})

	t.Run("center mine touches all", func(t *testing.T) {
		board := NewBoard(3)
		board.Cells[4] = CellMine
		board.PaintCounts()

		for i, c := range board.Cells {
			if i == 4 {
				assert.True(t, c.IsMine())
				continue
			}
			assert.Equal(t, Cell(1), c, "cell %d", i)
		}
	})

	t.Run("surrounded cell counts eight", func(t *testing.T) {
		board := NewBoard(3)
		for i := range board.Cells {
			if i != 4 {
				board.Cells[i] = CellMine
			}
		}
		board.PaintCounts()
		assert.Equal(t, Cell(MaxCount), board.Cells[4])
	})

	t.Run("repainting is stable", func(t *testing.T) {
		board := NewBoard(4)
		board.Cells[5] = CellMine
		board.Cells[15] = CellMine
		board.PaintCounts()
		first := board.Clone()
		board.PaintCounts()
		assert.Equal(t, first.Cells, board.Cells)
	})
}

func TestBoard_MineIndices(t *testing.T) {
	board := NewBoard(3)
	board.Cells[7] = CellMine
	board.Cells[2] = CellMine

	assert.Equal(t, []int{2, 7}, board.MineIndices())
	assert.Equal(t, 2, board.MineCount())
}

func TestBoard_Clone(t *testing.T) {
	board := NewBoard(2)
	board.Cells[1] = CellMine

	clone := board.Clone()
	require.Equal(t, board.Cells, clone.Cells)

	clone.Cells[0] = CellMine
	assert.False(t, board.Cells[0].IsMine(), "mutating clone must not touch original")
}

func TestCoverMask(t *testing.T) {
	mask := NewCoverMask(3)
	require.Len(t, mask, 9)
	assert.Equal(t, 9, mask.CoveredCount())

	mask[4] = false
	assert.False(t, mask.Covered(4))
	assert.True(t, mask.Covered(0))
	assert.Equal(t, 8, mask.CoveredCount())

	clone := mask.Clone()
	clone[0] = false
	assert.True(t, mask.Covered(0))
}

func TestValidateAction(t *testing.T) {
	tests := []struct {
		name    string
		action  int
		n       int
		wantErr bool
	}{
		{"first cell", 0, 3, false},
		{"last cell", 8, 3, false},
		{"negative", -1, 3, true},
		{"one past end", 9, 3, true},
		{"far out", 100, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAction(tt.action, tt.n)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAction)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestActionCoordinate(t *testing.T) {
	assert.Equal(t, Coordinate{Row: 0, Col: 0}, ActionCoordinate(0, 3))
	assert.Equal(t, Coordinate{Row: 1, Col: 2}, ActionCoordinate(5, 3))
	assert.Equal(t, Coordinate{Row: 2, Col: 2}, ActionCoordinate(8, 3))
}
