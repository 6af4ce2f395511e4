package core

// Cell is the hidden value of a single square.
// CellMine marks a mine; 0..8 is the number of mines in the clipped
// 8-neighborhood.
type Cell int8

const (
	CellMine Cell = -1
	MaxCount      = 8
)

func (c Cell) IsMine() bool { return c == CellMine }

// Board is an n×n grid of cells. Cells are stored row-major.
type Board struct {
	N     int
	Cells []Cell // length = N*N
}

// NewBoard creates an empty (mine-free, all zero) n×n board
func NewBoard(n int) *Board {
	return &Board{N: n, Cells: make([]Cell, n*n)}
}

func (b *Board) Idx(row, col int) int      { return row*b.N + col }
func (b *Board) RowCol(idx int) (int, int) { return idx / b.N, idx % b.N }
func (b *Board) Len() int                  { return len(b.Cells) }

// InBounds checks if coordinates are within board boundaries
func (b *Board) InBounds(row, col int) bool {
	return row >= 0 && row < b.N && col >= 0 && col < b.N
}

// MineCount returns the number of mine cells on the board
func (b *Board) MineCount() int {
	count := 0
	for _, c := range b.Cells {
		if c.IsMine() {
			count++
		}
	}
	return count
}

// MineIndices returns the row-major indices of all mines in ascending order
func (b *Board) MineIndices() []int {
	mines := make([]int, 0, b.MineCount())
	for i, c := range b.Cells {
		if c.IsMine() {
			mines = append(mines, i)
		}
	}
	return mines
}

// PaintCounts recomputes the neighbor count of every non-mine cell.
func (b *Board) PaintCounts() {
	for idx, c := range b.Cells {
		if c.IsMine() {
			continue
		}
		count := 0
		for _, n := range FromIndex(idx, b.N).ValidNeighbors(b.N) {
			if b.Cells[n.ToIndex(b.N)].IsMine() {
				count++
			}
		}
		b.Cells[idx] = Cell(count)
	}
}

// Clone returns a deep copy of the board
func (b *Board) Clone() *Board {
	cells := make([]Cell, len(b.Cells))
	copy(cells, b.Cells)
	return &Board{N: b.N, Cells: cells}
}

// CoverMask marks hidden cells with true. Row-major, same layout as Board.
type CoverMask []bool

// NewCoverMask returns a mask with every one of the n×n cells covered
func NewCoverMask(n int) CoverMask {
	mask := make(CoverMask, n*n)
	for i := range mask {
		mask[i] = true
	}
	return mask
}

func (m CoverMask) Covered(idx int) bool { return m[idx] }

// CoveredCount returns the number of cells still hidden
func (m CoverMask) CoveredCount() int {
	count := 0
	for _, covered := range m {
		if covered {
			count++
		}
	}
	return count
}

// Clone returns a copy of the mask
func (m CoverMask) Clone() CoverMask {
	out := make(CoverMask, len(m))
	copy(out, m)
	return out
}
