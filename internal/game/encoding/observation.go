package encoding

import (
	"strconv"
	"strings"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
)

// Symbol is what the agent sees in one cell. It doubles as the digit value
// in the positional encoding: 0 covered, 1 mine, 2+k a revealed count k.
type Symbol int8

const (
	SymbolCovered Symbol = 0
	SymbolMine    Symbol = 1
	countOffset          = 2
)

// CountSymbol returns the symbol of an uncovered cell with k adjacent mines
func CountSymbol(k int) Symbol {
	return Symbol(countOffset + k)
}

// Count returns the neighbor count shown by s, or false for covered/mine
func (s Symbol) Count() (int, bool) {
	if s < countOffset {
		return 0, false
	}
	return int(s) - countOffset, true
}

// legacyValue maps a symbol to the cell value used by persisted mapping keys:
// -2 covered, -1 mine, 0..8 count.
func (s Symbol) legacyValue() int {
	switch s {
	case SymbolCovered:
		return -2
	case SymbolMine:
		return -1
	default:
		return int(s) - countOffset
	}
}

// Observation is the row-major sequence of symbols visible on a board
type Observation []Symbol

// Observe renders the visible part of board under covers
func Observe(board *core.Board, covers core.CoverMask) Observation {
	obs := make(Observation, board.Len())
	for i, cell := range board.Cells {
		switch {
		case covers.Covered(i):
			obs[i] = SymbolCovered
		case cell.IsMine():
			obs[i] = SymbolMine
		default:
			obs[i] = CountSymbol(int(cell))
		}
	}
	return obs
}

// Equal reports whether both observations show the same symbol in every cell
func (o Observation) Equal(other Observation) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

// CoveredCount returns the number of covered cells in the observation
func (o Observation) CoveredCount() int {
	count := 0
	for _, s := range o {
		if s == SymbolCovered {
			count++
		}
	}
	return count
}

// LegacyKey renders the observation as the comma-separated cell values used
// by persisted mapping files.
func (o Observation) LegacyKey() string {
	var sb strings.Builder
	for i, s := range o {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(s.legacyValue()))
	}
	return sb.String()
}
