package encoding

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
)

// StateIndexer maps an observation to a Q-table row
type StateIndexer interface {
	Index(obs Observation) (int, error)
	NumStates() int
}

// Encoder is a closed-form bijection between observations of an n×n board
// and integers in [0, NumStates). Each cell is one digit in base
// 3+maxTile; cell i carries weight base^i.
type Encoder struct {
	size      int
	cells     int
	maxTile   int
	base      int
	numStates int
}

var _ StateIndexer = (*Encoder)(nil)

// MaxTile returns the largest count that can appear with the given number of mines
func MaxTile(mines int) int {
	return min(mines, core.MaxCount)
}

// NewEncoder creates an encoder for size×size boards holding mines mines.
// It fails with core.ErrInvalidConfiguration when the state space does not
// fit in an int.
func NewEncoder(size, mines int) (*Encoder, error) {
	if size < 1 || mines < 0 || mines >= size*size {
		return nil, fmt.Errorf("%w: encoder for %dx%d board with %d mines",
			core.ErrInvalidConfiguration, size, size, mines)
	}

	maxTile := MaxTile(mines)
	base := 3 + maxTile
	cells := size * size

	numStates, ok := pow(base, cells)
	if !ok {
		return nil, fmt.Errorf("%w: %d^%d states overflow int",
			core.ErrInvalidConfiguration, base, cells)
	}

	return &Encoder{
		size:      size,
		cells:     cells,
		maxTile:   maxTile,
		base:      base,
		numStates: numStates,
	}, nil
}

func (e *Encoder) Size() int      { return e.size }
func (e *Encoder) Cells() int     { return e.cells }
func (e *Encoder) MaxTile() int   { return e.maxTile }
func (e *Encoder) Base() int      { return e.base }
func (e *Encoder) NumStates() int { return e.numStates }

// Encode returns the positional value of obs
func (e *Encoder) Encode(obs Observation) (int, error) {
	if len(obs) != e.cells {
		return 0, fmt.Errorf("%w: observation has %d cells, want %d", core.ErrInvalidState, len(obs), e.cells)
	}

	index := 0
	weight := 1
	for i, s := range obs {
		if s < 0 || int(s) >= e.base {
			return 0, fmt.Errorf("%w: cell %d symbol %d outside alphabet of %d",
				core.ErrInvalidState, i, s, e.base)
		}
		index += int(s) * weight
		weight *= e.base
	}
	return index, nil
}

// Index implements StateIndexer
func (e *Encoder) Index(obs Observation) (int, error) {
	return e.Encode(obs)
}

// EncodeBoard encodes the visible part of board directly. Counts on a board
// generated with the encoder's mine count never exceed maxTile, so no
// validation is needed.
func (e *Encoder) EncodeBoard(board *core.Board, covers core.CoverMask) int {
	index := 0
	weight := 1
	for i, cell := range board.Cells {
		var digit int
		switch {
		case covers.Covered(i):
			digit = int(SymbolCovered)
		case cell.IsMine():
			digit = int(SymbolMine)
		default:
			digit = countOffset + int(cell)
		}
		index += digit * weight
		weight *= e.base
	}
	return index
}

// Decode is the inverse of Encode
func (e *Encoder) Decode(index int) (Observation, error) {
	if index < 0 || index >= e.numStates {
		return nil, fmt.Errorf("%w: state index %d outside [0, %d)", core.ErrInvalidState, index, e.numStates)
	}

	obs := make(Observation, e.cells)
	for i := range obs {
		obs[i] = Symbol(index % e.base)
		index /= e.base
	}
	return obs, nil
}

// pow returns base^exp and false if the result exceeds math.MaxInt
func pow(base, exp int) (int, bool) {
	result := uint64(1)
	for i := 0; i < exp; i++ {
		hi, lo := bits.Mul64(result, uint64(base))
		if hi != 0 || lo > math.MaxInt {
			return 0, false
		}
		result = lo
	}
	return int(result), true
}
