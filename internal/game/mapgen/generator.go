package mapgen

import (
	"fmt"
	"math/rand"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
)

// MapConfig holds configuration for board generation
type MapConfig struct {
	Size  int // side length n
	Mines int // mine count m, 0 <= m < n*n
}

// DefaultMapConfig returns the smallest board the original experiments used
func DefaultMapConfig() MapConfig {
	return MapConfig{Size: 3, Mines: 1}
}

// Validate checks the mine count against the board area
func (c MapConfig) Validate() error {
	if c.Size < 1 {
		return fmt.Errorf("%w: board size must be at least 1, got %d", core.ErrInvalidConfiguration, c.Size)
	}
	if c.Mines < 0 || c.Mines >= c.Size*c.Size {
		return fmt.Errorf("%w: mines must be in [0, %d), got %d",
			core.ErrInvalidConfiguration, c.Size*c.Size, c.Mines)
	}
	return nil
}

// Generator handles board generation with deterministic RNG
type Generator struct {
	config MapConfig
	rng    *rand.Rand
}

// NewGenerator creates a new board generator
func NewGenerator(config MapConfig, rng *rand.Rand) *Generator {
	return &Generator{
		config: config,
		rng:    rng,
	}
}

// GenerateBoard creates a new board with exactly config.Mines mines placed
// uniformly without repetition and neighbor counts painted on the rest.
func (g *Generator) GenerateBoard() (*core.Board, error) {
	if err := g.config.Validate(); err != nil {
		return nil, err
	}
	board := core.NewBoard(g.config.Size)

	g.placeMines(board)
	board.PaintCounts()

	return board, nil
}

func (g *Generator) placeMines(b *core.Board) {
	candidates := make([]int, b.Len())
	for i := range candidates {
		candidates[i] = i
	}

	// Pick m off the candidate list, swapping each pick out of range.
	k := len(candidates)
	for placed := 0; placed < g.config.Mines; placed++ {
		i := g.rng.Intn(k)
		b.Cells[candidates[i]] = core.CellMine
		k--
		candidates[i] = candidates[k]
	}
}

// BoardFromMines builds a painted n×n board with mines at the given
// row-major indices. Duplicate or out-of-range indices are rejected.
func BoardFromMines(n int, mines []int) (*core.Board, error) {
	cfg := MapConfig{Size: n, Mines: len(mines)}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	board := core.NewBoard(n)
	for _, idx := range mines {
		if idx < 0 || idx >= board.Len() {
			return nil, fmt.Errorf("%w: mine index %d outside %dx%d board", core.ErrInvalidConfiguration, idx, n, n)
		}
		if board.Cells[idx].IsMine() {
			return nil, fmt.Errorf("%w: duplicate mine index %d", core.ErrInvalidConfiguration, idx)
		}
		board.Cells[idx] = core.CellMine
	}
	board.PaintCounts()

	return board, nil
}
