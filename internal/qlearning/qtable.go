package qlearning

import (
	"fmt"
	"math/bits"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// QTable is a dense states × moves table of action values, zero-initialized
type QTable struct {
	states int
	moves  int
	values *mat.Dense
}

// MaxTableEntries caps a table at 2^27 values, 1 GiB of float64
const MaxTableEntries = 1 << 27

// CheckTableSize fails with core.ErrInvalidConfiguration unless a
// states × moves table is non-empty and within MaxTableEntries.
func CheckTableSize(states, moves int) error {
	if states <= 0 || moves <= 0 {
		return fmt.Errorf("%w: q-table shape %dx%d", core.ErrInvalidConfiguration, states, moves)
	}
	hi, lo := bits.Mul64(uint64(states), uint64(moves))
	if hi != 0 || lo > MaxTableEntries {
		return fmt.Errorf("%w: q-table %dx%d exceeds %d entries",
			core.ErrInvalidConfiguration, states, moves, MaxTableEntries)
	}
	return nil
}

// NewQTable allocates a zeroed table
func NewQTable(states, moves int) (*QTable, error) {
	if err := CheckTableSize(states, moves); err != nil {
		return nil, err
	}
	return &QTable{
		states: states,
		moves:  moves,
		values: mat.NewDense(states, moves, nil),
	}, nil
}

func (q *QTable) States() int { return q.states }
func (q *QTable) Moves() int  { return q.moves }

// Get returns Q[state, action]. It panics on out-of-range indices.
func (q *QTable) Get(state, action int) float64 {
	return q.values.At(state, action)
}

// Set overwrites Q[state, action]
func (q *QTable) Set(state, action int, v float64) {
	q.values.Set(state, action, v)
}

// Row returns the action values of state. The slice aliases the table and
// must not be modified.
func (q *QTable) Row(state int) []float64 {
	return q.values.RawRowView(state)
}

// Max returns max_a Q[state, a]
func (q *QTable) Max(state int) float64 {
	return floats.Max(q.Row(state))
}

// ArgMax returns the best action for state, the lowest index on ties
func (q *QTable) ArgMax(state int) int {
	return floats.MaxIdx(q.Row(state))
}

// CheckIndex reports whether (state, action) addresses a cell of the table
func (q *QTable) CheckIndex(state, action int) error {
	if state < 0 || state >= q.states {
		return fmt.Errorf("%w: state %d not in [0, %d)", core.ErrInvalidState, state, q.states)
	}
	if action < 0 || action >= q.moves {
		return fmt.Errorf("%w: %d not in [0, %d)", core.ErrInvalidAction, action, q.moves)
	}
	return nil
}

// Update applies one tabular Q-learning step and returns the new value:
//
//	Q[s,a] ← (1−α)·Q[s,a] + α·(r + γ·max_a' Q[s',a'])
//
// The bootstrap term is dropped when done is true.
func (q *QTable) Update(state, action int, reward float64, next int, done bool, alpha, gamma float64) (float64, error) {
	if err := q.CheckIndex(state, action); err != nil {
		return 0, err
	}
	if next < 0 || next >= q.states {
		return 0, fmt.Errorf("%w: next state %d not in [0, %d)", core.ErrInvalidState, next, q.states)
	}

	target := reward
	if !done {
		target += gamma * q.Max(next)
	}
	v := (1-alpha)*q.Get(state, action) + alpha*target
	q.Set(state, action, v)
	return v, nil
}

// Bounds returns the smallest and largest values in the table
func (q *QTable) Bounds() (lo, hi float64) {
	raw := q.values.RawMatrix().Data
	return floats.Min(raw), floats.Max(raw)
}

// VisitedStates counts rows holding at least one non-zero value
func (q *QTable) VisitedStates() int {
	count := 0
	for s := 0; s < q.states; s++ {
		for _, v := range q.Row(s) {
			if v != 0 {
				count++
				break
			}
		}
	}
	return count
}

// Reset zeroes every entry
func (q *QTable) Reset() {
	q.values.Zero()
}

// Clone returns an independent copy
func (q *QTable) Clone() *QTable {
	return &QTable{
		states: q.states,
		moves:  q.moves,
		values: mat.DenseCopyOf(q.values),
	}
}

// Equal reports whether both tables have the same shape and values
func (q *QTable) Equal(other *QTable) bool {
	return q.states == other.states && q.moves == other.moves && mat.Equal(q.values, other.values)
}
