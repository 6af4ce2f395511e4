package qlearning

import (
	"errors"
	"testing"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQTable(t *testing.T) {
	q, err := NewQTable(4, 3)
	require.NoError(t, err)
	assert.Equal(t, 4, q.States())
	assert.Equal(t, 3, q.Moves())

	lo, hi := q.Bounds()
	assert.Zero(t, lo)
	assert.Zero(t, hi)
	assert.Zero(t, q.VisitedStates())

	for _, dims := range [][2]int{{0, 3}, {4, 0}, {-1, 1}} {
		_, err := NewQTable(dims[0], dims[1])
		assert.True(t, errors.Is(err, core.ErrInvalidConfiguration), "dims %v", dims)
	}
}

func TestCheckTableSize(t *testing.T) {
	tests := []struct {
		name          string
		states, moves int
		ok            bool
	}{
		{"3x3 one mine", 262144, 9, true},
		{"at the cap", MaxTableEntries / 8, 8, true},
		{"one past the cap", MaxTableEntries/8 + 1, 8, false},
		{"product overflows", 1 << 62, 16, false},
		{"empty", 0, 9, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTableSize(tt.states, tt.moves)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, core.ErrInvalidConfiguration), "got %v", err)
			}
		})
	}
}

func TestNewQTableRejectsOversizedBoards(t *testing.T) {
	// 5x5 with one mine has 4^25 states: valid for the encoder, far too big to store
	env := newRandomEnv(t, 5, 1, 1)
	require.Equal(t, 1<<50, env.NumStates())

	assert.NotPanics(t, func() {
		_, err := NewQTable(env.NumStates(), env.NumMoves())
		assert.True(t, errors.Is(err, core.ErrInvalidConfiguration), "got %v", err)
	})
}

func TestQTableUpdate(t *testing.T) {
	q, err := NewQTable(3, 2)
	require.NoError(t, err)
	q.Set(2, 0, 10)
	q.Set(2, 1, 4)

	// (1-.5)*0 + .5*(1 + .9*10)
	v, err := q.Update(0, 1, 1, 2, false, 0.5, 0.9)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, v, 1e-12)
	assert.InDelta(t, 5.0, q.Get(0, 1), 1e-12)

	// (1-.5)*5 + .5*(1 + .9*10)
	v, err = q.Update(0, 1, 1, 2, false, 0.5, 0.9)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, v, 1e-12)
}

func TestQTableUpdateTerminalDropsBootstrap(t *testing.T) {
	q, err := NewQTable(2, 2)
	require.NoError(t, err)
	q.Set(1, 0, 1000)

	v, err := q.Update(0, 0, -9, 1, true, 1, 0.9)
	require.NoError(t, err)
	assert.Equal(t, -9.0, v, "terminal target must be the reward alone")
}

func TestQTableUpdateRejectsBadIndices(t *testing.T) {
	q, err := NewQTable(2, 2)
	require.NoError(t, err)

	tests := []struct {
		name                string
		state, action, next int
		want                error
	}{
		{"negative state", -1, 0, 0, core.ErrInvalidState},
		{"state past end", 2, 0, 0, core.ErrInvalidState},
		{"action past end", 0, 2, 0, core.ErrInvalidAction},
		{"negative action", 0, -1, 0, core.ErrInvalidAction},
		{"next past end", 0, 0, 5, core.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := q.Update(tt.state, tt.action, 1, tt.next, false, 0.5, 0.5)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	lo, hi := q.Bounds()
	assert.Zero(t, lo)
	assert.Zero(t, hi)
}

func TestQTableArgMaxTies(t *testing.T) {
	q, err := NewQTable(1, 4)
	require.NoError(t, err)
	assert.Equal(t, 0, q.ArgMax(0))

	q.Set(0, 2, 3)
	q.Set(0, 3, 3)
	assert.Equal(t, 2, q.ArgMax(0))
	assert.Equal(t, 3.0, q.Max(0))

	q.Set(0, 1, -1)
	q.Set(0, 2, -1)
	q.Set(0, 3, -1)
	assert.Equal(t, 0, q.ArgMax(0))
}

// Any sequence of updates with rewards in [lo, hi] keeps every value within
// [lo/(1-γ), hi/(1-γ)].
func TestQTableStaysBounded(t *testing.T) {
	const (
		states = 20
		moves  = 5
		gamma  = 0.9
		lo, hi = -81.0, 27.0
	)
	q, err := NewQTable(states, moves)
	require.NoError(t, err)
	rng := testutil.NewTestRNG(11)

	for i := 0; i < 50000; i++ {
		reward := lo + rng.Float64()*(hi-lo)
		_, err := q.Update(rng.Intn(states), rng.Intn(moves), reward, rng.Intn(states), rng.Intn(5) == 0, 0.3, gamma)
		require.NoError(t, err)
	}

	gotLo, gotHi := q.Bounds()
	assert.GreaterOrEqual(t, gotLo, lo/(1-gamma)-1e-9)
	assert.LessOrEqual(t, gotHi, hi/(1-gamma)+1e-9)
	assert.Equal(t, states, q.VisitedStates())
}

func TestQTableCloneAndReset(t *testing.T) {
	q, err := NewQTable(2, 2)
	require.NoError(t, err)
	q.Set(1, 1, 4)

	clone := q.Clone()
	assert.True(t, q.Equal(clone))

	clone.Set(0, 0, 1)
	assert.False(t, q.Equal(clone))
	assert.Zero(t, q.Get(0, 0))

	q.Reset()
	assert.Zero(t, q.Get(1, 1))
	assert.Zero(t, q.VisitedStates())

	other, err := NewQTable(2, 3)
	require.NoError(t, err)
	assert.False(t, q.Equal(other))
}
