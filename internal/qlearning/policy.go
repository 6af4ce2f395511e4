package qlearning

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	exprand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Exploration strategies a Trainer can be configured with
const (
	ExplorationEpsilonGreedy = "epsilon_greedy"
	ExplorationSoftmax       = "softmax"
)

// Policy picks the next action from a Q-table row
type Policy interface {
	SelectAction(q *QTable, state int) int
}

// Greedy always takes the highest-valued action, lowest index on ties
type Greedy struct{}

func (Greedy) SelectAction(q *QTable, state int) int {
	return q.ArgMax(state)
}

// EpsilonGreedy explores uniformly with probability Epsilon and otherwise
// acts greedily.
type EpsilonGreedy struct {
	epsilon float64
	rng     *rand.Rand
}

// NewEpsilonGreedy creates an epsilon-greedy policy drawing from rng
func NewEpsilonGreedy(epsilon float64, rng *rand.Rand) (*EpsilonGreedy, error) {
	if rng == nil {
		return nil, fmt.Errorf("%w: epsilon-greedy policy requires a seeded rng", core.ErrInvalidConfiguration)
	}
	p := &EpsilonGreedy{rng: rng}
	if err := p.SetEpsilon(epsilon); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *EpsilonGreedy) Epsilon() float64 { return p.epsilon }

// SetEpsilon changes the exploration rate
func (p *EpsilonGreedy) SetEpsilon(epsilon float64) error {
	if epsilon < 0 || epsilon > 1 || math.IsNaN(epsilon) {
		return fmt.Errorf("%w: epsilon %v not in [0, 1]", core.ErrInvalidConfiguration, epsilon)
	}
	p.epsilon = epsilon
	return nil
}

func (p *EpsilonGreedy) SelectAction(q *QTable, state int) int {
	if p.rng.Float64() < p.epsilon {
		return p.rng.Intn(q.Moves())
	}
	return q.ArgMax(state)
}

// Softmax samples actions with probability proportional to exp(Q/τ).
// Lower temperatures approach greedy selection.
type Softmax struct {
	temperature float64
	src         exprand.Source
	weights     []float64
}

// NewSoftmax creates a Boltzmann exploration policy. Its sampler is seeded
// from rng so runs stay reproducible.
func NewSoftmax(temperature float64, rng *rand.Rand) (*Softmax, error) {
	if temperature <= 0 || math.IsNaN(temperature) || math.IsInf(temperature, 0) {
		return nil, fmt.Errorf("%w: softmax temperature %v must be positive", core.ErrInvalidConfiguration, temperature)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: softmax policy requires a seeded rng", core.ErrInvalidConfiguration)
	}
	return &Softmax{
		temperature: temperature,
		src:         exprand.NewSource(rng.Uint64()),
	}, nil
}

func (p *Softmax) Temperature() float64 { return p.temperature }

func (p *Softmax) SelectAction(q *QTable, state int) int {
	row := q.Row(state)
	if cap(p.weights) < len(row) {
		p.weights = make([]float64, len(row))
	}
	weights := p.weights[:len(row)]

	// Shift by the max so exp never overflows
	peak := floats.Max(row)
	for i, v := range row {
		weights[i] = math.Exp((v - peak) / p.temperature)
	}

	idx, ok := sampleuv.NewWeighted(weights, p.src).Take()
	if !ok {
		return q.ArgMax(state)
	}
	return idx
}
