package qlearning

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/experience"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/events"
	"github.com/rs/zerolog"
)

// Environment is the part of game.Environment the learning loops drive
type Environment interface {
	Reset() int
	Step(action int) (state int, reward float64, done bool, err error)
	NumStates() int
	NumMoves() int
	Rewards() game.RewardConfig
	RunID() string
}

var _ Environment = (*game.Environment)(nil)

// TrainerConfig holds the learning hyperparameters. There are no implicit
// defaults; zero values are taken literally.
type TrainerConfig struct {
	Alpha   float64 `mapstructure:"alpha"`
	Gamma   float64 `mapstructure:"gamma"`
	Epsilon float64 `mapstructure:"epsilon"`

	// EpsilonDecay multiplies epsilon after every episode. Zero disables
	// decay; otherwise it must be in (0, 1].
	EpsilonDecay float64 `mapstructure:"epsilon_decay"`
	EpsilonMin   float64 `mapstructure:"epsilon_min"`

	// Exploration selects the behaviour policy: ExplorationEpsilonGreedy
	// (also when empty) or ExplorationSoftmax with Temperature.
	Exploration string  `mapstructure:"exploration"`
	Temperature float64 `mapstructure:"temperature"`
}

// Validate checks every hyperparameter range
func (c TrainerConfig) Validate() error {
	if !(c.Alpha > 0 && c.Alpha <= 1) {
		return fmt.Errorf("%w: alpha %v not in (0, 1]", core.ErrInvalidConfiguration, c.Alpha)
	}
	if !(c.Gamma >= 0 && c.Gamma <= 1) {
		return fmt.Errorf("%w: gamma %v not in [0, 1]", core.ErrInvalidConfiguration, c.Gamma)
	}
	if !(c.Epsilon >= 0 && c.Epsilon <= 1) {
		return fmt.Errorf("%w: epsilon %v not in [0, 1]", core.ErrInvalidConfiguration, c.Epsilon)
	}
	if c.EpsilonDecay != 0 && !(c.EpsilonDecay > 0 && c.EpsilonDecay <= 1) {
		return fmt.Errorf("%w: epsilon decay %v not in (0, 1]", core.ErrInvalidConfiguration, c.EpsilonDecay)
	}
	if !(c.EpsilonMin >= 0 && c.EpsilonMin <= c.Epsilon) {
		return fmt.Errorf("%w: epsilon min %v not in [0, %v]", core.ErrInvalidConfiguration, c.EpsilonMin, c.Epsilon)
	}
	switch c.Exploration {
	case "", ExplorationEpsilonGreedy:
	case ExplorationSoftmax:
		if !(c.Temperature > 0) || math.IsInf(c.Temperature, 0) {
			return fmt.Errorf("%w: softmax temperature %v must be positive", core.ErrInvalidConfiguration, c.Temperature)
		}
	default:
		return fmt.Errorf("%w: unknown exploration %q", core.ErrInvalidConfiguration, c.Exploration)
	}
	return nil
}

// TrainStats accumulates over every Train call on one Trainer
type TrainStats struct {
	Episodes    int
	Wins        int
	Losses      int
	Steps       int
	WastedMoves int
	TotalReward float64
}

// TrainerOption configures optional Trainer collaborators
type TrainerOption func(*Trainer)

// WithCollector sends every applied transition to c
func WithCollector(c experience.Collector) TrainerOption {
	return func(t *Trainer) { t.collector = c }
}

// WithPublisher publishes episode and completion events to p
func WithPublisher(p events.Publisher) TrainerOption {
	return func(t *Trainer) { t.publisher = p }
}

// WithProgressInterval logs progress at Info every n episodes
func WithProgressInterval(n int) TrainerOption {
	return func(t *Trainer) { t.progressEvery = n }
}

// Trainer runs tabular Q-learning against an Environment, exploring
// epsilon-greedily unless configured for softmax.
type Trainer struct {
	env    Environment
	q      *QTable
	config TrainerConfig
	policy Policy

	// nil under softmax exploration
	epsilonGreedy *EpsilonGreedy

	collector     experience.Collector
	publisher     events.Publisher
	progressEvery int

	stats  TrainStats
	logger zerolog.Logger
}

// NewTrainer validates cfg and binds the trainer to env and q. All
// exploration randomness is drawn from rng.
func NewTrainer(env Environment, q *QTable, cfg TrainerConfig, rng *rand.Rand, logger zerolog.Logger, opts ...TrainerOption) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if q.States() != env.NumStates() || q.Moves() != env.NumMoves() {
		return nil, fmt.Errorf("%w: q-table is %dx%d, environment needs %dx%d",
			core.ErrInvalidConfiguration, q.States(), q.Moves(), env.NumStates(), env.NumMoves())
	}

	t := &Trainer{
		env:    env,
		q:      q,
		config: cfg,
		logger: logger.With().Str("component", "trainer").Str("run_id", env.RunID()).Logger(),
	}
	if cfg.Exploration == ExplorationSoftmax {
		policy, err := NewSoftmax(cfg.Temperature, rng)
		if err != nil {
			return nil, err
		}
		t.policy = policy
	} else {
		policy, err := NewEpsilonGreedy(cfg.Epsilon, rng)
		if err != nil {
			return nil, err
		}
		t.policy, t.epsilonGreedy = policy, policy
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Train runs epochs episodes and returns the percentage won. A Step error
// aborts training before the faulty transition reaches the table. The
// context is checked between episodes.
func (t *Trainer) Train(ctx context.Context, epochs int) (float64, error) {
	if epochs <= 0 {
		return 0, fmt.Errorf("%w: epochs %d must be positive", core.ErrInvalidConfiguration, epochs)
	}

	start := time.Now()
	wins := 0
	base := t.stats.Episodes

	t.logger.Info().
		Int("epochs", epochs).
		Float64("alpha", t.config.Alpha).
		Float64("gamma", t.config.Gamma).
		Str("exploration", t.exploration()).
		Float64("epsilon", t.Epsilon()).
		Msg("Training started")

	for e := 1; e <= epochs; e++ {
		select {
		case <-ctx.Done():
			t.logger.Warn().Err(ctx.Err()).Int("episode", base+e).Msg("Training cancelled")
			return 0, ctx.Err()
		default:
		}

		won, err := t.runEpisode(base + e)
		if err != nil {
			return 0, err
		}
		if won {
			wins++
		}
		t.decayEpsilon()

		if t.progressEvery > 0 && e%t.progressEvery == 0 {
			t.logger.Info().
				Int("episode", e).
				Float64("win_rate_percent", percent(wins, e)).
				Float64("epsilon", t.Epsilon()).
				Msg("Training progress")
		}
	}

	winRate := percent(wins, epochs)
	elapsed := time.Since(start)
	t.logger.Info().
		Int("episodes", epochs).
		Int("wins", wins).
		Float64("win_rate_percent", winRate).
		Int("visited_states", t.q.VisitedStates()).
		Dur("duration", elapsed).
		Msg("Training completed")

	if t.publisher != nil {
		t.publisher.Publish(events.NewTrainingCompletedEvent(t.env.RunID(), epochs, wins, winRate, elapsed))
	}
	return winRate, nil
}

func (t *Trainer) runEpisode(episode int) (bool, error) {
	state := t.env.Reset()
	steps := 0
	total := 0.0

	for {
		action := t.policy.SelectAction(t.q, state)
		next, reward, done, err := t.env.Step(action)
		if err != nil {
			return false, core.NewGameError(episode, steps+1, "step", core.WrapActionError(action, err))
		}
		steps++
		total += reward
		if !done && next == state {
			t.stats.WastedMoves++
		}

		if _, err := t.q.Update(state, action, reward, next, done, t.config.Alpha, t.config.Gamma); err != nil {
			return false, core.NewGameError(episode, steps, "update", err)
		}

		if t.collector != nil {
			t.collector.OnTransition(experience.Transition{
				RunID:     t.env.RunID(),
				Episode:   episode,
				Step:      steps,
				State:     state,
				Action:    action,
				Reward:    reward,
				NextState: next,
				Done:      done,
			})
		}

		state = next
		if done {
			won := reward > 0
			t.record(won, steps, total)
			if t.publisher != nil {
				t.publisher.Publish(events.NewEpisodeFinishedEvent(t.env.RunID(), episode, won, steps, total, t.Epsilon()))
			}
			return won, nil
		}
	}
}

func (t *Trainer) record(won bool, steps int, total float64) {
	t.stats.Episodes++
	t.stats.Steps += steps
	t.stats.TotalReward += total
	if won {
		t.stats.Wins++
	} else {
		t.stats.Losses++
	}
}

func (t *Trainer) decayEpsilon() {
	if t.epsilonGreedy == nil || t.config.EpsilonDecay == 0 || t.config.EpsilonDecay == 1 {
		return
	}
	next := math.Max(t.config.EpsilonMin, t.epsilonGreedy.Epsilon()*t.config.EpsilonDecay)
	// next stays within [EpsilonMin, Epsilon] which Validate bounded to [0, 1]
	_ = t.epsilonGreedy.SetEpsilon(next)
}

func (t *Trainer) exploration() string {
	if t.epsilonGreedy == nil {
		return ExplorationSoftmax
	}
	return ExplorationEpsilonGreedy
}

// Stats returns the accumulated training statistics
func (t *Trainer) Stats() TrainStats { return t.stats }

// Epsilon returns the current exploration rate, zero under softmax
func (t *Trainer) Epsilon() float64 {
	if t.epsilonGreedy == nil {
		return 0
	}
	return t.epsilonGreedy.Epsilon()
}

// QTable returns the table being trained
func (t *Trainer) QTable() *QTable { return t.q }

func percent(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d) * 100
}
