package game

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/encoding"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/events"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/mapgen"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/rules"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/states"
	"github.com/rs/zerolog"
)

// EnvironmentConfig holds everything needed to build an Environment
type EnvironmentConfig struct {
	Size    int
	Mines   int
	Rewards RewardConfig
	Rng     *rand.Rand

	// Indexer maps observations to state indices. Nil selects the
	// closed-form encoder for Size and Mines.
	Indexer encoding.StateIndexer

	// RunID tags published events. Empty generates a random one.
	RunID     string
	Publisher events.Publisher
	Logger    zerolog.Logger
}

// Environment is a single-player minesweeper board exposing a discrete
// state/action space. It is not safe for concurrent use.
type Environment struct {
	size      int
	mines     int
	rewards   RewardConfig
	generator *mapgen.Generator
	encoder   *encoding.Encoder
	indexer   encoding.StateIndexer
	external  bool
	initial   int
	publisher events.Publisher
	runID     string

	board       *core.Board
	covers      core.CoverMask
	squaresLeft int
	state       int
	steps       int

	machine *states.StateMachine
	logger  zerolog.Logger
}

// NewEnvironment validates cfg and returns an environment in the idle phase.
// Reset must be called before Step.
func NewEnvironment(cfg EnvironmentConfig) (*Environment, error) {
	logger := cfg.Logger.With().Str("component", "environment").Logger()

	mapCfg := mapgen.MapConfig{Size: cfg.Size, Mines: cfg.Mines}
	if err := mapCfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Rng == nil {
		return nil, fmt.Errorf("%w: environment requires a seeded rng", core.ErrInvalidConfiguration)
	}

	rewards := cfg.Rewards
	if rewards == (RewardConfig{}) {
		rewards = DefaultRewardConfig(cfg.Size)
	}
	if err := rewards.Validate(); err != nil {
		return nil, err
	}

	encoder, err := encoding.NewEncoder(cfg.Size, cfg.Mines)
	if err != nil {
		return nil, err
	}
	indexer := cfg.Indexer
	if indexer == nil {
		indexer = encoder
	}
	if indexer.NumStates() != encoder.NumStates() {
		return nil, fmt.Errorf("%w: indexer covers %d states, board needs %d",
			core.ErrInvalidConfiguration, indexer.NumStates(), encoder.NumStates())
	}

	initial, err := indexer.Index(make(encoding.Observation, encoder.Cells()))
	if err != nil {
		return nil, fmt.Errorf("failed to index covered board: %w", err)
	}

	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	env := &Environment{
		size:      cfg.Size,
		mines:     cfg.Mines,
		rewards:   rewards,
		generator: mapgen.NewGenerator(mapCfg, cfg.Rng),
		encoder:   encoder,
		indexer:   indexer,
		external:  cfg.Indexer != nil,
		initial:   initial,
		publisher: cfg.Publisher,
		runID:     runID,
		covers:    core.NewCoverMask(cfg.Size),
		machine:   states.NewStateMachine(logger),
		logger:    logger,
	}

	logger.Debug().
		Int("size", cfg.Size).
		Int("mines", cfg.Mines).
		Int("num_states", encoder.NumStates()).
		Str("run_id", runID).
		Msg("Environment created")

	return env, nil
}

// Reset deals a fresh board with every cell covered and returns the
// initial state index, which is the same for every board of this size.
func (e *Environment) Reset() int {
	board, err := e.generator.GenerateBoard()
	if err != nil {
		// Size and mines were validated by NewEnvironment
		panic(err)
	}
	return e.start(board)
}

// SetBoard starts a new episode on a caller-supplied layout instead of a
// generated one. The board must match the configured size and mine count.
func (e *Environment) SetBoard(board *core.Board) (int, error) {
	if board == nil || board.N != e.size || board.Len() != e.size*e.size {
		return 0, fmt.Errorf("%w: board does not match %dx%d environment", core.ErrInvalidConfiguration, e.size, e.size)
	}
	if got := board.MineCount(); got != e.mines {
		return 0, fmt.Errorf("%w: board has %d mines, environment expects %d",
			core.ErrInvalidConfiguration, got, e.mines)
	}
	return e.start(board.Clone()), nil
}

func (e *Environment) start(board *core.Board) int {
	e.board = board
	for i := range e.covers {
		e.covers[i] = true
	}
	e.squaresLeft = e.size*e.size - e.mines
	e.steps = 0
	e.machine.Begin()
	e.state = e.initial

	episodes, _, _ := e.machine.Counts()
	if e.publisher != nil {
		e.publisher.Publish(events.NewGameStartedEvent(e.runID, episodes, e.size, e.mines))
	}
	return e.state
}

// Step uncovers the cell addressed by action and returns the new state
// index, the reward and whether the episode ended. Out-of-range actions fail
// with core.ErrInvalidAction and a Step after the episode ended fails with
// core.ErrInvalidState; neither changes the environment.
func (e *Environment) Step(action int) (int, float64, bool, error) {
	if err := core.ValidateAction(action, e.size); err != nil {
		return e.state, 0, false, err
	}
	if err := e.machine.RequireActionable(); err != nil {
		return e.state, 0, false, core.WrapActionError(action, err)
	}

	e.steps++
	if !e.covers.Covered(action) {
		e.logger.Debug().
			Int("action", action).
			Stringer("cell", core.ActionCoordinate(action, e.size)).
			Msg("Wasted move on uncovered cell")
		return e.state, e.rewards.WastedMove, false, nil
	}

	e.covers[action] = false
	state, err := e.index()
	if err != nil {
		e.covers[action] = true
		e.steps--
		return e.state, 0, false, core.WrapActionError(action, err)
	}
	e.state = state

	cell := e.board.Cells[action]
	if !cell.IsMine() {
		e.squaresLeft--
	}

	phase, reason := rules.Outcome(cell, e.squaresLeft)
	switch phase {
	case states.PhaseLost:
		if err := e.finish(phase, reason); err != nil {
			return e.state, 0, false, err
		}
		return e.state, e.rewards.MinePenalty, true, nil
	case states.PhaseWon:
		if err := e.finish(phase, reason); err != nil {
			return e.state, 0, false, err
		}
		return e.state, e.rewards.WinBonus, true, nil
	}
	return e.state, e.rewards.SafeReveal, false, nil
}

// Forfeit ends the running episode as a loss without revealing a cell,
// for callers that stop an episode themselves. It fails with
// core.ErrInvalidState when no episode is running.
func (e *Environment) Forfeit(reason string) error {
	if err := e.machine.RequireActionable(); err != nil {
		return err
	}
	return e.finish(states.PhaseLost, reason)
}

func (e *Environment) index() (int, error) {
	if e.external {
		return e.indexer.Index(encoding.Observe(e.board, e.covers))
	}
	return e.encoder.EncodeBoard(e.board, e.covers), nil
}

func (e *Environment) finish(phase states.EpisodePhase, reason string) error {
	if err := e.machine.TransitionTo(phase, reason); err != nil {
		return err
	}

	episodes, _, _ := e.machine.Counts()
	e.logger.Debug().
		Int("episode", episodes).
		Str("outcome", phase.String()).
		Int("steps", e.steps).
		Int("squares_left", e.squaresLeft).
		Msg("Episode finished")

	if e.publisher != nil {
		e.publisher.Publish(events.NewGameEndedEvent(e.runID, episodes, phase.String(), e.steps, e.squaresLeft))
	}
	return nil
}

func (e *Environment) Size() int                  { return e.size }
func (e *Environment) Mines() int                 { return e.mines }
func (e *Environment) NumStates() int             { return e.encoder.NumStates() }
func (e *Environment) NumMoves() int              { return e.size * e.size }
func (e *Environment) SquaresLeft() int           { return e.squaresLeft }
func (e *Environment) Steps() int                 { return e.steps }
func (e *Environment) State() int                 { return e.state }
func (e *Environment) Rewards() RewardConfig      { return e.rewards }
func (e *Environment) RunID() string              { return e.runID }
func (e *Environment) Phase() states.EpisodePhase { return e.machine.CurrentPhase() }

// Outcomes returns how many episodes were started, won and lost
func (e *Environment) Outcomes() (episodes, wins, losses int) {
	return e.machine.Counts()
}

// Board returns a copy of the current layout, or nil before the first Reset
func (e *Environment) Board() *core.Board {
	if e.board == nil {
		return nil
	}
	return e.board.Clone()
}

// LegalActions lists the cells that are still covered. Any other action is
// a wasted move.
func (e *Environment) LegalActions() []int {
	return rules.LegalActions(e.covers)
}

// Covers returns a copy of the cover mask
func (e *Environment) Covers() core.CoverMask {
	return e.covers.Clone()
}

// Observation returns what the agent currently sees
func (e *Environment) Observation() encoding.Observation {
	if e.board == nil {
		return make(encoding.Observation, e.size*e.size)
	}
	return encoding.Observe(e.board, e.covers)
}
