package states

import (
	"fmt"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	"github.com/rs/zerolog"
)

// Transition records one phase change
type Transition struct {
	From   EpisodePhase
	To     EpisodePhase
	Reason string
}

// StateMachine tracks the phase of the current episode and tallies outcomes
// across episodes. It is owned by a single Environment and not safe for
// concurrent use.
type StateMachine struct {
	currentPhase EpisodePhase
	last         Transition
	episodes     int
	wins         int
	losses       int
	logger       zerolog.Logger
}

// NewStateMachine creates a state machine in PhaseIdle
func NewStateMachine(logger zerolog.Logger) *StateMachine {
	return &StateMachine{
		currentPhase: PhaseIdle,
		logger:       logger.With().Str("component", "episode_state").Logger(),
	}
}

// CurrentPhase returns the current episode phase
func (sm *StateMachine) CurrentPhase() EpisodePhase {
	return sm.currentPhase
}

// LastTransition returns the most recent phase change
func (sm *StateMachine) LastTransition() Transition {
	return sm.last
}

// Begin starts a new episode from any phase
func (sm *StateMachine) Begin() {
	sm.episodes++
	sm.transition(PhasePlaying, "reset")
}

// TransitionTo moves to targetPhase, failing with core.ErrInvalidState when
// the transition is not allowed.
func (sm *StateMachine) TransitionTo(targetPhase EpisodePhase, reason string) error {
	if !sm.currentPhase.CanTransitionTo(targetPhase) {
		return fmt.Errorf("%w: transition from %s to %s", core.ErrInvalidState, sm.currentPhase, targetPhase)
	}

	switch targetPhase {
	case PhaseWon:
		sm.wins++
	case PhaseLost:
		sm.losses++
	}
	sm.transition(targetPhase, reason)
	return nil
}

// RequireActionable returns core.ErrInvalidState unless Step may be called
func (sm *StateMachine) RequireActionable() error {
	if !sm.currentPhase.CanReceiveActions() {
		return fmt.Errorf("%w: episode is %s", core.ErrInvalidState, sm.currentPhase)
	}
	return nil
}

// Counts returns the number of episodes begun, won and lost
func (sm *StateMachine) Counts() (episodes, wins, losses int) {
	return sm.episodes, sm.wins, sm.losses
}

func (sm *StateMachine) transition(target EpisodePhase, reason string) {
	sm.last = Transition{From: sm.currentPhase, To: target, Reason: reason}
	sm.currentPhase = target

	sm.logger.Debug().
		Str("from_phase", sm.last.From.String()).
		Str("to_phase", target.String()).
		Str("reason", reason).
		Msg("Episode phase transition")
}
