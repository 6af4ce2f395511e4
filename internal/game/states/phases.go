package states

import "fmt"

// EpisodePhase represents where an episode is in its lifecycle
type EpisodePhase int

const (
	// PhaseIdle - Environment constructed, Reset not yet called
	PhaseIdle EpisodePhase = iota

	// PhasePlaying - Safe cells remain covered and no mine has been revealed
	PhasePlaying

	// PhaseWon - Every safe cell uncovered
	PhaseWon

	// PhaseLost - A mine was uncovered
	PhaseLost
)

// String returns the string representation of an EpisodePhase
func (p EpisodePhase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhasePlaying:
		return "Playing"
	case PhaseWon:
		return "Won"
	case PhaseLost:
		return "Lost"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// IsTerminal returns true once the episode has been decided
func (p EpisodePhase) IsTerminal() bool {
	return p == PhaseWon || p == PhaseLost
}

// CanReceiveActions returns true if Step may be called in this phase
func (p EpisodePhase) CanReceiveActions() bool {
	return p == PhasePlaying
}

// AllowedTransitions returns the valid phases this phase can transition to.
// Every phase may return to Playing, which is how Reset starts a new episode.
func (p EpisodePhase) AllowedTransitions() []EpisodePhase {
	switch p {
	case PhaseIdle:
		return []EpisodePhase{PhasePlaying}
	case PhasePlaying:
		return []EpisodePhase{PhasePlaying, PhaseWon, PhaseLost}
	case PhaseWon, PhaseLost:
		return []EpisodePhase{PhasePlaying}
	default:
		return []EpisodePhase{}
	}
}

// CanTransitionTo checks if a transition from this phase to the target phase is allowed
func (p EpisodePhase) CanTransitionTo(target EpisodePhase) bool {
	for _, phase := range p.AllowedTransitions() {
		if phase == target {
			return true
		}
	}
	return false
}
