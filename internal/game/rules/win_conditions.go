package rules

import (
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/states"
)

// Outcome decides the episode phase after revealed was uncovered, given the
// safe cells still covered afterwards. A mine always loses, even when it is
// the last covered cell.
func Outcome(revealed core.Cell, squaresLeft int) (states.EpisodePhase, string) {
	switch {
	case revealed.IsMine():
		return states.PhaseLost, "mine revealed"
	case squaresLeft == 0:
		return states.PhaseWon, "all safe cells revealed"
	default:
		return states.PhasePlaying, ""
	}
}
