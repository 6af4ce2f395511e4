package rules

import "github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"

// LegalActions lists the still-covered cells in ascending order
func LegalActions(covers core.CoverMask) []int {
	actions := make([]int, 0, covers.CoveredCount())
	for i, covered := range covers {
		if covered {
			actions = append(actions, i)
		}
	}
	return actions
}
