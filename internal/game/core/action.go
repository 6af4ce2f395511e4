package core

import "fmt"

// ValidateAction checks that action addresses a cell of an n×n board.
func ValidateAction(action, n int) error {
	if action < 0 || action >= n*n {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidAction, action, n*n)
	}
	return nil
}

// ActionCoordinate maps an action index to the cell it uncovers:
// row = action / n, col = action % n.
func ActionCoordinate(action, n int) Coordinate {
	return FromIndex(action, n)
}
