package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidAction        = errors.New("invalid action")
	ErrInvalidState         = errors.New("invalid state")
	ErrCacheCorruption      = errors.New("state mapping cache corrupted")
)

// WrapActionError adds the action index to an error returned while applying it.
func WrapActionError(action int, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("action %d: %w", action, err)
}

// GameError carries the position in a run at which an operation failed
type GameError struct {
	Episode   int
	Step      int
	Operation string
	Err       error
}

func NewGameError(episode, step int, op string, err error) *GameError {
	return &GameError{Episode: episode, Step: step, Operation: op, Err: err}
}

func (e *GameError) Error() string {
	if e.Step > 0 {
		return fmt.Sprintf("episode %d: step %d %s: %v", e.Episode, e.Step, e.Operation, e.Err)
	}
	return fmt.Sprintf("episode %d: %s: %v", e.Episode, e.Operation, e.Err)
}

func (e *GameError) Unwrap() error {
	return e.Err
}
