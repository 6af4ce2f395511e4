package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapActionError(t *testing.T) {
	tests := []struct {
		name     string
		action   int
		err      error
		expected string
		isNil    bool
	}{
		{
			name:  "nil error returns nil",
			err:   nil,
			isNil: true,
		},
		{
			name:     "invalid action",
			action:   12,
			err:      ErrInvalidAction,
			expected: "action 12: invalid action",
		},
		{
			name:     "terminal episode",
			action:   3,
			err:      ErrInvalidState,
			expected: "action 3: invalid state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapActionError(tt.action, tt.err)
			if tt.isNil {
				assert.Nil(t, wrapped)
				return
			}
			require.NotNil(t, wrapped)
			assert.Equal(t, tt.expected, wrapped.Error())
			assert.True(t, errors.Is(wrapped, tt.err))
		})
	}
}

func TestGameError(t *testing.T) {
	t.Run("with step", func(t *testing.T) {
		err := NewGameError(7, 3, "step", ErrInvalidAction)
		assert.Equal(t, "episode 7: step 3 step: invalid action", err.Error())
		assert.True(t, errors.Is(err, ErrInvalidAction))
	})

	t.Run("without step", func(t *testing.T) {
		err := NewGameError(9, 0, "reset", ErrInvalidConfiguration)
		assert.Equal(t, "episode 9: reset: invalid configuration", err.Error())
	})

	t.Run("errors.As functionality", func(t *testing.T) {
		gameErr := NewGameError(50, 2, "update", fmt.Errorf("boom"))

		var extracted *GameError
		assert.True(t, errors.As(fmt.Errorf("outer: %w", gameErr), &extracted))
		assert.Equal(t, 50, extracted.Episode)
		assert.Equal(t, 2, extracted.Step)
		assert.Equal(t, "update", extracted.Operation)
	})
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	all := []error{ErrInvalidConfiguration, ErrInvalidAction, ErrInvalidState, ErrCacheCorruption}
	for i, a := range all {
		for j, b := range all {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}
