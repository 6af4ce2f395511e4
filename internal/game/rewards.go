package game

import (
	"fmt"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
)

// RewardConfig is the reward shaping applied by Environment.Step
type RewardConfig struct {
	WastedMove  float64 `mapstructure:"wasted_move"`
	MinePenalty float64 `mapstructure:"mine_penalty"`
	SafeReveal  float64 `mapstructure:"safe_reveal"`
	WinBonus    float64 `mapstructure:"win_bonus"`
}

// DefaultRewardConfig scales rewards with the board side n: a wasted move
// costs n², a mine n⁴, a safe reveal earns n and a win n³.
func DefaultRewardConfig(n int) RewardConfig {
	f := float64(n)
	return RewardConfig{
		WastedMove:  -f * f,
		MinePenalty: -f * f * f * f,
		SafeReveal:  f,
		WinBonus:    f * f * f,
	}
}

// Validate checks sign and ordering. Magnitudes are free.
func (r RewardConfig) Validate() error {
	switch {
	case r.WastedMove > 0:
		return fmt.Errorf("%w: wasted move reward %v must be <= 0", core.ErrInvalidConfiguration, r.WastedMove)
	case r.MinePenalty >= r.WastedMove:
		return fmt.Errorf("%w: mine penalty %v must be below wasted move reward %v",
			core.ErrInvalidConfiguration, r.MinePenalty, r.WastedMove)
	case r.SafeReveal <= r.WastedMove:
		return fmt.Errorf("%w: safe reveal reward %v must exceed wasted move reward %v",
			core.ErrInvalidConfiguration, r.SafeReveal, r.WastedMove)
	case r.WinBonus < r.SafeReveal:
		return fmt.Errorf("%w: win bonus %v must be >= safe reveal reward %v",
			core.ErrInvalidConfiguration, r.WinBonus, r.SafeReveal)
	}
	return nil
}

// Min returns the most negative reward Step can return
func (r RewardConfig) Min() float64 { return r.MinePenalty }

// Max returns the largest reward Step can return
func (r RewardConfig) Max() float64 { return r.WinBonus }
