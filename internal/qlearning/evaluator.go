package qlearning

import (
	"context"
	"fmt"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/events"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"
)

// EvaluatorConfig controls greedy evaluation
type EvaluatorConfig struct {
	// RepeatPenalty is charged when an action leaves the state unchanged.
	// Zero means the environment's MinePenalty.
	RepeatPenalty float64 `mapstructure:"repeat_penalty"`
}

// EvaluationResult summarizes an Evaluate call
type EvaluationResult struct {
	WinRatePercent  float64
	InstantLosses   int
	RepeatPenalties int
	Wins            int
	Losses          int
	Trials          int
	MeanReward      float64
	StdReward       float64
}

// EvaluatorOption configures optional Evaluator collaborators
type EvaluatorOption func(*Evaluator)

// WithEvaluationPublisher publishes an EvaluationCompleted event after each run
func WithEvaluationPublisher(p events.Publisher) EvaluatorOption {
	return func(e *Evaluator) { e.publisher = p }
}

// Evaluator plays a fixed Q-table greedily and never updates it
type Evaluator struct {
	env       Environment
	q         *QTable
	policy    Policy
	penalty   float64
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewEvaluator binds an evaluator to env and q
func NewEvaluator(env Environment, q *QTable, cfg EvaluatorConfig, logger zerolog.Logger, opts ...EvaluatorOption) (*Evaluator, error) {
	if q.States() != env.NumStates() || q.Moves() != env.NumMoves() {
		return nil, fmt.Errorf("%w: q-table is %dx%d, environment needs %dx%d",
			core.ErrInvalidConfiguration, q.States(), q.Moves(), env.NumStates(), env.NumMoves())
	}
	penalty := cfg.RepeatPenalty
	if penalty == 0 {
		penalty = env.Rewards().MinePenalty
	}
	if penalty > 0 {
		return nil, fmt.Errorf("%w: repeat penalty %v must not be positive", core.ErrInvalidConfiguration, penalty)
	}

	e := &Evaluator{
		env:     env,
		q:       q,
		policy:  Greedy{},
		penalty: penalty,
		logger:  logger.With().Str("component", "evaluator").Str("run_id", env.RunID()).Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// RepeatPenalty returns the effective penalty for a no-progress action
func (e *Evaluator) RepeatPenalty() float64 { return e.penalty }

// Evaluate plays trials greedy episodes. Episodes lost on the first move are
// counted separately and left out of the win-rate denominator.
func (e *Evaluator) Evaluate(ctx context.Context, trials int) (EvaluationResult, error) {
	if trials <= 0 {
		return EvaluationResult{}, fmt.Errorf("%w: trials %d must be positive", core.ErrInvalidConfiguration, trials)
	}

	result := EvaluationResult{Trials: trials}
	totals := make([]float64, 0, trials)

	for trial := 1; trial <= trials; trial++ {
		if err := ctx.Err(); err != nil {
			e.logger.Warn().Err(err).Int("trial", trial).Msg("Evaluation cancelled")
			return EvaluationResult{}, err
		}

		outcome, err := e.playOne(trial)
		if err != nil {
			return EvaluationResult{}, err
		}
		totals = append(totals, outcome.total)

		switch {
		case outcome.won:
			result.Wins++
		case outcome.instant:
			result.InstantLosses++
			result.Losses++
		case outcome.repeated:
			result.RepeatPenalties++
			result.Losses++
		default:
			result.Losses++
		}
	}

	if denom := trials - result.InstantLosses; denom > 0 {
		result.WinRatePercent = float64(result.Wins) / float64(denom) * 100
	}
	if len(totals) > 1 {
		result.MeanReward, result.StdReward = stat.MeanStdDev(totals, nil)
	} else {
		result.MeanReward = totals[0]
	}

	e.logger.Info().
		Int("trials", trials).
		Int("wins", result.Wins).
		Int("instant_losses", result.InstantLosses).
		Int("repeat_penalties", result.RepeatPenalties).
		Float64("win_rate_percent", result.WinRatePercent).
		Float64("mean_reward", result.MeanReward).
		Msg("Evaluation completed")

	if e.publisher != nil {
		e.publisher.Publish(events.NewEvaluationCompletedEvent(e.env.RunID(), trials, result.Wins,
			result.InstantLosses, result.RepeatPenalties, result.WinRatePercent))
	}
	return result, nil
}

type trialOutcome struct {
	won      bool
	instant  bool
	repeated bool
	total    float64
}

// forfeiter is implemented by environments that record an episode ended
// by the caller, so their outcome counts match the evaluation
type forfeiter interface {
	Forfeit(reason string) error
}

func (e *Evaluator) playOne(trial int) (trialOutcome, error) {
	var out trialOutcome
	state := e.env.Reset()

	for step := 1; ; step++ {
		action := e.policy.SelectAction(e.q, state)
		next, reward, done, err := e.env.Step(action)
		if err != nil {
			return out, core.NewGameError(trial, step, "evaluate", core.WrapActionError(action, err))
		}

		if !done && next == state {
			// Greedy play would pick the same action forever
			out.repeated = true
			out.total += e.penalty
			e.logger.Debug().Int("trial", trial).Int("step", step).Int("action", action).Msg("Repeated state, ending trial")
			if f, ok := e.env.(forfeiter); ok {
				if err := f.Forfeit("repeated state"); err != nil {
					return out, core.NewGameError(trial, step, "forfeit", err)
				}
			}
			return out, nil
		}

		out.total += reward
		if done {
			out.won = reward > 0
			out.instant = step == 1 && reward < 0
			return out, nil
		}
		state = next
	}
}
