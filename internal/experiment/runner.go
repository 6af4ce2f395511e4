package experiment

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/experience"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/encoding"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/events"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/mapgen"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/qlearning"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Config describes a batch of independent train-then-evaluate runs
type Config struct {
	Size    int
	Mines   int
	Rewards game.RewardConfig

	Trainer          qlearning.TrainerConfig
	Epochs           int
	ProgressInterval int

	Evaluator qlearning.EvaluatorConfig
	Trials    int

	Runs     int
	Workers  int
	BaseSeed int64

	// CheckpointDir receives one Q-table per run when set
	CheckpointDir string

	// BufferCapacity bounds the transitions kept per run. Zero disables
	// recording.
	BufferCapacity int
}

// Validate checks the batch settings. Board and learner settings are
// checked again by the components that own them.
func (c Config) Validate() error {
	if err := (mapgen.MapConfig{Size: c.Size, Mines: c.Mines}).Validate(); err != nil {
		return err
	}
	enc, err := encoding.NewEncoder(c.Size, c.Mines)
	if err != nil {
		return err
	}
	if err := qlearning.CheckTableSize(enc.NumStates(), enc.Cells()); err != nil {
		return err
	}
	if err := c.Trainer.Validate(); err != nil {
		return err
	}
	if c.Epochs <= 0 || c.Trials <= 0 {
		return fmt.Errorf("%w: epochs %d and trials %d must be positive", core.ErrInvalidConfiguration, c.Epochs, c.Trials)
	}
	if c.Runs <= 0 || c.Workers <= 0 {
		return fmt.Errorf("%w: runs %d and workers %d must be positive", core.ErrInvalidConfiguration, c.Runs, c.Workers)
	}
	if c.BufferCapacity < 0 {
		return fmt.Errorf("%w: buffer capacity %d", core.ErrInvalidConfiguration, c.BufferCapacity)
	}
	return nil
}

// RunResult is the outcome of one seed
type RunResult struct {
	Index         int
	Seed          int64
	RunID         string
	TrainWinRate  float64
	Train         qlearning.TrainStats
	Evaluation    qlearning.EvaluationResult
	VisitedStates int
	Transitions   int
	Checkpoint    string
	Duration      time.Duration
}

// Summary aggregates every run of a batch
type Summary struct {
	Runs             []RunResult
	MeanTrainWinRate float64
	StdTrainWinRate  float64
	MeanEvalWinRate  float64
	StdEvalWinRate   float64
	Duration         time.Duration
}

// Option configures optional Runner collaborators
type Option func(*Runner)

// WithPublisher shares p across all runs. It must be safe for concurrent use.
func WithPublisher(p events.Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithIndexer replaces the closed-form encoder in every run's environment.
// The indexer is shared and only read.
func WithIndexer(idx encoding.StateIndexer) Option {
	return func(r *Runner) { r.indexer = idx }
}

// WithPersistence writes each run's recorded transitions to layer
func WithPersistence(layer experience.PersistenceLayer) Option {
	return func(r *Runner) { r.persistence = layer }
}

// Runner trains and evaluates Runs independent seeds, at most Workers at a
// time. Each run owns its environment, table and rng.
type Runner struct {
	config      Config
	publisher   events.Publisher
	indexer     encoding.StateIndexer
	persistence experience.PersistenceLayer
	logger      zerolog.Logger
}

// NewRunner validates cfg and returns a runner
func NewRunner(cfg Config, logger zerolog.Logger, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		config: cfg,
		logger: logger.With().Str("component", "experiment").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run executes every seed and returns their summary. The first failing run
// cancels the others and its error is returned.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	results := make([]RunResult, r.config.Runs)

	r.logger.Info().
		Int("runs", r.config.Runs).
		Int("workers", r.config.Workers).
		Int64("base_seed", r.config.BaseSeed).
		Msg("Starting experiment")

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)
	for i := 0; i < r.config.Runs; i++ {
		i := i
		g.Go(func() error {
			res, err := r.runOne(gCtx, i)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.logger.Error().Err(err).Msg("Experiment failed")
		return nil, err
	}

	summary := summarize(results)
	summary.Duration = time.Since(start)

	r.logger.Info().
		Int("runs", len(results)).
		Float64("mean_train_win_rate", summary.MeanTrainWinRate).
		Float64("mean_eval_win_rate", summary.MeanEvalWinRate).
		Float64("std_eval_win_rate", summary.StdEvalWinRate).
		Dur("duration", summary.Duration).
		Msg("Experiment completed")

	return summary, nil
}

func (r *Runner) runOne(ctx context.Context, index int) (RunResult, error) {
	start := time.Now()
	seed := r.config.BaseSeed + int64(index)
	rng := rand.New(rand.NewSource(seed))
	runID := uuid.NewString()
	logger := r.logger.With().Int("run", index).Int64("seed", seed).Logger()

	env, err := game.NewEnvironment(game.EnvironmentConfig{
		Size:      r.config.Size,
		Mines:     r.config.Mines,
		Rewards:   r.config.Rewards,
		Rng:       rng,
		Indexer:   r.indexer,
		RunID:     runID,
		Publisher: r.publisher,
		Logger:    logger,
	})
	if err != nil {
		return RunResult{}, err
	}

	q, err := qlearning.NewQTable(env.NumStates(), env.NumMoves())
	if err != nil {
		return RunResult{}, err
	}

	opts := []qlearning.TrainerOption{qlearning.WithProgressInterval(r.config.ProgressInterval)}
	if r.publisher != nil {
		opts = append(opts, qlearning.WithPublisher(r.publisher))
	}
	var collector *experience.SimpleCollector
	if r.config.BufferCapacity > 0 {
		collector = experience.NewSimpleCollector(r.config.BufferCapacity, runID, logger)
		opts = append(opts, qlearning.WithCollector(collector))
	}

	trainer, err := qlearning.NewTrainer(env, q, r.config.Trainer, rng, logger, opts...)
	if err != nil {
		return RunResult{}, err
	}
	trainWinRate, err := trainer.Train(ctx, r.config.Epochs)
	if err != nil {
		return RunResult{}, err
	}

	var evalOpts []qlearning.EvaluatorOption
	if r.publisher != nil {
		evalOpts = append(evalOpts, qlearning.WithEvaluationPublisher(r.publisher))
	}
	evaluator, err := qlearning.NewEvaluator(env, q, r.config.Evaluator, logger, evalOpts...)
	if err != nil {
		return RunResult{}, err
	}
	eval, err := evaluator.Evaluate(ctx, r.config.Trials)
	if err != nil {
		return RunResult{}, err
	}

	res := RunResult{
		Index:         index,
		Seed:          seed,
		RunID:         runID,
		TrainWinRate:  trainWinRate,
		Train:         trainer.Stats(),
		Evaluation:    eval,
		VisitedStates: q.VisitedStates(),
	}

	if r.config.CheckpointDir != "" {
		res.Checkpoint = filepath.Join(r.config.CheckpointDir, fmt.Sprintf("qtable_seed%d.bin", seed))
		if err := q.Save(res.Checkpoint); err != nil {
			return RunResult{}, err
		}
	}

	if collector != nil {
		if err := collector.Close(); err != nil {
			return RunResult{}, err
		}
		stats := collector.Stats()
		transitions := collector.Drain()
		res.Transitions = len(transitions)
		logger.Debug().
			Int64("recorded", stats.TotalAdded).
			Int64("overwritten", stats.TotalDropped).
			Int("kept", len(transitions)).
			Msg("Collected transitions")
		if r.persistence != nil {
			if err := r.persistence.Write(ctx, transitions); err != nil {
				return RunResult{}, fmt.Errorf("failed to persist transitions: %w", err)
			}
		}
	}

	res.Duration = time.Since(start)
	logger.Info().
		Str("run_id", runID).
		Float64("train_win_rate", trainWinRate).
		Float64("eval_win_rate", eval.WinRatePercent).
		Int("visited_states", res.VisitedStates).
		Dur("duration", res.Duration).
		Msg("Run completed")

	return res, nil
}

func summarize(results []RunResult) *Summary {
	train := make([]float64, len(results))
	eval := make([]float64, len(results))
	for i, r := range results {
		train[i] = r.TrainWinRate
		eval[i] = r.Evaluation.WinRatePercent
	}

	s := &Summary{Runs: results}
	if len(results) > 1 {
		s.MeanTrainWinRate, s.StdTrainWinRate = stat.MeanStdDev(train, nil)
		s.MeanEvalWinRate, s.StdEvalWinRate = stat.MeanStdDev(eval, nil)
	} else if len(results) == 1 {
		s.MeanTrainWinRate = train[0]
		s.MeanEvalWinRate = eval[0]
	}
	return s
}
