package experiment

import (
	"errors"
	"io"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/config"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/experience"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/encoding"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/events"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/events/subscribers"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/logging"
	"github.com/rs/zerolog"
)

// FromConfig maps the application config onto a batch config
func FromConfig(c *config.Config) Config {
	cfg := Config{
		Size:             c.Environment.Size,
		Mines:            c.Environment.Mines,
		Rewards:          c.Rewards,
		Trainer:          c.Training.TrainerConfig,
		Epochs:           c.Training.Epochs,
		ProgressInterval: c.Training.ProgressInterval,
		Evaluator:        c.Evaluation.EvaluatorConfig,
		Trials:           c.Evaluation.Trials,
		Runs:             c.Experiment.Runs,
		Workers:          c.Experiment.Workers,
		BaseSeed:         c.Experiment.BaseSeed,
		CheckpointDir:    c.Persistence.CheckpointDir,
	}
	if c.Experience.Enabled {
		cfg.BufferCapacity = c.Experience.BufferCapacity
	}
	return cfg
}

// NewFromConfig builds a runner and everything it depends on from c: the
// global logger writing to logOut, the optional state mapping, the
// transition store and an event bus that logs run events. The returned
// close function releases the transition store.
func NewFromConfig(c *config.Config, logOut io.Writer) (*Runner, func() error, error) {
	cfg := FromConfig(c)
	logger := logging.Setup(logOut, c.Logging.Level, c.Logging.Format)
	noop := func() error { return nil }

	bus := events.NewEventBus(logger)
	sub := subscribers.NewLoggerSubscriber("run_logger", logger, zerolog.DebugLevel)
	sub.SetEventFilter([]string{
		events.TypeTrainingCompleted,
		events.TypeEvaluationCompleted,
	})
	bus.Subscribe(sub)

	opts := []Option{WithPublisher(bus)}

	if c.Persistence.MappingPath != "" {
		enc, err := encoding.NewEncoder(cfg.Size, cfg.Mines)
		if err != nil {
			return nil, noop, err
		}
		store, err := encoding.LoadOrGenerate(c.Persistence.MappingPath, enc, cfg.Mines, c.Persistence.MappingMaxStates, logger)
		if err != nil {
			return nil, noop, err
		}
		opts = append(opts, WithIndexer(store))
	}

	closeFn := noop
	if c.Experience.Enabled {
		layer, err := experience.NewPersistenceLayer(c.Experience.Persistence, logger)
		if err != nil {
			return nil, noop, err
		}
		opts = append(opts, WithPersistence(layer))
		closeFn = layer.Close
	}

	runner, err := NewRunner(cfg, logger, opts...)
	if err != nil {
		return nil, noop, errors.Join(err, closeFn())
	}
	return runner, closeFn, nil
}
