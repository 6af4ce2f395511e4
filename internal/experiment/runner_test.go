package experiment

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/config"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/experience"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/encoding"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/events"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/qlearning"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	return Config{
		Size:     2,
		Mines:    1,
		Trainer:  qlearning.TrainerConfig{Alpha: 0.3, Gamma: 0.9, Epsilon: 0.2},
		Epochs:   300,
		Trials:   50,
		Runs:     4,
		Workers:  2,
		BaseSeed: 100,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"too many mines", func(c *Config) { c.Mines = 4 }},
		{"bad trainer", func(c *Config) { c.Trainer.Alpha = 0 }},
		{"zero epochs", func(c *Config) { c.Epochs = 0 }},
		{"zero trials", func(c *Config) { c.Trials = 0 }},
		{"zero runs", func(c *Config) { c.Runs = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"table over memory cap", func(c *Config) { c.Size = 5; c.Mines = 1 }},
		{"negative buffer", func(c *Config) { c.BufferCapacity = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			tt.mutate(&cfg)
			_, err := NewRunner(cfg, testutil.NopLogger())
			assert.True(t, errors.Is(err, core.ErrInvalidConfiguration), "got %v", err)
		})
	}
}

func TestRunnerRunsEverySeed(t *testing.T) {
	runner, err := NewRunner(smallConfig(), testutil.NopLogger())
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Runs, 4)

	ids := make(map[string]bool)
	var trainSum float64
	for i, r := range summary.Runs {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, int64(100+i), r.Seed)
		assert.Equal(t, 300, r.Train.Episodes)
		assert.Equal(t, 50, r.Evaluation.Trials)
		assert.Greater(t, r.VisitedStates, 0)
		assert.Zero(t, r.Transitions)
		assert.Empty(t, r.Checkpoint)
		ids[r.RunID] = true
		trainSum += r.TrainWinRate
	}
	assert.Len(t, ids, 4)
	assert.InDelta(t, trainSum/4, summary.MeanTrainWinRate, 1e-9)
	assert.GreaterOrEqual(t, summary.StdTrainWinRate, 0.0)
}

func TestRunnerDeterministicAcrossWorkerCounts(t *testing.T) {
	run := func(workers int) *Summary {
		cfg := smallConfig()
		cfg.Workers = workers
		runner, err := NewRunner(cfg, testutil.NopLogger())
		require.NoError(t, err)
		summary, err := runner.Run(context.Background())
		require.NoError(t, err)
		return summary
	}

	serial, parallel := run(1), run(4)
	for i := range serial.Runs {
		assert.Equal(t, serial.Runs[i].TrainWinRate, parallel.Runs[i].TrainWinRate, "run %d", i)
		assert.Equal(t, serial.Runs[i].Train, parallel.Runs[i].Train, "run %d", i)
		assert.Equal(t, serial.Runs[i].Evaluation, parallel.Runs[i].Evaluation, "run %d", i)
	}
	assert.Equal(t, serial.MeanEvalWinRate, parallel.MeanEvalWinRate)
}

func TestRunnerCheckpointsAndTransitions(t *testing.T) {
	dir := t.TempDir()
	cfg := smallConfig()
	cfg.Runs = 2
	cfg.CheckpointDir = filepath.Join(dir, "checkpoints")
	cfg.BufferCapacity = 100000

	layer, err := experience.NewFilePersistence(experience.PersistenceConfig{
		Type:    experience.PersistenceTypeFile,
		BaseDir: filepath.Join(dir, "transitions"),
	}, testutil.NopLogger())
	require.NoError(t, err)
	defer layer.Close()

	runner, err := NewRunner(cfg, testutil.NopLogger(), WithPersistence(layer))
	require.NoError(t, err)
	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	for _, r := range summary.Runs {
		require.NotEmpty(t, r.Checkpoint)
		q, err := qlearning.LoadQTable(r.Checkpoint)
		require.NoError(t, err)
		assert.Equal(t, r.VisitedStates, q.VisitedStates())

		assert.Equal(t, r.Train.Steps, r.Transitions)
		stored, err := layer.Read(context.Background(), r.RunID, 0)
		require.NoError(t, err)
		assert.Len(t, stored, r.Transitions)
	}
	assert.Equal(t, int64(summary.Runs[0].Transitions+summary.Runs[1].Transitions), layer.Stats().TotalWritten)
}

func TestRunnerWithMappingIndexer(t *testing.T) {
	cfg := smallConfig()
	cfg.Runs = 1

	enc, err := encoding.NewEncoder(cfg.Size, cfg.Mines)
	require.NoError(t, err)
	store, err := encoding.GenerateMapping(enc, cfg.Mines, encoding.DefaultMappingMaxStates)
	require.NoError(t, err)

	plain, err := NewRunner(cfg, testutil.NopLogger())
	require.NoError(t, err)
	mapped, err := NewRunner(cfg, testutil.NopLogger(), WithIndexer(store))
	require.NoError(t, err)

	a, err := plain.Run(context.Background())
	require.NoError(t, err)
	b, err := mapped.Run(context.Background())
	require.NoError(t, err)

	// The mapping reproduces the closed-form indices, so learning is identical
	assert.Equal(t, a.Runs[0].Train, b.Runs[0].Train)
	assert.Equal(t, a.Runs[0].Evaluation, b.Runs[0].Evaluation)
}

func TestRunnerPublishesEvents(t *testing.T) {
	cfg := smallConfig()
	bus := events.NewEventBus(testutil.NopLogger())

	var trainings, evaluations, episodes atomic.Int64
	bus.SubscribeFunc(events.TypeTrainingCompleted, func(events.Event) { trainings.Add(1) })
	bus.SubscribeFunc(events.TypeEvaluationCompleted, func(events.Event) { evaluations.Add(1) })
	bus.SubscribeFunc(events.TypeEpisodeFinished, func(events.Event) { episodes.Add(1) })

	runner, err := NewRunner(cfg, testutil.NopLogger(), WithPublisher(bus))
	require.NoError(t, err)
	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(cfg.Runs), trainings.Load())
	assert.Equal(t, int64(cfg.Runs), evaluations.Load())
	assert.Equal(t, int64(cfg.Runs*cfg.Epochs), episodes.Load())
}

func TestRunnerCancelled(t *testing.T) {
	runner, err := NewRunner(smallConfig(), testutil.NopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = runner.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte(`
environment:
  size: 2
  mines: 1
training:
  epochs: 200
evaluation:
  trials: 20
experiment:
  runs: 2
  workers: 2
  base_seed: 5
persistence:
  checkpoint_dir: `+filepath.Join(dir, "ckpt")+`
  mapping_path: `+filepath.Join(dir, "mapping.json")+`
logging:
  level: info
  format: json
experience:
  enabled: true
  buffer_capacity: 50
  persistence:
    type: file
    base_dir: `+filepath.Join(dir, "transitions")+`
`), 0644))
	require.NoError(t, config.Init(configFile))
	prevLevel := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prevLevel)

	c := config.Get()
	cfg := FromConfig(c)
	assert.Equal(t, 2, cfg.Size)
	assert.Equal(t, 200, cfg.Epochs)
	assert.Equal(t, 0.3, cfg.Trainer.Alpha)
	assert.Equal(t, int64(5), cfg.BaseSeed)
	assert.Equal(t, 50, cfg.BufferCapacity)

	var logs bytes.Buffer
	runner, closeFn, err := NewFromConfig(c, &logs)
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, closeFn())

	require.Len(t, summary.Runs, 2)
	for _, r := range summary.Runs {
		assert.Equal(t, 50, r.Transitions, "buffer keeps the latest transitions only")
		assert.FileExists(t, r.Checkpoint)
	}
	assert.FileExists(t, filepath.Join(dir, "mapping.json"))

	// Logging follows the config: json lines at info
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	assert.Contains(t, logs.String(), `"message":"Experiment completed"`)
	assert.NotContains(t, logs.String(), `"level":"debug"`)

	files, err := filepath.Glob(filepath.Join(dir, "transitions", "transitions_*.jsonl"))
	require.NoError(t, err)
	assert.NotEmpty(t, files)
}
