package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/experience"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/encoding"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/mapgen"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/qlearning"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment EnvironmentConfig `mapstructure:"environment"`
	Rewards     game.RewardConfig `mapstructure:"rewards"`
	Training    TrainingConfig    `mapstructure:"training"`
	Evaluation  EvaluationConfig  `mapstructure:"evaluation"`
	Experiment  ExperimentConfig  `mapstructure:"experiment"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Experience  ExperienceConfig  `mapstructure:"experience"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// EnvironmentConfig holds board settings
type EnvironmentConfig struct {
	Size  int `mapstructure:"size"`
	Mines int `mapstructure:"mines"`
}

// TrainingConfig holds the learner hyperparameters and episode count
type TrainingConfig struct {
	qlearning.TrainerConfig `mapstructure:",squash"`
	Epochs                  int `mapstructure:"epochs"`
	ProgressInterval        int `mapstructure:"progress_interval"`
}

// EvaluationConfig holds greedy evaluation settings
type EvaluationConfig struct {
	qlearning.EvaluatorConfig `mapstructure:",squash"`
	Trials                    int `mapstructure:"trials"`
}

// ExperimentConfig controls how many independent seeds are run
type ExperimentConfig struct {
	Runs     int   `mapstructure:"runs"`
	Workers  int   `mapstructure:"workers"`
	BaseSeed int64 `mapstructure:"base_seed"`
}

// PersistenceConfig holds on-disk artifact locations. Empty paths disable
// the artifact.
type PersistenceConfig struct {
	CheckpointDir    string `mapstructure:"checkpoint_dir"`
	MappingPath      string `mapstructure:"mapping_path"`
	MappingMaxStates int    `mapstructure:"mapping_max_states"`
}

// ExperienceConfig holds transition recording settings
type ExperienceConfig struct {
	Enabled        bool                         `mapstructure:"enabled"`
	BufferCapacity int                          `mapstructure:"buffer_capacity"`
	Persistence    experience.PersistenceConfig `mapstructure:"persistence"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var (
	// Global config instance
	cfg *Config
	v   *viper.Viper
	mu  sync.RWMutex
)

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	// Environment defaults
	v.SetDefault("environment.size", 3)
	v.SetDefault("environment.mines", 1)

	// Zero rewards scale with the board size
	v.SetDefault("rewards.wasted_move", 0.0)
	v.SetDefault("rewards.mine_penalty", 0.0)
	v.SetDefault("rewards.safe_reveal", 0.0)
	v.SetDefault("rewards.win_bonus", 0.0)

	// Training defaults
	v.SetDefault("training.alpha", 0.3)
	v.SetDefault("training.gamma", 0.9)
	v.SetDefault("training.epsilon", 0.2)
	v.SetDefault("training.epsilon_decay", 0.0)
	v.SetDefault("training.epsilon_min", 0.0)
	v.SetDefault("training.exploration", qlearning.ExplorationEpsilonGreedy)
	v.SetDefault("training.temperature", 1.0)
	v.SetDefault("training.epochs", 100000)
	v.SetDefault("training.progress_interval", 0)

	// Evaluation defaults
	v.SetDefault("evaluation.trials", 1000)
	v.SetDefault("evaluation.repeat_penalty", 0.0)

	// Experiment defaults
	v.SetDefault("experiment.runs", 1)
	v.SetDefault("experiment.workers", 1)
	v.SetDefault("experiment.base_seed", 1)

	// Persistence defaults
	v.SetDefault("persistence.checkpoint_dir", "")
	v.SetDefault("persistence.mapping_path", "")
	v.SetDefault("persistence.mapping_max_states", encoding.DefaultMappingMaxStates)

	// Experience defaults
	persist := experience.DefaultPersistenceConfig()
	v.SetDefault("experience.enabled", false)
	v.SetDefault("experience.buffer_capacity", experience.DefaultBufferCapacity)
	v.SetDefault("experience.persistence.type", string(persist.Type))
	v.SetDefault("experience.persistence.base_dir", persist.BaseDir)
	v.SetDefault("experience.persistence.max_file_size", persist.MaxFileSize)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Init initializes the configuration
func Init(configPath string) error {
	nv := viper.New()

	// Set defaults before loading any config
	setViperDefaults(nv)

	// Set config file
	if configPath != "" {
		nv.SetConfigFile(configPath)
	} else {
		// Default config locations
		nv.SetConfigName("config")
		nv.SetConfigType("yaml")
		nv.AddConfigPath(".")
		nv.AddConfigPath("./config")
		nv.AddConfigPath("/etc/minesweeper-rl")
	}

	// Set environment variable prefix
	nv.SetEnvPrefix("MSRL")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	// Read config file
	if err := nv.ReadInConfig(); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults
	}

	c, err := decode(nv)
	if err != nil {
		return err
	}

	mu.Lock()
	v, cfg = nv, c
	mu.Unlock()
	return nil
}

// isNotFound matches both a failed search of the default locations and an
// explicit path that does not exist
func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

func decode(from *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := from.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// Get returns the global config instance
func Get() *Config {
	mu.RLock()
	c := cfg
	mu.RUnlock()
	if c == nil {
		// Initialize with defaults if not already initialized
		if err := Init(""); err != nil {
			panic("failed to initialize config with defaults: " + err.Error())
		}
		mu.RLock()
		c = cfg
		mu.RUnlock()
	}
	return c
}

// GetViper returns the viper instance for advanced usage
func GetViper() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()
	if v == nil {
		panic("config not initialized - call Init() first")
	}
	return v
}

// LoadEnvironmentConfig merges config.<env>.yaml over the loaded config
func LoadEnvironmentConfig(env string) error {
	if env == "" {
		return nil
	}

	envFile := fmt.Sprintf("config.%s.yaml", env)
	cur := GetViper()

	// Try to find environment-specific config
	cur.SetConfigFile(envFile)
	if err := cur.MergeInConfig(); err != nil {
		if !isNotFound(err) {
			return fmt.Errorf("error merging environment config %s: %w", envFile, err)
		}
	}

	// Re-decode with merged config
	c, err := decode(cur)
	if err != nil {
		return err
	}
	mu.Lock()
	cfg = c
	mu.Unlock()
	return nil
}

// Set allows runtime config updates. A value that fails validation is
// rolled back so later updates and reloads are not blocked by it.
func Set(key string, value interface{}) error {
	cur := GetViper()
	prev := cur.Get(key)
	cur.Set(key, value)
	c, err := decode(cur)
	if err != nil {
		cur.Set(key, prev)
		return err
	}
	mu.Lock()
	cfg = c
	mu.Unlock()
	return nil
}

// GetString gets a string value from config
func GetString(key string) string {
	return GetViper().GetString(key)
}

// GetInt gets an int value from config
func GetInt(key string) int {
	return GetViper().GetInt(key)
}

// GetBool gets a bool value from config
func GetBool(key string) bool {
	return GetViper().GetBool(key)
}

// GetFloat64 gets a float64 value from config
func GetFloat64(key string) float64 {
	return GetViper().GetFloat64(key)
}

// ConfigFilePath returns the path of the loaded config file
func ConfigFilePath() string {
	return GetViper().ConfigFileUsed()
}

// WatchConfig enables hot-reloading of the config file. onChange receives
// the reloaded config, or the error when the new file does not validate;
// an invalid file keeps the previous config in place.
func WatchConfig(onChange func(*Config, error)) {
	cur := GetViper()
	cur.OnConfigChange(func(e fsnotify.Event) {
		c, err := decode(cur)
		if err == nil {
			mu.Lock()
			cfg = c
			mu.Unlock()
		}
		if onChange != nil {
			onChange(c, err)
		}
	})
	cur.WatchConfig()
}

// Validate validates the configuration values
func Validate(c *Config) error {
	// Validate environment
	mapCfg := mapgen.MapConfig{Size: c.Environment.Size, Mines: c.Environment.Mines}
	if err := mapCfg.Validate(); err != nil {
		return err
	}
	enc, err := encoding.NewEncoder(c.Environment.Size, c.Environment.Mines)
	if err != nil {
		return err
	}
	if err := qlearning.CheckTableSize(enc.NumStates(), enc.Cells()); err != nil {
		return err
	}
	if c.Rewards != (game.RewardConfig{}) {
		if err := c.Rewards.Validate(); err != nil {
			return err
		}
	}

	// Validate learning settings
	if err := c.Training.TrainerConfig.Validate(); err != nil {
		return err
	}
	if c.Training.Epochs <= 0 {
		return fmt.Errorf("%w: training.epochs must be positive", core.ErrInvalidConfiguration)
	}
	if c.Training.ProgressInterval < 0 {
		return fmt.Errorf("%w: training.progress_interval must be non-negative", core.ErrInvalidConfiguration)
	}
	if c.Evaluation.Trials <= 0 {
		return fmt.Errorf("%w: evaluation.trials must be positive", core.ErrInvalidConfiguration)
	}
	if c.Evaluation.RepeatPenalty > 0 {
		return fmt.Errorf("%w: evaluation.repeat_penalty must not be positive", core.ErrInvalidConfiguration)
	}

	// Validate experiment settings
	if c.Experiment.Runs <= 0 {
		return fmt.Errorf("%w: experiment.runs must be positive", core.ErrInvalidConfiguration)
	}
	if c.Experiment.Workers <= 0 {
		return fmt.Errorf("%w: experiment.workers must be positive", core.ErrInvalidConfiguration)
	}

	// Validate persistence and experience
	if c.Persistence.MappingPath != "" && c.Persistence.MappingMaxStates <= 0 {
		return fmt.Errorf("%w: persistence.mapping_max_states must be positive", core.ErrInvalidConfiguration)
	}
	if c.Experience.Enabled && c.Experience.BufferCapacity <= 0 {
		return fmt.Errorf("%w: experience.buffer_capacity must be positive", core.ErrInvalidConfiguration)
	}
	switch c.Experience.Persistence.Type {
	case experience.PersistenceTypeNone, experience.PersistenceTypeFile, "":
	default:
		return fmt.Errorf("%w: experience.persistence.type %q", core.ErrInvalidConfiguration, c.Experience.Persistence.Type)
	}

	// Validate logging
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level)); err != nil {
		return fmt.Errorf("%w: logging.level %q", core.ErrInvalidConfiguration, c.Logging.Level)
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("%w: logging.format must be console or json", core.ErrInvalidConfiguration)
	}

	return nil
}
