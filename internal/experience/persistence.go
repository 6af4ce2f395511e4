package experience

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrPersistenceNotConfigured is returned when persistence operations are attempted without configuration
	ErrPersistenceNotConfigured = errors.New("persistence layer not configured")
	// ErrInvalidPersistenceType is returned when an unknown persistence type is specified
	ErrInvalidPersistenceType = errors.New("invalid persistence type")
)

// PersistenceType represents the type of persistence backend
type PersistenceType string

const (
	// PersistenceTypeNone disables persistence
	PersistenceTypeNone PersistenceType = "none"
	// PersistenceTypeFile writes JSON lines files
	PersistenceTypeFile PersistenceType = "file"
)

// PersistenceConfig contains configuration for the persistence layer
type PersistenceConfig struct {
	Type        PersistenceType `mapstructure:"type"`
	BaseDir     string          `mapstructure:"base_dir"`
	MaxFileSize int64           `mapstructure:"max_file_size"` // bytes per file, 0 disables rotation
}

// DefaultPersistenceConfig returns a default persistence configuration
func DefaultPersistenceConfig() PersistenceConfig {
	return PersistenceConfig{
		Type:        PersistenceTypeNone,
		BaseDir:     "experiences",
		MaxFileSize: 100 * 1024 * 1024,
	}
}

// PersistenceLayer defines the interface for persisting transitions
type PersistenceLayer interface {
	Write(ctx context.Context, transitions []Transition) error
	Read(ctx context.Context, runID string, limit int) ([]Transition, error)
	Close() error
	Stats() PersistenceStats
}

// PersistenceStats contains statistics about persistence operations
type PersistenceStats struct {
	TotalWritten  int64
	TotalRead     int64
	BytesWritten  int64
	WriteErrors   int64
	ReadErrors    int64
	LastWriteTime time.Time
}

// FilePersistence appends transitions as JSON lines, rotating to a new file
// once MaxFileSize is reached.
type FilePersistence struct {
	config PersistenceConfig
	logger zerolog.Logger

	mu    sync.RWMutex
	stats PersistenceStats

	currentFile *os.File
	currentSize int64
	fileIndex   int
}

// NewFilePersistence creates a new file-based persistence layer
func NewFilePersistence(config PersistenceConfig, logger zerolog.Logger) (*FilePersistence, error) {
	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	fp := &FilePersistence{
		config: config,
		logger: logger.With().Str("component", "file_persistence").Logger(),
	}

	if err := fp.rotateFile(); err != nil {
		return nil, err
	}
	return fp, nil
}

// Write persists a batch of transitions
func (fp *FilePersistence) Write(ctx context.Context, transitions []Transition) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.currentFile == nil {
		return ErrPersistenceNotConfigured
	}

	for _, t := range transitions {
		if err := ctx.Err(); err != nil {
			return err
		}

		if fp.config.MaxFileSize > 0 && fp.currentSize >= fp.config.MaxFileSize {
			if err := fp.rotateFile(); err != nil {
				fp.stats.WriteErrors++
				return fmt.Errorf("failed to rotate file: %w", err)
			}
		}

		data, err := MarshalTransition(t)
		if err != nil {
			fp.stats.WriteErrors++
			return fmt.Errorf("failed to marshal transition: %w", err)
		}

		n, err := fp.currentFile.Write(append(data, '\n'))
		if err != nil {
			fp.stats.WriteErrors++
			return fmt.Errorf("failed to write transition: %w", err)
		}

		fp.currentSize += int64(n)
		fp.stats.TotalWritten++
		fp.stats.BytesWritten += int64(n)
	}

	if err := fp.currentFile.Sync(); err != nil {
		fp.logger.Warn().Err(err).Msg("Failed to sync file")
	}
	fp.stats.LastWriteTime = time.Now()

	fp.logger.Debug().
		Int("batch_size", len(transitions)).
		Int64("file_size", fp.currentSize).
		Msg("Wrote transition batch to file")

	return nil
}

// Read returns up to limit transitions for runID across all files, in file
// order. An empty runID matches every run and a non-positive limit reads all.
func (fp *FilePersistence) Read(ctx context.Context, runID string, limit int) ([]Transition, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(fp.config.BaseDir, "transitions_*.jsonl"))
	if err != nil {
		fp.stats.ReadErrors++
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	sort.Strings(files)

	var transitions []Transition
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if limit > 0 && len(transitions) >= limit {
			break
		}

		remaining := 0
		if limit > 0 {
			remaining = limit - len(transitions)
		}
		batch, err := readFile(file, runID, remaining)
		if err != nil {
			fp.stats.ReadErrors++
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		transitions = append(transitions, batch...)
	}

	fp.stats.TotalRead += int64(len(transitions))
	return transitions, nil
}

func readFile(filename, runID string, limit int) ([]Transition, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var transitions []Transition
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if limit > 0 && len(transitions) >= limit {
			break
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		t, err := UnmarshalTransition(line)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal transition: %w", err)
		}
		if runID == "" || t.RunID == runID {
			transitions = append(transitions, t)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return transitions, nil
}

// rotateFile closes the current file and opens a new one
func (fp *FilePersistence) rotateFile() error {
	if fp.currentFile != nil {
		if err := fp.currentFile.Close(); err != nil {
			fp.logger.Warn().Err(err).Msg("Failed to close previous file")
		}
	}

	var filename string
	for {
		filename = filepath.Join(fp.config.BaseDir, fmt.Sprintf("transitions_%06d.jsonl", fp.fileIndex))
		fp.fileIndex++
		if _, err := os.Stat(filename); err != nil {
			break
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	fp.currentFile = file
	fp.currentSize = 0

	fp.logger.Debug().
		Str("filename", filename).
		Msg("Rotated to new transition file")

	return nil
}

// Close flushes and closes the current file
func (fp *FilePersistence) Close() error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.currentFile == nil {
		return nil
	}
	err := fp.currentFile.Close()
	fp.currentFile = nil
	return err
}

// Stats returns persistence statistics
func (fp *FilePersistence) Stats() PersistenceStats {
	fp.mu.RLock()
	defer fp.mu.RUnlock()
	return fp.stats
}

// NullPersistence is a no-op persistence layer
type NullPersistence struct{}

func (n *NullPersistence) Write(ctx context.Context, transitions []Transition) error {
	return nil
}

func (n *NullPersistence) Read(ctx context.Context, runID string, limit int) ([]Transition, error) {
	return nil, nil
}

func (n *NullPersistence) Close() error {
	return nil
}

func (n *NullPersistence) Stats() PersistenceStats {
	return PersistenceStats{}
}

// NewPersistenceLayer creates a persistence layer based on configuration
func NewPersistenceLayer(config PersistenceConfig, logger zerolog.Logger) (PersistenceLayer, error) {
	switch config.Type {
	case PersistenceTypeNone, "":
		return &NullPersistence{}, nil
	case PersistenceTypeFile:
		return NewFilePersistence(config, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPersistenceType, config.Type)
	}
}
