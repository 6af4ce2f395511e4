package encoding

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	"github.com/mitchelldurbincs/MinesweeperRL/internal/storage"
	"github.com/rs/zerolog"
)

// DefaultMappingMaxStates caps how many states LoadOrGenerate will enumerate
const DefaultMappingMaxStates = 1 << 20

// mappingRecord is the on-disk layout of a persisted state mapping
type mappingRecord struct {
	Size    int            `json:"size"`
	Mines   int            `json:"mines"`
	Mapping map[string]int `json:"mapping"`
}

// MappingStore is a precomputed observation→index table kept for
// compatibility with mapping files produced by earlier tooling. It is
// read-only once loaded. The closed-form Encoder needs no such file.
type MappingStore struct {
	size    int
	mines   int
	mapping map[string]int
}

var _ StateIndexer = (*MappingStore)(nil)

// GenerateMapping enumerates every observation the encoder can represent.
// It refuses to enumerate more than maxStates entries.
func GenerateMapping(enc *Encoder, mines, maxStates int) (*MappingStore, error) {
	if enc.NumStates() > maxStates {
		return nil, fmt.Errorf("%w: %d states exceed mapping limit %d",
			core.ErrInvalidConfiguration, enc.NumStates(), maxStates)
	}

	mapping := make(map[string]int, enc.NumStates())
	for idx := 0; idx < enc.NumStates(); idx++ {
		obs, err := enc.Decode(idx)
		if err != nil {
			return nil, err
		}
		mapping[obs.LegacyKey()] = idx
	}

	return &MappingStore{size: enc.Size(), mines: mines, mapping: mapping}, nil
}

// LoadOrGenerate loads the mapping at path. A missing file is generated and
// written atomically. A file that exists but is malformed or was built for a
// different board fails with core.ErrCacheCorruption.
func LoadOrGenerate(path string, enc *Encoder, mines, maxStates int, logger zerolog.Logger) (*MappingStore, error) {
	logger = logger.With().Str("component", "state_mapping").Str("path", path).Logger()

	store, err := LoadMapping(path, enc, mines)
	if err == nil {
		logger.Info().Int("states", store.NumStates()).Msg("Loaded state mapping")
		return store, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	logger.Info().Int("states", enc.NumStates()).Msg("State mapping not found, generating")
	store, err = GenerateMapping(enc, mines, maxStates)
	if err != nil {
		return nil, err
	}
	if err := store.Save(path); err != nil {
		return nil, err
	}
	return store, nil
}

// LoadMapping reads and validates a mapping file
func LoadMapping(path string, enc *Encoder, mines int) (*MappingStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state mapping: %w", err)
	}

	var record mappingRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCacheCorruption, err)
	}
	if record.Size != enc.Size() || record.Mines != mines {
		return nil, fmt.Errorf("%w: file is for %dx%d with %d mines, want %dx%d with %d",
			core.ErrCacheCorruption, record.Size, record.Size, record.Mines, enc.Size(), enc.Size(), mines)
	}
	if len(record.Mapping) != enc.NumStates() {
		return nil, fmt.Errorf("%w: %d entries, want %d",
			core.ErrCacheCorruption, len(record.Mapping), enc.NumStates())
	}

	seen := make([]bool, enc.NumStates())
	for key, idx := range record.Mapping {
		if idx < 0 || idx >= enc.NumStates() || seen[idx] {
			return nil, fmt.Errorf("%w: key %q has invalid or duplicate index %d",
				core.ErrCacheCorruption, key, idx)
		}
		seen[idx] = true
	}

	return &MappingStore{size: record.Size, mines: record.Mines, mapping: record.Mapping}, nil
}

// Save writes the mapping to a temporary file and renames it into place so a
// reader never sees a partial record.
func (s *MappingStore) Save(path string) error {
	data, err := json.Marshal(mappingRecord{Size: s.size, Mines: s.mines, Mapping: s.mapping})
	if err != nil {
		return fmt.Errorf("failed to marshal state mapping: %w", err)
	}
	return storage.WriteFileAtomic(path, data)
}

// Lookup returns the index stored for obs, or core.ErrCacheCorruption if
// the key is absent.
func (s *MappingStore) Lookup(obs Observation) (int, error) {
	key := obs.LegacyKey()
	idx, ok := s.mapping[key]
	if !ok {
		return 0, fmt.Errorf("%w: no entry for %q", core.ErrCacheCorruption, key)
	}
	return idx, nil
}

// Index implements StateIndexer
func (s *MappingStore) Index(obs Observation) (int, error) {
	return s.Lookup(obs)
}

func (s *MappingStore) NumStates() int { return len(s.mapping) }
