package encoding

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSmallEncoder(t *testing.T) *Encoder {
	t.Helper()
	enc, err := NewEncoder(2, 1)
	require.NoError(t, err)
	return enc
}

func TestGenerateMapping_AgreesWithEncoder(t *testing.T) {
	enc := newSmallEncoder(t)
	store, err := GenerateMapping(enc, 1, DefaultMappingMaxStates)
	require.NoError(t, err)
	assert.Equal(t, enc.NumStates(), store.NumStates())

	for idx := 0; idx < enc.NumStates(); idx++ {
		obs, err := enc.Decode(idx)
		require.NoError(t, err)
		got, err := store.Index(obs)
		require.NoError(t, err)
		assert.Equal(t, idx, got)
	}
}

func TestGenerateMapping_RespectsLimit(t *testing.T) {
	enc := newSmallEncoder(t)
	_, err := GenerateMapping(enc, 1, 10)
	assert.ErrorIs(t, err, core.ErrInvalidConfiguration)
}

func TestLoadOrGenerate(t *testing.T) {
	enc := newSmallEncoder(t)
	path := filepath.Join(t.TempDir(), "mapping.json")

	store, err := LoadOrGenerate(path, enc, 1, DefaultMappingMaxStates, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 256, store.NumStates())
	_, err = os.Stat(path)
	require.NoError(t, err, "mapping should be written on first use")

	reloaded, err := LoadOrGenerate(path, enc, 1, DefaultMappingMaxStates, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, store.mapping, reloaded.mapping)
}

func TestLoadMapping_Corruption(t *testing.T) {
	enc := newSmallEncoder(t)
	good, err := GenerateMapping(enc, 1, DefaultMappingMaxStates)
	require.NoError(t, err)

	write := func(t *testing.T, record mappingRecord) string {
		t.Helper()
		data, err := json.Marshal(record)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "mapping.json")
		require.NoError(t, os.WriteFile(path, data, 0644))
		return path
	}

	t.Run("malformed json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mapping.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
		_, err := LoadOrGenerate(path, enc, 1, DefaultMappingMaxStates, zerolog.Nop())
		assert.ErrorIs(t, err, core.ErrCacheCorruption)
	})

	t.Run("wrong board size", func(t *testing.T) {
		path := write(t, mappingRecord{Size: 3, Mines: 1, Mapping: good.mapping})
		_, err := LoadMapping(path, enc, 1)
		assert.ErrorIs(t, err, core.ErrCacheCorruption)
	})

	t.Run("missing entries", func(t *testing.T) {
		partial := map[string]int{}
		for k, v := range good.mapping {
			if v < 100 {
				partial[k] = v
			}
		}
		path := write(t, mappingRecord{Size: 2, Mines: 1, Mapping: partial})
		_, err := LoadMapping(path, enc, 1)
		assert.ErrorIs(t, err, core.ErrCacheCorruption)
	})

	t.Run("duplicate index", func(t *testing.T) {
		dup := make(map[string]int, len(good.mapping))
		for k, v := range good.mapping {
			dup[k] = v
		}
		covered := Observation{SymbolCovered, SymbolCovered, SymbolCovered, SymbolCovered}.LegacyKey()
		mine := Observation{SymbolMine, SymbolCovered, SymbolCovered, SymbolCovered}.LegacyKey()
		dup[mine] = dup[covered]
		path := write(t, mappingRecord{Size: 2, Mines: 1, Mapping: dup})
		_, err := LoadMapping(path, enc, 1)
		assert.ErrorIs(t, err, core.ErrCacheCorruption)
	})
}

func TestMappingStore_LookupMissingKey(t *testing.T) {
	store := &MappingStore{size: 2, mines: 1, mapping: map[string]int{"-2,-2,-2,-2": 0}}

	_, err := store.Lookup(Observation{SymbolMine, SymbolCovered, SymbolCovered, SymbolCovered})
	assert.ErrorIs(t, err, core.ErrCacheCorruption)

	idx, err := store.Lookup(Observation{SymbolCovered, SymbolCovered, SymbolCovered, SymbolCovered})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}
