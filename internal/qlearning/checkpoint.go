package qlearning

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/storage"
	"gonum.org/v1/gonum/mat"
)

// ErrCorruptCheckpoint is returned when a checkpoint file cannot be decoded
var ErrCorruptCheckpoint = errors.New("corrupt q-table checkpoint")

const (
	checkpointMagic   = "MSQT"
	checkpointVersion = uint32(1)
	headerSize        = 4 + 4 + 8 + 8
)

type checkpointHeader struct {
	Magic   [4]byte
	Version uint32
	States  uint64
	Moves   uint64
}

// MarshalBinary encodes the table as a short header followed by gonum's
// binary matrix encoding.
func (q *QTable) MarshalBinary() ([]byte, error) {
	body, err := q.values.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode q-table: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(body))
	header := checkpointHeader{Version: checkpointVersion, States: uint64(q.states), Moves: uint64(q.moves)}
	copy(header.Magic[:], checkpointMagic)
	if err := binary.Write(&buf, binary.LittleEndian, header); err != nil {
		return nil, err
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// UnmarshalQTable decodes data produced by MarshalBinary
func UnmarshalQTable(data []byte) (*QTable, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorruptCheckpoint, len(data))
	}

	var header checkpointHeader
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCheckpoint, err)
	}
	if string(header.Magic[:]) != checkpointMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorruptCheckpoint, header.Magic[:])
	}
	if header.Version != checkpointVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptCheckpoint, header.Version)
	}

	if header.States > MaxTableEntries || header.Moves > MaxTableEntries ||
		CheckTableSize(int(header.States), int(header.Moves)) != nil {
		return nil, fmt.Errorf("%w: table %dx%d out of range", ErrCorruptCheckpoint, header.States, header.Moves)
	}

	var values mat.Dense
	if err := values.UnmarshalBinary(data[headerSize:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCheckpoint, err)
	}
	rows, cols := values.Dims()
	if uint64(rows) != header.States || uint64(cols) != header.Moves {
		return nil, fmt.Errorf("%w: header says %dx%d, matrix is %dx%d",
			ErrCorruptCheckpoint, header.States, header.Moves, rows, cols)
	}

	return &QTable{states: rows, moves: cols, values: &values}, nil
}

// Save writes the table to path atomically
func (q *QTable) Save(path string) error {
	data, err := q.MarshalBinary()
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(path, data)
}

// LoadQTable reads a table written by Save
func LoadQTable(path string) (*QTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read q-table checkpoint: %w", err)
	}
	return UnmarshalQTable(data)
}
