package experience

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalTransition_RoundTrip(t *testing.T) {
	tr := createTestTransition(4)
	tr.CollectedAt = time.Date(2024, 3, 1, 12, 30, 0, 123456789, time.UTC)
	tr.Reward = -81
	tr.Done = true

	data, err := MarshalTransition(tr)
	require.NoError(t, err)
	assert.False(t, bytes.ContainsRune(data, '\n'), "one record per line")

	got, err := UnmarshalTransition(data)
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, tr.RunID, got.RunID)
	assert.Equal(t, tr.Episode, got.Episode)
	assert.Equal(t, tr.Step, got.Step)
	assert.Equal(t, tr.State, got.State)
	assert.Equal(t, tr.Action, got.Action)
	assert.Equal(t, tr.Reward, got.Reward)
	assert.Equal(t, tr.NextState, got.NextState)
	assert.True(t, got.Done)
	assert.True(t, tr.CollectedAt.Equal(got.CollectedAt))
}

func TestMarshalTransition_LargeStateIndex(t *testing.T) {
	tr := createTestTransition(1)
	tr.State = math.MaxInt64 - 1
	tr.NextState = 1<<53 + 1

	data, err := MarshalTransition(tr)
	require.NoError(t, err)
	got, err := UnmarshalTransition(data)
	require.NoError(t, err)
	assert.Equal(t, tr.State, got.State)
	assert.Equal(t, tr.NextState, got.NextState)
}

func TestUnmarshalTransition_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"missing fields", `{"run_id":"r"}`},
		{"bad state", `{"run_id":"r","episode":1,"step":1,"state":"x","action":0,"reward":0,"next_state":"0","done":false}`},
		{"bad timestamp", `{"run_id":"r","episode":1,"step":1,"state":"0","action":0,"reward":0,"next_state":"0","done":false,"collected_at":"yesterday"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalTransition([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
