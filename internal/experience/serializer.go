package experience

import (
	"fmt"
	"strconv"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// State indices can exceed 2^53, so like proto3 int64 fields they are
// carried as decimal strings.

// ToProto converts a transition into a protobuf Struct
func ToProto(t Transition) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"id":           t.ID,
		"run_id":       t.RunID,
		"episode":      t.Episode,
		"step":         t.Step,
		"state":        strconv.Itoa(t.State),
		"action":       t.Action,
		"reward":       t.Reward,
		"next_state":   strconv.Itoa(t.NextState),
		"done":         t.Done,
		"collected_at": t.CollectedAt.UTC().Format(time.RFC3339Nano),
	})
}

// FromProto is the inverse of ToProto
func FromProto(s *structpb.Struct) (Transition, error) {
	fields := s.GetFields()
	for _, key := range []string{"run_id", "episode", "step", "state", "action", "reward", "next_state", "done"} {
		if _, ok := fields[key]; !ok {
			return Transition{}, fmt.Errorf("transition missing field %q", key)
		}
	}

	state, err := strconv.Atoi(fields["state"].GetStringValue())
	if err != nil {
		return Transition{}, fmt.Errorf("invalid state: %w", err)
	}
	next, err := strconv.Atoi(fields["next_state"].GetStringValue())
	if err != nil {
		return Transition{}, fmt.Errorf("invalid next_state: %w", err)
	}

	t := Transition{
		ID:        fields["id"].GetStringValue(),
		RunID:     fields["run_id"].GetStringValue(),
		Episode:   int(fields["episode"].GetNumberValue()),
		Step:      int(fields["step"].GetNumberValue()),
		State:     state,
		Action:    int(fields["action"].GetNumberValue()),
		Reward:    fields["reward"].GetNumberValue(),
		NextState: next,
		Done:      fields["done"].GetBoolValue(),
	}
	if ts := fields["collected_at"].GetStringValue(); ts != "" {
		if t.CollectedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return Transition{}, fmt.Errorf("invalid collected_at: %w", err)
		}
	}
	return t, nil
}

// MarshalTransition encodes t as a single-line protojson object
func MarshalTransition(t Transition) ([]byte, error) {
	s, err := ToProto(t)
	if err != nil {
		return nil, err
	}
	return protojson.MarshalOptions{Multiline: false}.Marshal(s)
}

// UnmarshalTransition decodes one line written by MarshalTransition
func UnmarshalTransition(data []byte) (Transition, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(data, &s); err != nil {
		return Transition{}, err
	}
	return FromProto(&s)
}
