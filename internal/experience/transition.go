package experience

import (
	"time"
)

// Transition is one (s, a, r, s', done) step observed during training
type Transition struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	Episode     int       `json:"episode"`
	Step        int       `json:"step"`
	State       int       `json:"state"`
	Action      int       `json:"action"`
	Reward      float64   `json:"reward"`
	NextState   int       `json:"next_state"`
	Done        bool      `json:"done"`
	CollectedAt time.Time `json:"collected_at"`
}

// Collector receives every transition the trainer applies to its Q-table
type Collector interface {
	OnTransition(t Transition)
}
