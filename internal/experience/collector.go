package experience

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SimpleCollector stamps incoming transitions with an ID and collection
// time and stores them in a Buffer.
type SimpleCollector struct {
	buffer *Buffer
	runID  string
	now    func() time.Time
	logger zerolog.Logger
}

var _ Collector = (*SimpleCollector)(nil)

// NewSimpleCollector creates a collector backed by a buffer of maxSize
// transitions.
func NewSimpleCollector(maxSize int, runID string, logger zerolog.Logger) *SimpleCollector {
	return &SimpleCollector{
		buffer: NewBuffer(maxSize, logger),
		runID:  runID,
		now:    time.Now,
		logger: logger.With().Str("component", "experience_collector").Str("run_id", runID).Logger(),
	}
}

// OnTransition implements Collector
func (c *SimpleCollector) OnTransition(t Transition) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.RunID == "" {
		t.RunID = c.runID
	}
	if t.CollectedAt.IsZero() {
		t.CollectedAt = c.now()
	}

	if err := c.buffer.Add(t); err != nil {
		c.logger.Warn().Err(err).Str("transition_id", t.ID).Msg("Dropping transition")
		return
	}

	c.logger.Debug().
		Str("transition_id", t.ID).
		Int("episode", t.Episode).
		Int("step", t.Step).
		Int("action", t.Action).
		Float64("reward", t.Reward).
		Bool("done", t.Done).
		Msg("Collected transition")
}

// Drain removes and returns every collected transition, oldest first
func (c *SimpleCollector) Drain() []Transition {
	transitions := c.buffer.GetAll()
	c.logger.Debug().Int("count", len(transitions)).Msg("Drained transitions")
	return transitions
}

// Stats reports how many transitions were kept and overwritten
func (c *SimpleCollector) Stats() BufferStats {
	return c.buffer.Stats()
}

// Close stops collection; later transitions are dropped
func (c *SimpleCollector) Close() error {
	return c.buffer.Close()
}
