package subscribers

import (
	"encoding/json"

	"github.com/mitchelldurbincs/MinesweeperRL/internal/game/events"
	"github.com/rs/zerolog"
)

// LoggerSubscriber logs events to structured logs
type LoggerSubscriber struct {
	id              string
	logger          zerolog.Logger
	logLevel        zerolog.Level
	eventTypeFilter map[string]bool // If non-nil, only log these event types
	devMode         bool            // If true, log full event details
}

// NewLoggerSubscriber creates a new logger subscriber
func NewLoggerSubscriber(id string, logger zerolog.Logger, logLevel zerolog.Level) *LoggerSubscriber {
	return &LoggerSubscriber{
		id:       id,
		logger:   logger.With().Str("subscriber", "event_logger").Logger(),
		logLevel: logLevel,
	}
}

// ID returns the subscriber's unique identifier
func (ls *LoggerSubscriber) ID() string {
	return ls.id
}

// SetEventFilter sets which event types to log (nil means log all)
func (ls *LoggerSubscriber) SetEventFilter(eventTypes []string) {
	if len(eventTypes) == 0 {
		ls.eventTypeFilter = nil
		return
	}

	ls.eventTypeFilter = make(map[string]bool)
	for _, eventType := range eventTypes {
		ls.eventTypeFilter[eventType] = true
	}
}

// SetDevMode enables or disables development mode logging
func (ls *LoggerSubscriber) SetDevMode(enabled bool) {
	ls.devMode = enabled
}

// InterestedIn returns true if the subscriber wants to receive this event type
func (ls *LoggerSubscriber) InterestedIn(eventType string) bool {
	if ls.eventTypeFilter == nil {
		return true
	}
	return ls.eventTypeFilter[eventType]
}

// HandleEvent processes an event by logging it
func (ls *LoggerSubscriber) HandleEvent(event events.Event) {
	eventLogger := ls.logger.With().
		Str("event_type", event.Type()).
		Str("run_id", event.RunID()).
		Time("timestamp", event.Timestamp()).
		Logger()

	logEvent := eventLogger.WithLevel(ls.logLevel)
	if ls.logLevel == zerolog.NoLevel {
		logEvent = eventLogger.Info()
	}

	switch e := event.(type) {
	case *events.GameStartedEvent:
		logEvent.
			Int("episode", e.Episode).
			Int("size", e.Size).
			Int("mines", e.Mines)

	case *events.GameEndedEvent:
		logEvent.
			Int("episode", e.Episode).
			Str("outcome", e.Outcome).
			Int("steps", e.Steps).
			Int("squares_left", e.SquaresLeft)

	case *events.EpisodeFinishedEvent:
		logEvent.
			Int("episode", e.Episode).
			Bool("won", e.Won).
			Int("steps", e.Steps).
			Float64("total_reward", e.TotalReward).
			Float64("epsilon", e.Epsilon)

	case *events.TrainingCompletedEvent:
		logEvent.
			Int("episodes", e.Episodes).
			Int("wins", e.Wins).
			Float64("win_rate_percent", e.WinRatePercent).
			Dur("duration", e.Duration)

	case *events.EvaluationCompletedEvent:
		logEvent.
			Int("trials", e.Trials).
			Int("wins", e.Wins).
			Int("instant_losses", e.InstantLosses).
			Int("repeat_penalties", e.RepeatPenalties).
			Float64("win_rate_percent", e.WinRatePercent)
	}

	if ls.devMode {
		if jsonData, err := json.Marshal(event); err == nil {
			logEvent.RawJSON("event_data", jsonData)
		}
	}

	logEvent.Msg("Run event")
}
