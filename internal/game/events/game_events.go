package events

import (
	"time"
)

// Event type constants
const (
	TypeGameStarted         = "game.started"
	TypeGameEnded           = "game.ended"
	TypeEpisodeFinished     = "episode.finished"
	TypeTrainingCompleted   = "training.completed"
	TypeEvaluationCompleted = "evaluation.completed"
)

// GameStartedEvent is published by the environment when a board is dealt
type GameStartedEvent struct {
	BaseEvent
	Episode int `json:"episode"`
	Size    int `json:"size"`
	Mines   int `json:"mines"`
}

func NewGameStartedEvent(runID string, episode, size, mines int) *GameStartedEvent {
	return &GameStartedEvent{
		BaseEvent: newBase(TypeGameStarted, runID),
		Episode:   episode,
		Size:      size,
		Mines:     mines,
	}
}

// GameEndedEvent is published by the environment when a board is won or lost
type GameEndedEvent struct {
	BaseEvent
	Episode     int    `json:"episode"`
	Outcome     string `json:"outcome"`
	Steps       int    `json:"steps"`
	SquaresLeft int    `json:"squares_left"`
}

func NewGameEndedEvent(runID string, episode int, outcome string, steps, squaresLeft int) *GameEndedEvent {
	return &GameEndedEvent{
		BaseEvent:   newBase(TypeGameEnded, runID),
		Episode:     episode,
		Outcome:     outcome,
		Steps:       steps,
		SquaresLeft: squaresLeft,
	}
}

// EpisodeFinishedEvent is published by the trainer after each learning episode
type EpisodeFinishedEvent struct {
	BaseEvent
	Episode     int     `json:"episode"`
	Won         bool    `json:"won"`
	Steps       int     `json:"steps"`
	TotalReward float64 `json:"total_reward"`
	Epsilon     float64 `json:"epsilon"`
}

func NewEpisodeFinishedEvent(runID string, episode int, won bool, steps int, totalReward, epsilon float64) *EpisodeFinishedEvent {
	return &EpisodeFinishedEvent{
		BaseEvent:   newBase(TypeEpisodeFinished, runID),
		Episode:     episode,
		Won:         won,
		Steps:       steps,
		TotalReward: totalReward,
		Epsilon:     epsilon,
	}
}

// TrainingCompletedEvent is published once Train returns successfully
type TrainingCompletedEvent struct {
	BaseEvent
	Episodes       int           `json:"episodes"`
	Wins           int           `json:"wins"`
	WinRatePercent float64       `json:"win_rate_percent"`
	Duration       time.Duration `json:"duration"`
}

func NewTrainingCompletedEvent(runID string, episodes, wins int, winRate float64, duration time.Duration) *TrainingCompletedEvent {
	return &TrainingCompletedEvent{
		BaseEvent:      newBase(TypeTrainingCompleted, runID),
		Episodes:       episodes,
		Wins:           wins,
		WinRatePercent: winRate,
		Duration:       duration,
	}
}

// EvaluationCompletedEvent is published once Evaluate returns successfully
type EvaluationCompletedEvent struct {
	BaseEvent
	Trials          int     `json:"trials"`
	Wins            int     `json:"wins"`
	InstantLosses   int     `json:"instant_losses"`
	RepeatPenalties int     `json:"repeat_penalties"`
	WinRatePercent  float64 `json:"win_rate_percent"`
}

func NewEvaluationCompletedEvent(runID string, trials, wins, instantLosses, repeatPenalties int, winRate float64) *EvaluationCompletedEvent {
	return &EvaluationCompletedEvent{
		BaseEvent:       newBase(TypeEvaluationCompleted, runID),
		Trials:          trials,
		Wins:            wins,
		InstantLosses:   instantLosses,
		RepeatPenalties: repeatPenalties,
		WinRatePercent:  winRate,
	}
}
