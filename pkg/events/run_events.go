package events

import "time"

// Topics published by the coordinator.
const (
	TopicRunStarted       = "optimization.started"
	TopicRunFinished      = "optimization.finished"
	TopicThresholdCrossed = "threshold.crossed"
)

// RunStartedEvent is published when a run has been registered as pending.
type RunStartedEvent struct {
	RunID     string
	Label     string
	Strategy  string
	MaxTokens int
	Blocks    int
	StartedAt time.Time
}

func (e RunStartedEvent) Topic() string {
	return TopicRunStarted
}

// RunFinishedEvent is published once a run reaches a terminal status.
type RunFinishedEvent struct {
	RunID            string
	Label            string
	Status           string
	ErrorMessage     string
	CompressionRatio float64
	BlocksKept       int
	Duration         time.Duration
}

func (e RunFinishedEvent) Topic() string {
	return TopicRunFinished
}

// ThresholdCrossedEvent is published when a watched usage value reaches its threshold.
type ThresholdCrossedEvent struct {
	Usage         float64
	Threshold     float64
	PressureLevel string
	At            time.Time
}

func (e ThresholdCrossedEvent) Topic() string {
	return TopicThresholdCrossed
}
