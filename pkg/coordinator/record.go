package coordinator

import (
	"time"

	"github.com/kcaldas/blockfit/pkg/blocks"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusTimeout   Status = "timeout"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTimeout
}

// CompletionPredicate decides whether an outcome is good enough to finish a run.
type CompletionPredicate func(outcome *blocks.Outcome) bool

// Callback receives the record of a run that completed.
type Callback func(record Record)

// Request describes one selection to run through the coordinator.
type Request struct {
	Label             string
	Blocks            []blocks.Block
	MaxTokens         int
	Strategy          blocks.Strategy
	PreserveStructure bool

	// Completion defaults to DefaultCompletion when nil.
	Completion CompletionPredicate
	Callback   Callback
	// Timeout bounds the completion wait and defaults to DefaultTimeout.
	Timeout time.Duration
}

// Record tracks one run from registration to its terminal status.
type Record struct {
	RunID        string          `json:"run_id"`
	Label        string          `json:"label"`
	Status       Status          `json:"status"`
	Outcome      *blocks.Outcome `json:"outcome,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      *time.Time      `json:"end_time,omitempty"`
}

// Duration is the time between start and end, or zero while pending.
func (r Record) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// clone copies the record so callers never share the registry's pointers.
func (r Record) clone() Record {
	c := r
	if r.EndTime != nil {
		end := *r.EndTime
		c.EndTime = &end
	}
	if r.Outcome != nil {
		o := *r.Outcome
		o.Kept = append([]blocks.Block(nil), r.Outcome.Kept...)
		c.Outcome = &o
	}
	return c
}
