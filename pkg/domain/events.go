package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepStart  EventType = "step_start"
	EventStepDone   EventType = "step_done"
	EventStepFailed EventType = "step_failed"
)

// StepEvent describes a transition of one step.
type StepEvent struct {
	Timestamp time.Time     `json:"timestamp"`
	Type      EventType     `json:"type"`
	Step      StepName      `json:"step"`
	Method    Method        `json:"method"`
	Status    int           `json:"status,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`

	// Issued is false when the step failed before its request was sent.
	Issued bool `json:"issued"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
type LifecycleHooks struct {
	OnStepStart  func(context.Context, *StepEvent)
	OnStepDone   func(context.Context, *StepEvent)
	OnStepFailed func(context.Context, *StepEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepStart:  chain(h.OnStepStart, other.OnStepStart),
		OnStepDone:   chain(h.OnStepDone, other.OnStepDone),
		OnStepFailed: chain(h.OnStepFailed, other.OnStepFailed),
	}
}

func chain(a, b func(context.Context, *StepEvent)) func(context.Context, *StepEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *StepEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
