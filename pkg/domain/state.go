package domain

import "time"

// Phase is the lifecycle of a single step.
type Phase string

const (
	PhaseIdle    Phase = "idle"    // Trigger enabled, nothing shown yet
	PhasePending Phase = "pending" // Trigger disabled, placeholder shown
	PhaseDone    Phase = "done"    // Result shown, panel visible
	PhaseFailed  Phase = "failed"  // Error shown, trigger enabled again
)

// StepState is the observable state of one step.
type StepState struct {
	Name     StepName `json:"name"`
	Phase    Phase    `json:"phase"`
	Enabled  bool     `json:"enabled"`
	Revealed bool     `json:"revealed"`
	Text     string   `json:"text,omitempty"`
	Link     string   `json:"link,omitempty"`
}

// Snapshot captures the state of the whole wizard at a point in time.
type Snapshot struct {
	Steps []StepState `json:"steps"`
	Taken time.Time   `json:"taken"`
}

// Step returns the state of the named step.
func (s Snapshot) Step(name StepName) (StepState, bool) {
	for _, st := range s.Steps {
		if st.Name == name {
			return st, true
		}
	}
	return StepState{}, false
}

// Outcome is the result of one step invocation.
type Outcome struct {
	Step     StepName      `json:"step"`
	Phase    Phase         `json:"phase"`
	Status   int           `json:"status,omitempty"`
	Text     string        `json:"text,omitempty"`
	Link     string        `json:"link,omitempty"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}
