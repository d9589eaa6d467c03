package memory

import (
	"sync"
)

// MutationKind classifies a recorded view mutation.
type MutationKind string

const (
	MutationEnable  MutationKind = "enable"
	MutationDisable MutationKind = "disable"
	MutationText    MutationKind = "text"
	MutationLink    MutationKind = "link"
	MutationReveal  MutationKind = "reveal"
)

// Mutation is one recorded call on the View.
type Mutation struct {
	Kind   MutationKind
	Target string
	Value  string
}

// View implements ports.View by recording every mutation in order.
// It stands in for the browser DOM in tests and in the control server.
type View struct {
	mu        sync.RWMutex
	log       []Mutation
	enabled   map[string]bool
	texts     map[string]string
	links     map[string]string
	revealed  map[string]bool
	listeners []func(Mutation)
}

// NewView creates an empty recording view.
func NewView() *View {
	return &View{
		enabled:  make(map[string]bool),
		texts:    make(map[string]string),
		links:    make(map[string]string),
		revealed: make(map[string]bool),
	}
}

// OnMutation registers fn to be called after every mutation.
func (v *View) OnMutation(fn func(Mutation)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

func (v *View) record(m Mutation) {
	v.log = append(v.log, m)
	listeners := v.listeners
	v.mu.Unlock()
	for _, fn := range listeners {
		fn(m)
	}
}

func (v *View) SetEnabled(control string, enabled bool) {
	v.mu.Lock()
	v.enabled[control] = enabled
	kind := MutationDisable
	if enabled {
		kind = MutationEnable
	}
	v.record(Mutation{Kind: kind, Target: control})
}

func (v *View) SetText(area, text string) {
	v.mu.Lock()
	v.texts[area] = text
	v.record(Mutation{Kind: MutationText, Target: area, Value: text})
}

func (v *View) SetLink(area, url string) {
	v.mu.Lock()
	v.links[area] = url
	v.record(Mutation{Kind: MutationLink, Target: area, Value: url})
}

func (v *View) Reveal(panel string) {
	v.mu.Lock()
	v.revealed[panel] = true
	v.record(Mutation{Kind: MutationReveal, Target: panel})
}

// Enabled reports the last known state of a control.
func (v *View) Enabled(control string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.enabled[control]
}

// Text returns the content of a display area.
func (v *View) Text(area string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.texts[area]
}

// Link returns the verification link of a display area.
func (v *View) Link(area string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.links[area]
}

// Revealed reports whether a panel has been shown.
func (v *View) Revealed(panel string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.revealed[panel]
}

// Mutations returns a copy of the recorded log.
func (v *View) Mutations() []Mutation {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]Mutation, len(v.log))
	copy(out, v.log)
	return out
}

// Count returns how many mutations of kind hit target.
func (v *View) Count(kind MutationKind, target string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	n := 0
	for _, m := range v.log {
		if m.Kind == kind && m.Target == target {
			n++
		}
	}
	return n
}

// Reset clears the log but keeps the current element state.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.log = nil
}
