package runner

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// JSONEvent is one line of the NDJSON stream.
type JSONEvent struct {
	Time    time.Time `json:"time"`
	Kind    string    `json:"kind"`
	Target  string    `json:"target"`
	Value   string    `json:"value,omitempty"`
	Enabled *bool     `json:"enabled,omitempty"`
}

// JSONView implements ports.View for structured JSON-Lines output.
type JSONView struct {
	mu      sync.Mutex
	Encoder *json.Encoder
	now     func() time.Time
}

// NewJSONView creates a view emitting to w.
func NewJSONView(w io.Writer) *JSONView {
	if w == nil {
		w = os.Stdout
	}
	return &JSONView{
		Encoder: json.NewEncoder(w),
		now:     time.Now,
	}
}

func (v *JSONView) emit(e JSONEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	e.Time = v.now()
	_ = v.Encoder.Encode(e)
}

func (v *JSONView) SetEnabled(control string, enabled bool) {
	v.emit(JSONEvent{Kind: "enabled", Target: control, Enabled: &enabled})
}

func (v *JSONView) SetText(area, text string) {
	v.emit(JSONEvent{Kind: "text", Target: area, Value: text})
}

func (v *JSONView) SetLink(area, url string) {
	v.emit(JSONEvent{Kind: "link", Target: area, Value: url})
}

func (v *JSONView) Reveal(panel string) {
	v.emit(JSONEvent{Kind: "reveal", Target: panel})
}
