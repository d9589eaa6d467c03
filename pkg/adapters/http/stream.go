package http

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Mutation is the wire form of a view change pushed to SSE subscribers.
type Mutation struct {
	Kind    string `json:"kind"`
	Target  string `json:"target"`
	Value   string `json:"value,omitempty"`
	Enabled *bool  `json:"enabled,omitempty"`
}

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan string]struct{}
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan string]struct{}),
	}
}

func (sm *StreamManager) Subscribe() (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

func (sm *StreamManager) Broadcast(msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			slog.Warn("SSE: Client buffer full, dropping message")
		}
	}
}

// Subscribers reports how many clients are connected.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// StreamView implements ports.View by broadcasting every mutation as JSON.
type StreamView struct {
	streams *StreamManager
}

// NewStreamView creates a view that feeds the given stream manager.
func NewStreamView(sm *StreamManager) *StreamView {
	return &StreamView{streams: sm}
}

func (v *StreamView) send(m Mutation) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	v.streams.Broadcast(string(data))
}

func (v *StreamView) SetEnabled(control string, enabled bool) {
	v.send(Mutation{Kind: "enabled", Target: control, Enabled: &enabled})
}

func (v *StreamView) SetText(area, text string) {
	v.send(Mutation{Kind: "text", Target: area, Value: text})
}

func (v *StreamView) SetLink(area, url string) {
	v.send(Mutation{Kind: "link", Target: area, Value: url})
}

func (v *StreamView) Reveal(panel string) {
	v.send(Mutation{Kind: "reveal", Target: panel})
}
