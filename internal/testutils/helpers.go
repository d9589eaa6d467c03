package testutils

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Recorded is one request seen by the fake endpoint.
type Recorded struct {
	Method      string
	Selector    string
	ContentType string
	Body        string
}

// Endpoint is a fake wizard backend.
// It answers "GET|POST /issue.php?<selector>" with canned bodies.
type Endpoint struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Recorded
	bodies   map[string]string
	status   map[string]int
}

// Path is where the fake endpoint serves the wizard.
const Path = "/issue.php"

// NewEndpoint starts a fake endpoint that is closed with the test.
func NewEndpoint(t *testing.T) *Endpoint {
	t.Helper()

	e := &Endpoint{
		bodies: map[string]string{
			"prepare":     "",
			"template":    "Template: Certificate of Completion",
			"roster":      "3 recipients",
			"certificate": "3 unsigned certificates",
			"issuer":      `{"lines":"issued 3 certificates","tx":"deadbeef"}`,
		},
		status: map[string]int{},
	}

	r := chi.NewRouter()
	r.HandleFunc(Path, e.serve)
	e.Server = httptest.NewServer(r)
	t.Cleanup(e.Server.Close)
	return e
}

// URL returns the wizard endpoint URL.
func (e *Endpoint) URL() string {
	return e.Server.URL + Path
}

// SetBody sets the body returned for a selector.
func (e *Endpoint) SetBody(selector, body string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bodies[selector] = body
}

// SetStatus sets the status returned for a selector.
func (e *Endpoint) SetStatus(selector string, code int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status[selector] = code
}

// Requests returns a copy of everything received so far.
func (e *Endpoint) Requests() []Recorded {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Recorded, len(e.requests))
	copy(out, e.requests)
	return out
}

func (e *Endpoint) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	sel := r.URL.RawQuery

	e.mu.Lock()
	e.requests = append(e.requests, Recorded{
		Method:      r.Method,
		Selector:    sel,
		ContentType: r.Header.Get("Content-Type"),
		Body:        string(body),
	})
	code, ok := e.status[sel]
	resp, known := e.bodies[sel]
	e.mu.Unlock()

	if !known {
		http.NotFound(w, r)
		return
	}
	if ok {
		w.WriteHeader(code)
	}
	_, _ = io.WriteString(w, resp)
}
