package event

import "sync"

// Recorded is an event captured by a Recorder.
type Recorded struct {
	GameID string
	Event  Event
}

// Recorder is an in-memory Broadcaster that keeps every event it receives.
// It backs tests and the debug dump of a running server.
type Recorder struct {
	mu     sync.Mutex
	events []Recorded
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Broadcast records ev.
func (r *Recorder) Broadcast(gameID string, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, Recorded{GameID: gameID, Event: ev})
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Recorded(nil), r.events...)
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []Name {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Name, len(r.events))
	for i, e := range r.events {
		out[i] = e.Event.Name
	}
	return out
}

// Count returns how many events named n were recorded.
func (r *Recorder) Count(n Name) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := 0
	for _, e := range r.events {
		if e.Event.Name == n {
			c++
		}
	}
	return c
}

// Payloads returns the payloads of every event named n, in order.
func (r *Recorder) Payloads(n Name) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []any
	for _, e := range r.events {
		if e.Event.Name == n {
			out = append(out, e.Event.Payload)
		}
	}
	return out
}

// Last returns the payload of the most recent event named n.
func (r *Recorder) Last(n Name) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Event.Name == n {
			return r.events[i].Event.Payload, true
		}
	}
	return nil, false
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
