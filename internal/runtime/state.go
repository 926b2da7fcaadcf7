// Package runtime holds RuntimeState: the fields written by the control
// loop (and, for the active flag, also by the HTTP activate/release
// endpoints) and read by the HTTP surface under a short lock (spec.md §3
// Ownership, §5).
package runtime

import (
	"sync"
	"time"
)

// Conditioned is the current conditioned output for one fixture slot.
type Conditioned struct {
	Pan16  uint16
	Tilt16 uint16
	Dim8   uint8
	Zoom16 uint16
}

// State is the single-writer, many-reader runtime status record.
type State struct {
	mu sync.RWMutex

	active             bool
	errorSet           bool
	errorMessage       string
	lastFrameTimestamp time.Time
	fixtureOK          map[string]bool
	current            map[string]Conditioned
}

// New returns a freshly-initialized, inactive State.
func New() *State {
	return &State{
		fixtureOK: map[string]bool{},
		current:   map[string]Conditioned{},
	}
}

// SetActive sets the active flag (control loop, and the HTTP
// activate/release endpoints).
func (s *State) SetActive(active bool) {
	s.mu.Lock()
	s.active = active
	s.mu.Unlock()
}

// Active reports whether the controller is emitting live frames.
func (s *State) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// SetError sets or clears the error flag and message (control loop only).
// An empty message clears the error.
func (s *State) SetError(message string) {
	s.mu.Lock()
	s.errorSet = message != ""
	s.errorMessage = message
	s.mu.Unlock()
}

// Error reports the current error flag and message.
func (s *State) Error() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errorSet, s.errorMessage
}

// RecordFrame stamps the last-frame timestamp (control loop only, once per
// tick).
func (s *State) RecordFrame(t time.Time) {
	s.mu.Lock()
	s.lastFrameTimestamp = t
	s.mu.Unlock()
}

// LastFrame returns the timestamp of the most recently completed tick.
func (s *State) LastFrame() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFrameTimestamp
}

// SetFixtureOK records whether a fixture's universe is emitting cleanly.
func (s *State) SetFixtureOK(fixtureID string, ok bool) {
	s.mu.Lock()
	s.fixtureOK[fixtureID] = ok
	s.mu.Unlock()
}

// FixtureOK returns a snapshot of the per-fixture health map.
func (s *State) FixtureOK() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.fixtureOK))
	for k, v := range s.fixtureOK {
		out[k] = v
	}
	return out
}

// SetCurrent records the conditioned output currently assembled for a
// fixture, for status reporting.
func (s *State) SetCurrent(fixtureID string, c Conditioned) {
	s.mu.Lock()
	s.current[fixtureID] = c
	s.mu.Unlock()
}

// Current returns a snapshot of the per-fixture conditioned output map.
func (s *State) Current() map[string]Conditioned {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Conditioned, len(s.current))
	for k, v := range s.current {
		out[k] = v
	}
	return out
}
