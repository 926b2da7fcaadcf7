// Package holdengine implements preset recall's "hold" semantics: while a
// bound button is held down, its preset's values override live conditioning
// for every fixture; releasing the button returns control to the joystick
// (spec.md §4.3, §4.6).
//
// Only one preset can be held at a time — the most recently recalled one
// wins, matching a single physical hand on a single button bank. Releasing
// a button that is not the currently-held one is a no-op.
package holdengine

import "github.com/vaspar/followspot/internal/assembler"

// Engine tracks which preset, if any, is currently held.
type Engine struct {
	held    bool
	presetID string
}

// New returns an Engine with nothing held.
func New() *Engine {
	return &Engine{}
}

// Recall begins holding a preset. It replaces whatever was previously held.
func (e *Engine) Recall(presetID string) {
	e.held = true
	e.presetID = presetID
}

// Release ends the hold, but only if presetID is the one currently held —
// a stray release for a different (already-superseded) button must not
// clear the active hold.
func (e *Engine) Release(presetID string) {
	if e.held && e.presetID == presetID {
		e.held = false
		e.presetID = ""
	}
}

// Active reports whether any preset is currently held, and which one.
func (e *Engine) Active() (held bool, presetID string) {
	return e.held, e.presetID
}

// Resolve returns the held preset's values, broadcast identically to every
// fixture, when a preset is held; otherwise it returns zero Values and
// ok=false so the caller falls back to the conditioner's output.
func Resolve(e *Engine, lookup func(presetID string) (Values, bool)) (out Values, ok bool) {
	held, id := e.Active()
	if !held {
		return Values{}, false
	}
	v, found := lookup(id)
	if !found {
		// The held preset was deleted mid-hold; fall back to live control
		// rather than freezing on a stale value.
		return Values{}, false
	}
	return v, true
}

// Values aliases assembler.Values, so a held preset's values feed the
// assembler directly; assembler is this package's only dependency.
type Values = assembler.Values
