// Package buttons implements the debounced button edge processor and the
// semantic-action command table (spec.md §4.3).
package buttons

import "time"

// Debounce is the minimum spacing between two accepted edges on the same
// button (spec.md §4.3, §8).
const Debounce = 5 * time.Millisecond

// Edge is a single button transition.
type Edge struct {
	Button  int
	Pressed bool
	At      time.Time
}

// Actions mirrors config.ButtonActions without importing internal/config,
// keeping this package dependency-free and easily unit-tested.
type Actions struct {
	Activate int
	Release  int
	Flash10  int
	DimOff   int
	FineMode int
	ZoomMod  int
}

// Command is emitted by the Machine for the control loop / preset engine to
// act on.
type Command int

const (
	CmdNone Command = iota
	CmdActivate
	CmdRelease
	CmdPresetRecall
	CmdPresetRelease
)

// Result is one command produced by Dispatch. PresetID carries the bound
// preset for CmdPresetRecall and CmdPresetRelease, and is empty otherwise.
type Result struct {
	Command  Command
	PresetID string
}

// Machine tracks per-button down state and debounce timestamps, and
// resolves raw button levels into the live "held" flags the conditioner
// and frame assembler need each tick.
type Machine struct {
	lastEdge map[int]time.Time
	down     map[int]bool
}

// NewMachine returns an empty Machine.
func NewMachine() *Machine {
	return &Machine{
		lastEdge: map[int]time.Time{},
		down:     map[int]bool{},
	}
}

// Held is the live semantic-action state derived from current button
// levels, recomputed every tick from the debounced down map.
type Held struct {
	FineMode bool
	ZoomMod  bool
	Flash10  bool
	DimOff   bool
}

// Feed processes one batch of raw edges (computed by the caller by diffing
// consecutive Sample.Buttons vectors) against the debounce window, updating
// internal down-state. It returns the list of accepted (non-debounced)
// edges in order.
func (m *Machine) Feed(edges []Edge) []Edge {
	var accepted []Edge
	for _, e := range edges {
		last, seen := m.lastEdge[e.Button]
		if seen && e.At.Sub(last) < Debounce {
			continue
		}
		m.lastEdge[e.Button] = e.At
		m.down[e.Button] = e.Pressed
		accepted = append(accepted, e)
	}
	return accepted
}

// IsDown reports the current debounced level of a button.
func (m *Machine) IsDown(button int) bool {
	return m.down[button]
}

// Resolve computes the Held flags for the current tick from the debounced
// button levels and the configured semantic-action indices.
func (m *Machine) Resolve(a Actions) Held {
	return Held{
		FineMode: a.FineMode >= 0 && m.down[a.FineMode],
		ZoomMod:  a.ZoomMod >= 0 && m.down[a.ZoomMod],
		Flash10:  a.Flash10 >= 0 && m.down[a.Flash10],
		DimOff:   a.DimOff >= 0 && m.down[a.DimOff],
	}
}

// Dispatch inspects the accepted edges for this tick and returns the
// activate/release/preset-recall commands they produce, plus any preset
// buttons released this tick (spec.md §4.3's table).
//
// bindingFor resolves a button index to a bound preset id, or "" if none.
func (m *Machine) Dispatch(accepted []Edge, a Actions, bindingFor func(button int) string) []Result {
	var out []Result
	for _, e := range accepted {
		switch {
		case e.Button == a.Activate && e.Pressed:
			out = append(out, Result{Command: CmdActivate})
		case e.Button == a.Release && e.Pressed:
			out = append(out, Result{Command: CmdRelease})
		default:
			if id := bindingFor(e.Button); id != "" {
				if e.Pressed {
					out = append(out, Result{Command: CmdPresetRecall, PresetID: id})
				} else {
					out = append(out, Result{Command: CmdPresetRelease, PresetID: id})
				}
			}
		}
	}
	return out
}

// DiffEdges compares two button-level vectors and returns the transitions
// between them, stamped with now. prev may be shorter than cur (devices
// reporting fewer buttons than B); missing entries are treated as false.
func DiffEdges(prev, cur []bool, now time.Time) []Edge {
	var out []Edge
	n := len(cur)
	for i := 0; i < n; i++ {
		p := false
		if i < len(prev) {
			p = prev[i]
		}
		if p != cur[i] {
			out = append(out, Edge{Button: i, Pressed: cur[i], At: now})
		}
	}
	return out
}
