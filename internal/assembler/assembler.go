// Package assembler packs per-fixture conditioned DMX values into
// per-universe 512-byte buffers (spec.md §4.4).
package assembler

import "sort"

// Values is the resolved per-fixture quadruple for one tick, from either
// the conditioner or a held preset.
type Values struct {
	Pan16  uint16
	Tilt16 uint16
	Dim8   uint8
	Zoom16 uint16
}

// FixtureChannels is the channel-offset map the assembler needs from
// config.Fixture, duplicated here (rather than imported) so this package
// has no dependency on internal/config.
type FixtureChannels struct {
	ID               string
	Universe         int
	StartAddr        int
	PanCoarse        int
	PanFine          int
	TiltCoarse       int
	TiltFine         int
	Dimmer           int
	Zoom             int
	ZoomFine         int
	ColorTempChannel int
	ColorTempValue   uint8
	StatusLEDSlot    int
}

// UniverseBuffer is one DMX universe's 512-slot payload plus the sACN
// sequencing/dirty bookkeeping the emitter needs.
type UniverseBuffer struct {
	Universe int
	Slots    [512]byte // Slots[0] == DMX channel 1
	Seq      uint8
	Dirty    bool
}

// Assembler owns the set of live UniverseBuffers, keyed by universe number.
// Buffers are allocated lazily on first use and retired (after one
// all-zero frame) once no enabled fixture references them (spec.md §3
// Lifecycle).
type Assembler struct {
	buffers map[int]*UniverseBuffer
}

// New returns an Assembler with no universes allocated.
func New() *Assembler {
	return &Assembler{buffers: map[int]*UniverseBuffer{}}
}

// Universes returns the live universe numbers, sorted.
func (a *Assembler) Universes() []int {
	out := make([]int, 0, len(a.buffers))
	for u := range a.buffers {
		out = append(out, u)
	}
	sort.Ints(out)
	return out
}

// Buffer returns the buffer for a universe, or nil if not allocated.
func (a *Assembler) Buffer(universe int) *UniverseBuffer {
	return a.buffers[universe]
}

func (a *Assembler) buffer(universe int) *UniverseBuffer {
	b, ok := a.buffers[universe]
	if !ok {
		b = &UniverseBuffer{Universe: universe}
		a.buffers[universe] = b
	}
	return b
}

// Assemble writes the resolved values for every enabled fixture into their
// universe buffers, retires buffers for universes with no enabled fixture
// left, and returns the set of buffers touched or retired this tick.
//
// resolve is called once per enabled fixture to obtain its current
// quadruple (from the conditioner or a held preset — the control loop
// decides which).
func (a *Assembler) Assemble(fixtures []FixtureChannels, resolve func(FixtureChannels) Values) []*UniverseBuffer {
	live := map[int]bool{}
	var touched []*UniverseBuffer

	for _, f := range fixtures {
		live[f.Universe] = true
		buf := a.buffer(f.Universe)
		v := resolve(f)
		writeFixture(buf, f, v)
	}

	for u, buf := range a.buffers {
		if !live[u] {
			if !isZero(buf.Slots[:]) {
				buf.Slots = [512]byte{}
				buf.Dirty = true
			}
		}
	}

	for _, buf := range a.buffers {
		if buf.Dirty {
			touched = append(touched, buf)
		}
	}
	sort.Slice(touched, func(i, j int) bool { return touched[i].Universe < touched[j].Universe })
	return touched
}

// Retire drops universes with no enabled fixture once their buffer is all
// zero and no longer dirty, i.e. once the final all-zero frame has been
// sent, and returns them so the emitter can stop tracking them (spec.md §3
// Lifecycle).
func (a *Assembler) Retire(fixtures []FixtureChannels) []int {
	live := map[int]bool{}
	for _, f := range fixtures {
		live[f.Universe] = true
	}
	var retired []int
	for u, buf := range a.buffers {
		if !live[u] && isZero(buf.Slots[:]) && !buf.Dirty {
			retired = append(retired, u)
			delete(a.buffers, u)
		}
	}
	sort.Ints(retired)
	return retired
}

// Release zeroes every live buffer once (the release frame, spec.md §4.4)
// and marks it dirty.
func (a *Assembler) Release() []*UniverseBuffer {
	var touched []*UniverseBuffer
	for _, buf := range a.buffers {
		if !isZero(buf.Slots[:]) {
			buf.Slots = [512]byte{}
			buf.Dirty = true
		}
		touched = append(touched, buf)
	}
	sort.Slice(touched, func(i, j int) bool { return touched[i].Universe < touched[j].Universe })
	return touched
}

func isZero(b []byte) bool {
	for _, x := range b {
		if x != 0 {
			return false
		}
	}
	return true
}

func writeFixture(buf *UniverseBuffer, f FixtureChannels, v Values) {
	setSlot := func(offset int, value byte) {
		if offset <= 0 {
			return
		}
		idx := f.StartAddr + offset - 2 // StartAddr is 1-based DMX channel; Slots is 0-based.
		if idx < 0 || idx >= 512 {
			return
		}
		if buf.Slots[idx] != value {
			buf.Slots[idx] = value
			buf.Dirty = true
		}
	}

	setSlot(f.PanCoarse, byte(v.Pan16>>8))
	setSlot(f.PanFine, byte(v.Pan16&0xFF))
	setSlot(f.TiltCoarse, byte(v.Tilt16>>8))
	setSlot(f.TiltFine, byte(v.Tilt16&0xFF))
	setSlot(f.Dimmer, v.Dim8)
	setSlot(f.Zoom, byte(v.Zoom16>>8))
	setSlot(f.ZoomFine, byte(v.Zoom16&0xFF))
	setSlot(f.ColorTempChannel, f.ColorTempValue)
}
