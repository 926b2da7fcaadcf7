// Package conditioner implements the pure transform from raw joystick axes
// to per-fixture DMX values: deadzone, expo curve, fine-mode gain, bias,
// inversion and 16-bit integration (spec.md §4.2).
//
// Condition is a pure function of its inputs: identical (axes, held
// buttons, fixture, settings) always produce identical output, which is
// the testable property the specification requires in §8.
package conditioner

import "math"

// Held is the set of semantic buttons currently down, as resolved by
// internal/buttons against the configured ButtonActions indices.
type Held struct {
	FineMode bool
	ZoomMod  bool
	Flash10  bool
	DimOff   bool
}

// Params are the per-fixture and global settings the transform needs. It
// deliberately carries only scalars, not the full config.Fixture /
// config.Settings types, so this package has no dependency on internal/config
// and stays trivially unit-testable.
type Params struct {
	Deadzone       float64
	Expo           float64
	FineModeGain   float64
	ThrottleInvert bool

	InvertPan  bool
	InvertTilt bool
	PanBias    int16
	TiltBias   int16

	// ZoomFromZAxis selects whether zoom-mod reads the z-axis (true) or the
	// y-axis (false) per the "alternate" convention in spec.md §4.2.
	ZoomFromZAxis bool
}

// Output is the conditioned quadruple for one fixture at one tick.
type Output struct {
	Pan16  uint16
	Tilt16 uint16
	Dim8   uint8
	Zoom16 uint16
}

// axisStage applies deadzone, expo, fine-mode gain to a single raw axis in
// [-1, +1], returning a value still in [-1, +1].
func axisStage(raw float64, deadzone, expo, fineGain float64, fine bool) float64 {
	if raw > 1 {
		raw = 1
	} else if raw < -1 {
		raw = -1
	}

	v := raw
	if math.Abs(v) < deadzone {
		v = 0
	} else {
		sign := 1.0
		if v < 0 {
			sign = -1
		}
		v = sign * (math.Abs(v) - deadzone) / (1 - deadzone)
	}

	if v != 0 {
		sign := 1.0
		if v < 0 {
			sign = -1
		}
		exponent := 1 + 2*expo
		v = sign * math.Pow(math.Abs(v), exponent)
	}

	if fine {
		v *= fineGain
	}
	return v
}

// scale16 maps a value in [-1, +1] to [0, 65535] with 32768 as center,
// applies the per-fixture invert and 16-bit-domain bias, and clamps.
func scale16(v float64, invert bool, bias int16) uint16 {
	if invert {
		v = -v
	}
	scaled := 32768.0 + v*32767.0
	scaled += float64(bias)
	if scaled < 0 {
		scaled = 0
	} else if scaled > 65535 {
		scaled = 65535
	}
	return uint16(math.Round(scaled))
}

// State carries the per-fixture sticky zoom value across ticks: zoom is
// re-centered only by an explicit write (spec.md §4.2, §9 "zoom sticky vs
// re-centered").
type State struct {
	zoom16 uint16
	tilt16 uint16
	init   bool
}

// NewState returns a State with zoom and tilt centered at 32768, matching a
// fixture that has never been conditioned.
func NewState() *State {
	return &State{zoom16: 32768, tilt16: 32768, init: true}
}

// Condition runs the full per-tick transform for one fixture.
func Condition(st *State, axes [4]float32, held Held, p Params) Output {
	if !st.init {
		st.zoom16 = 32768
		st.tilt16 = 32768
		st.init = true
	}

	pan := axisStage(float64(axes[0]), p.Deadzone, p.Expo, p.FineModeGain, held.FineMode)
	pan16 := scale16(pan, p.InvertPan, p.PanBias)

	if !held.ZoomMod {
		// y-axis feeds zoom instead of tilt while zoom-mod is held (spec.md
		// §4.2); tilt is otherwise re-derived from the axis every tick, it is
		// only "sticky" in the sense that it is untouched during zoom-mod.
		tilt := axisStage(float64(axes[1]), p.Deadzone, p.Expo, p.FineModeGain, held.FineMode)
		st.tilt16 = scale16(tilt, p.InvertTilt, p.TiltBias)
	}
	tilt16 := st.tilt16

	throttle := float64(axes[2])
	if p.ThrottleInvert {
		throttle = -throttle
	}
	if throttle > 1 {
		throttle = 1
	} else if throttle < -1 {
		throttle = -1
	}
	dim8 := uint8(math.Round((throttle + 1) / 2 * 255))
	if held.Flash10 {
		dim8 = uint8(math.Round(0.10 * 255))
	}
	if held.DimOff {
		dim8 = 0
	}

	if held.ZoomMod {
		var zoomAxis float64
		if p.ZoomFromZAxis {
			zoomAxis = float64(axes[3])
		} else {
			zoomAxis = float64(axes[1])
		}
		if zoomAxis > 1 {
			zoomAxis = 1
		} else if zoomAxis < -1 {
			zoomAxis = -1
		}
		st.zoom16 = uint16(math.Round((zoomAxis + 1) / 2 * 65535))
	}
	// Otherwise zoom16 is sticky: st.zoom16 keeps its last value.

	return Output{Pan16: pan16, Tilt16: tilt16, Dim8: dim8, Zoom16: st.zoom16}
}
