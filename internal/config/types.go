// Package config owns the controller's authoritative settings, fixtures,
// presets and button bindings. A single store holds an immutable snapshot;
// writers (the HTTP surface) validate and swap it under a short exclusive
// lock, and the control loop reads the current snapshot pointer once per
// tick, per the concurrency discipline in the specification's §5.
package config

import (
	"fmt"

	"github.com/google/uuid"
)

// UniverseMode selects how the emitter resolves a universe's destination.
type UniverseMode string

const (
	// ModeMulticast sends to 239.255.(U>>8).(U&0xFF) for universe U.
	ModeMulticast UniverseMode = "multicast"
	// ModeUnicast sends to an explicit IPv4 target configured per universe.
	ModeUnicast UniverseMode = "unicast"
)

// Settings is the singleton configuration record.
type Settings struct {
	FrameRateHz    int          `json:"frame_rate_hz"`
	Deadzone       float64      `json:"deadzone"`
	Expo           float64      `json:"expo"`
	FineModeGain   float64      `json:"fine_mode_gain"`
	ThrottleInvert bool         `json:"throttle_invert"`
	SACNPriority   int          `json:"sacn_priority"`
	SACNBindAddrs  []string     `json:"sacn_bind_addresses"`
	UniverseMode   UniverseMode `json:"universe_mode"`
	// UnicastTargets maps universe -> destination IPv4, used only when
	// UniverseMode == ModeUnicast.
	UnicastTargets map[int]string `json:"unicast_targets,omitempty"`

	GPIOPowerPin      int `json:"gpio_power_pin"`
	GPIOErrorPin      int `json:"gpio_error_pin"`
	GPIOFixtureLEDBase int `json:"gpio_fixture_led_base"`

	// ButtonActions maps each semantic action to a joystick button index.
	ButtonActions ButtonActions `json:"button_actions"`

	CID uuid.UUID `json:"cid"`

	MultiUniverseEnabled bool `json:"multi_universe_enabled"`
}

// ButtonActions assigns a joystick button index to each semantic action
// (spec.md §4.3). A value of -1 means unassigned.
type ButtonActions struct {
	Activate      int `json:"activate"`
	Release       int `json:"release"`
	Flash10       int `json:"flash_10"`
	DimOff        int `json:"dim_off"`
	FineMode      int `json:"fine_mode"`
	ZoomMod       int `json:"zoom_mod"`
}

// Indices returns the assigned (>=0) semantic button indices.
func (b ButtonActions) Indices() []int {
	var out []int
	for _, v := range []int{b.Activate, b.Release, b.Flash10, b.DimOff, b.FineMode, b.ZoomMod} {
		if v >= 0 {
			out = append(out, v)
		}
	}
	return out
}

// DefaultSettings returns the documented defaults from spec.md §3.
func DefaultSettings() Settings {
	return Settings{
		FrameRateHz:    40,
		Deadzone:       0.08,
		Expo:           0.35,
		FineModeGain:   0.20,
		ThrottleInvert: false,
		SACNPriority:   150,
		SACNBindAddrs:  nil,
		UniverseMode:   ModeMulticast,
		UnicastTargets: map[int]string{},
		GPIOPowerPin:   0,
		GPIOErrorPin:   0,
		ButtonActions: ButtonActions{
			Activate: 0,
			Release:  1,
			Flash10:  2,
			DimOff:   3,
			FineMode: 4,
			ZoomMod:  5,
		},
		CID:                  uuid.Nil,
		MultiUniverseEnabled: true,
	}
}

// MaxFixtures is the hard admission cap (spec.md §3 invariant; the Open
// Question in §9 is resolved as "hard cap" — see DESIGN.md).
const MaxFixtures = 6

// Fixture describes one DMX-addressable moving light.
type Fixture struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
	Universe int   `json:"universe"`
	StartAddr int  `json:"start_addr"`

	PanCoarse       int `json:"pan_coarse"`
	PanFine         int `json:"pan_fine"`
	TiltCoarse      int `json:"tilt_coarse"`
	TiltFine        int `json:"tilt_fine"`
	Dimmer          int `json:"dimmer"`
	Zoom            int `json:"zoom"`
	ZoomFine        int `json:"zoom_fine"`
	ColorTempChannel int `json:"color_temp_channel"`
	ColorTempValue   uint8 `json:"color_temp_value"`

	InvertPan  bool  `json:"invert_pan"`
	InvertTilt bool  `json:"invert_tilt"`
	PanBias    int16 `json:"pan_bias"`
	TiltBias   int16 `json:"tilt_bias"`

	StatusLEDSlot int `json:"status_led_slot"`
}

// offsets returns the non-zero channel offsets configured on the fixture.
func (f Fixture) offsets() []int {
	var out []int
	for _, o := range []int{f.PanCoarse, f.PanFine, f.TiltCoarse, f.TiltFine, f.Dimmer, f.Zoom, f.ZoomFine, f.ColorTempChannel} {
		if o > 0 {
			out = append(out, o)
		}
	}
	return out
}

// Validate enforces the per-fixture invariants from spec.md §3/§8.
func (f Fixture) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("fixture id must not be empty")
	}
	if f.Universe < 1 || f.Universe > 63999 {
		return fmt.Errorf("fixture %s: universe %d out of range [1,63999]", f.ID, f.Universe)
	}
	if f.StartAddr < 1 || f.StartAddr > 512 {
		return fmt.Errorf("fixture %s: start_addr %d out of range [1,512]", f.ID, f.StartAddr)
	}
	for _, k := range f.offsets() {
		last := f.StartAddr + k - 1
		if last < 1 || last > 512 {
			return fmt.Errorf("fixture %s: channel offset %d pushes slot %d out of range [1,512]", f.ID, k, last)
		}
	}
	if f.StatusLEDSlot < 0 {
		return fmt.Errorf("fixture %s: status_led_slot must be >= 0", f.ID)
	}
	return nil
}

// Preset is a named, captured joystick position.
type Preset struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Pan16  uint16 `json:"pan16"`
	Tilt16 uint16 `json:"tilt16"`
	Dim8   uint8  `json:"dim8"`
	Zoom16 uint16 `json:"zoom16"`
}

// ButtonBinding associates a joystick button with a preset id.
type ButtonBinding struct {
	Button   int    `json:"button"`
	PresetID string `json:"preset_id"`
}
