package config

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Snapshot is an immutable view of the whole config store. The control loop
// reads one Snapshot pointer at the start of a tick and uses it for the
// entire tick (spec.md §5): configuration changes never take effect
// mid-tick.
type Snapshot struct {
	Settings Settings
	Fixtures []Fixture
	Presets  []Preset
	Bindings []ButtonBinding
}

// FixtureByID returns the fixture with the given id, or false if absent.
func (s *Snapshot) FixtureByID(id string) (Fixture, bool) {
	for _, f := range s.Fixtures {
		if f.ID == id {
			return f, true
		}
	}
	return Fixture{}, false
}

// PresetByID returns the preset with the given id, or false if absent.
func (s *Snapshot) PresetByID(id string) (Preset, bool) {
	for _, p := range s.Presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

// BindingForButton returns the preset id bound to a button, or "" if none.
func (s *Snapshot) BindingForButton(button int) string {
	for _, b := range s.Bindings {
		if b.Button == button {
			return b.PresetID
		}
	}
	return ""
}

func (s *Snapshot) clone() *Snapshot {
	out := &Snapshot{Settings: s.Settings}
	out.Fixtures = append(out.Fixtures[:0:0], s.Fixtures...)
	out.Presets = append(out.Presets[:0:0], s.Presets...)
	out.Bindings = append(out.Bindings[:0:0], s.Bindings...)
	// Settings carries map fields; copy them so mutating the clone never
	// reaches back into the published snapshot.
	out.Settings.UnicastTargets = make(map[int]string, len(s.Settings.UnicastTargets))
	for k, v := range s.Settings.UnicastTargets {
		out.Settings.UnicastTargets[k] = v
	}
	ba := s.Settings.ButtonActions
	out.Settings.ButtonActions = ba
	return out
}

// Store is the config store: a single mutex guards writers; readers load an
// atomic snapshot pointer with no locking at all.
type Store struct {
	mu       sync.Mutex // serializes writers only
	snapshot atomic.Pointer[Snapshot]

	subMu sync.Mutex
	subs  []chan struct{}
}

// New creates a store seeded with the given snapshot (typically loaded from
// disk, or DefaultSettings() plus no fixtures on first run).
func New(initial Snapshot) *Store {
	s := &Store{}
	if initial.Settings.CID == uuid.Nil {
		initial.Settings.CID = uuid.New()
	}
	if initial.Settings.UnicastTargets == nil {
		initial.Settings.UnicastTargets = map[int]string{}
	}
	s.snapshot.Store(&initial)
	return s
}

// Snapshot returns the current, immutable snapshot. Safe to call from any
// goroutine without locking.
func (s *Store) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Subscribe returns a channel that receives a notification (non-blocking,
// capacity 1) whenever the store is mutated.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// write runs fn against a mutable clone of the current snapshot under the
// writer lock; if fn succeeds, the clone is published atomically and
// subscribers are notified.
func (s *Store) write(fn func(*Snapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.snapshot.Load().clone()
	if err := fn(next); err != nil {
		return err
	}
	s.snapshot.Store(next)
	s.notify()
	return nil
}

// SettingsPatch carries only the fields present in an HTTP POST body; nil
// pointers mean "leave unchanged" (merge-on-POST semantics, spec.md §6).
type SettingsPatch struct {
	FrameRateHz        *int            `json:"frame_rate_hz"`
	Deadzone           *float64        `json:"deadzone"`
	Expo               *float64        `json:"expo"`
	FineModeGain       *float64        `json:"fine_mode_gain"`
	ThrottleInvert     *bool           `json:"throttle_invert"`
	SACNPriority       *int            `json:"sacn_priority"`
	SACNBindAddrs      *[]string       `json:"sacn_bind_addresses"`
	UniverseMode       *UniverseMode   `json:"universe_mode"`
	UnicastTargets     map[int]string  `json:"unicast_targets"`
	GPIOPowerPin       *int            `json:"gpio_power_pin"`
	GPIOErrorPin       *int            `json:"gpio_error_pin"`
	GPIOFixtureLEDBase *int            `json:"gpio_fixture_led_base"`
	ButtonActions      *ButtonActions  `json:"button_actions"`
}

// ApplySettings merges a patch into Settings, validating the result before
// committing.
func (s *Store) ApplySettings(p SettingsPatch) error {
	return s.write(func(snap *Snapshot) error {
		next := snap.Settings
		if p.FrameRateHz != nil {
			next.FrameRateHz = *p.FrameRateHz
		}
		if p.Deadzone != nil {
			next.Deadzone = *p.Deadzone
		}
		if p.Expo != nil {
			next.Expo = *p.Expo
		}
		if p.FineModeGain != nil {
			next.FineModeGain = *p.FineModeGain
		}
		if p.ThrottleInvert != nil {
			next.ThrottleInvert = *p.ThrottleInvert
		}
		if p.SACNPriority != nil {
			next.SACNPriority = *p.SACNPriority
		}
		if p.SACNBindAddrs != nil {
			next.SACNBindAddrs = *p.SACNBindAddrs
		}
		if p.UniverseMode != nil {
			next.UniverseMode = *p.UniverseMode
		}
		for u, addr := range p.UnicastTargets {
			next.UnicastTargets[u] = addr
		}
		if p.GPIOPowerPin != nil {
			next.GPIOPowerPin = *p.GPIOPowerPin
		}
		if p.GPIOErrorPin != nil {
			next.GPIOErrorPin = *p.GPIOErrorPin
		}
		if p.GPIOFixtureLEDBase != nil {
			next.GPIOFixtureLEDBase = *p.GPIOFixtureLEDBase
		}
		if p.ButtonActions != nil {
			next.ButtonActions = *p.ButtonActions
		}
		if err := validateSettings(next, snap.Bindings); err != nil {
			return err
		}
		snap.Settings = next
		return nil
	})
}

func validateSettings(s Settings, bindings []ButtonBinding) error {
	if s.FrameRateHz <= 0 || s.FrameRateHz > 200 {
		return fmt.Errorf("frame_rate_hz %d out of sane range [1,200]", s.FrameRateHz)
	}
	if s.Deadzone < 0 || s.Deadzone > 0.5 {
		return fmt.Errorf("deadzone %v out of range [0,0.5]", s.Deadzone)
	}
	if s.Expo < 0 || s.Expo > 1 {
		return fmt.Errorf("expo %v out of range [0,1]", s.Expo)
	}
	if s.FineModeGain < 0 || s.FineModeGain > 1 {
		return fmt.Errorf("fine_mode_gain %v out of range [0,1]", s.FineModeGain)
	}
	if s.SACNPriority < 0 || s.SACNPriority > 200 {
		return fmt.Errorf("sacn_priority %d out of range [0,200]", s.SACNPriority)
	}
	seen := map[int]string{}
	for name, idx := range map[string]int{
		"activate":  s.ButtonActions.Activate,
		"release":   s.ButtonActions.Release,
		"flash_10":  s.ButtonActions.Flash10,
		"dim_off":   s.ButtonActions.DimOff,
		"fine_mode": s.ButtonActions.FineMode,
		"zoom_mod":  s.ButtonActions.ZoomMod,
	} {
		if idx < 0 {
			continue
		}
		if other, ok := seen[idx]; ok {
			return fmt.Errorf("button %d assigned to both %q and %q", idx, other, name)
		}
		seen[idx] = name
	}
	for _, b := range bindings {
		if name, ok := seen[b.Button]; ok {
			return fmt.Errorf("button %d is both a preset binding and semantic action %q", b.Button, name)
		}
	}
	return nil
}

// AddFixture validates and inserts a new fixture. Returns an error if the
// fixture limit is reached, the id is already in use, or Fixture.Validate
// fails.
func (s *Store) AddFixture(f Fixture) error {
	return s.write(func(snap *Snapshot) error {
		if len(snap.Fixtures) >= MaxFixtures {
			return fmt.Errorf("fixture limit of %d reached", MaxFixtures)
		}
		if _, exists := snap.FixtureByID(f.ID); exists {
			return fmt.Errorf("fixture id %q already in use", f.ID)
		}
		if err := f.Validate(); err != nil {
			return err
		}
		snap.Fixtures = append(snap.Fixtures, f)
		sort.Slice(snap.Fixtures, func(i, j int) bool { return snap.Fixtures[i].ID < snap.Fixtures[j].ID })
		return nil
	})
}

// FixturePatch carries the PATCH /api/fixtures/{id} fields; nil means
// unchanged.
type FixturePatch struct {
	Enabled          *bool   `json:"enabled"`
	Universe         *int    `json:"universe"`
	StartAddr        *int    `json:"start_addr"`
	PanCoarse        *int    `json:"pan_coarse"`
	PanFine          *int    `json:"pan_fine"`
	TiltCoarse       *int    `json:"tilt_coarse"`
	TiltFine         *int    `json:"tilt_fine"`
	Dimmer           *int    `json:"dimmer"`
	Zoom             *int    `json:"zoom"`
	ZoomFine         *int    `json:"zoom_fine"`
	ColorTempChannel *int    `json:"color_temp_channel"`
	ColorTempValue   *uint8  `json:"color_temp_value"`
	InvertPan        *bool   `json:"invert_pan"`
	InvertTilt       *bool   `json:"invert_tilt"`
	PanBias          *int16  `json:"pan_bias"`
	TiltBias         *int16  `json:"tilt_bias"`
	StatusLEDSlot    *int    `json:"status_led_slot"`
}

// UpdateFixture applies a partial update to an existing fixture, validating
// the merged result before committing.
func (s *Store) UpdateFixture(id string, p FixturePatch) error {
	return s.write(func(snap *Snapshot) error {
		idx := -1
		for i, f := range snap.Fixtures {
			if f.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("fixture %q not found", id)
		}
		f := snap.Fixtures[idx]
		if p.Enabled != nil {
			f.Enabled = *p.Enabled
		}
		if p.Universe != nil {
			f.Universe = *p.Universe
		}
		if p.StartAddr != nil {
			f.StartAddr = *p.StartAddr
		}
		if p.PanCoarse != nil {
			f.PanCoarse = *p.PanCoarse
		}
		if p.PanFine != nil {
			f.PanFine = *p.PanFine
		}
		if p.TiltCoarse != nil {
			f.TiltCoarse = *p.TiltCoarse
		}
		if p.TiltFine != nil {
			f.TiltFine = *p.TiltFine
		}
		if p.Dimmer != nil {
			f.Dimmer = *p.Dimmer
		}
		if p.Zoom != nil {
			f.Zoom = *p.Zoom
		}
		if p.ZoomFine != nil {
			f.ZoomFine = *p.ZoomFine
		}
		if p.ColorTempChannel != nil {
			f.ColorTempChannel = *p.ColorTempChannel
		}
		if p.ColorTempValue != nil {
			f.ColorTempValue = *p.ColorTempValue
		}
		if p.InvertPan != nil {
			f.InvertPan = *p.InvertPan
		}
		if p.InvertTilt != nil {
			f.InvertTilt = *p.InvertTilt
		}
		if p.PanBias != nil {
			f.PanBias = *p.PanBias
		}
		if p.TiltBias != nil {
			f.TiltBias = *p.TiltBias
		}
		if p.StatusLEDSlot != nil {
			f.StatusLEDSlot = *p.StatusLEDSlot
		}
		if err := f.Validate(); err != nil {
			return err
		}
		snap.Fixtures[idx] = f
		return nil
	})
}

// DeleteFixture removes a fixture by id. Deleting an unknown id is a no-op
// error.
func (s *Store) DeleteFixture(id string) error {
	return s.write(func(snap *Snapshot) error {
		idx := -1
		for i, f := range snap.Fixtures {
			if f.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("fixture %q not found", id)
		}
		snap.Fixtures = append(snap.Fixtures[:idx], snap.Fixtures[idx+1:]...)
		return nil
	})
}

// SetMultiUniverseEnabled toggles the multi_universe_enabled flag exposed
// alongside the fixture list.
func (s *Store) SetMultiUniverseEnabled(enabled bool) error {
	return s.write(func(snap *Snapshot) error {
		snap.Settings.MultiUniverseEnabled = enabled
		return nil
	})
}
