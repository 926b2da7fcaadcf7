package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// CapturePreset creates a preset from the given conditioned values. If name
// is nil, the name defaults to "Preset N" with N the smallest unused
// integer among existing "Preset N" names (spec.md §4.6).
func (s *Store) CapturePreset(name *string, pan16, tilt16 uint16, dim8 uint8, zoom16 uint16) (Preset, error) {
	var created Preset
	err := s.write(func(snap *Snapshot) error {
		n := ""
		if name != nil && strings.TrimSpace(*name) != "" {
			n = strings.TrimSpace(*name)
		} else {
			n = nextPresetName(snap.Presets)
		}
		created = Preset{
			ID:     uuid.New().String(),
			Name:   n,
			Pan16:  pan16,
			Tilt16: tilt16,
			Dim8:   dim8,
			Zoom16: zoom16,
		}
		snap.Presets = append(snap.Presets, created)
		return nil
	})
	return created, err
}

func nextPresetName(existing []Preset) string {
	used := map[int]bool{}
	for _, p := range existing {
		if strings.HasPrefix(p.Name, "Preset ") {
			if n, err := strconv.Atoi(strings.TrimPrefix(p.Name, "Preset ")); err == nil {
				used[n] = true
			}
		}
	}
	for n := 1; ; n++ {
		if !used[n] {
			return fmt.Sprintf("Preset %d", n)
		}
	}
}

// PresetPatch is the body of PATCH /api/presets/{id}. Each of Pan16, Tilt16,
// Dim8 and Zoom16, when non-nil, replaces that captured value; Name, when
// non-nil, renames the preset.
type PresetPatch struct {
	Name   *string `json:"name"`
	Pan16  *uint16 `json:"pan16"`
	Tilt16 *uint16 `json:"tilt16"`
	Dim8   *uint8  `json:"dim8"`
	Zoom16 *uint16 `json:"zoom16"`
}

// UpdatePreset renames a preset and/or replaces its captured values.
func (s *Store) UpdatePreset(id string, p PresetPatch) error {
	return s.write(func(snap *Snapshot) error {
		idx := -1
		for i, pr := range snap.Presets {
			if pr.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("preset %q not found", id)
		}
		pr := snap.Presets[idx]
		if p.Name != nil {
			pr.Name = *p.Name
		}
		if p.Pan16 != nil {
			pr.Pan16 = *p.Pan16
		}
		if p.Tilt16 != nil {
			pr.Tilt16 = *p.Tilt16
		}
		if p.Dim8 != nil {
			pr.Dim8 = *p.Dim8
		}
		if p.Zoom16 != nil {
			pr.Zoom16 = *p.Zoom16
		}
		snap.Presets[idx] = pr
		return nil
	})
}

// DeletePreset removes a preset and cascades to any button binding that
// referenced it (spec.md §3 Lifecycle).
func (s *Store) DeletePreset(id string) error {
	return s.write(func(snap *Snapshot) error {
		idx := -1
		for i, p := range snap.Presets {
			if p.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("preset %q not found", id)
		}
		snap.Presets = append(snap.Presets[:idx], snap.Presets[idx+1:]...)
		kept := snap.Bindings[:0:0]
		for _, b := range snap.Bindings {
			if b.PresetID != id {
				kept = append(kept, b)
			}
		}
		snap.Bindings = kept
		return nil
	})
}

// BindPresetButton associates button with presetID, or removes the
// existing binding for button when presetID == "". Rejects a button index
// that collides with a semantic-action index (spec.md §4.6).
func (s *Store) BindPresetButton(button int, presetID string) error {
	return s.write(func(snap *Snapshot) error {
		for name, idx := range semanticIndices(snap.Settings.ButtonActions) {
			if idx == button {
				return fmt.Errorf("button %d is assigned to semantic action %q", button, name)
			}
		}
		kept := snap.Bindings[:0:0]
		for _, b := range snap.Bindings {
			if b.Button != button {
				kept = append(kept, b)
			}
		}
		if presetID != "" {
			if _, ok := snap.PresetByID(presetID); !ok {
				return fmt.Errorf("preset %q not found", presetID)
			}
			kept = append(kept, ButtonBinding{Button: button, PresetID: presetID})
		}
		sort.Slice(kept, func(i, j int) bool { return kept[i].Button < kept[j].Button })
		snap.Bindings = kept
		return nil
	})
}

func semanticIndices(b ButtonActions) map[string]int {
	return map[string]int{
		"activate":  b.Activate,
		"release":   b.Release,
		"flash_10":  b.Flash10,
		"dim_off":   b.DimOff,
		"fine_mode": b.FineMode,
		"zoom_mod":  b.ZoomMod,
	}
}
