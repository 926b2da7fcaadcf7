package buttons

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMachine_FeedCollapsesEdgesWithinDebounceWindow(t *testing.T) {
	m := NewMachine()
	t0 := time.Now()

	accepted := m.Feed([]Edge{{Button: 0, Pressed: true, At: t0}})
	require.Len(t, accepted, 1)

	// A bounce 2ms later (within the 5ms window) must be dropped.
	accepted = m.Feed([]Edge{{Button: 0, Pressed: false, At: t0.Add(2 * time.Millisecond)}})
	require.Empty(t, accepted)
	require.True(t, m.IsDown(0), "debounced bounce must not flip the recorded level")

	// A real edge after the window elapses is accepted.
	accepted = m.Feed([]Edge{{Button: 0, Pressed: false, At: t0.Add(6 * time.Millisecond)}})
	require.Len(t, accepted, 1)
	require.False(t, m.IsDown(0))
}

func TestMachine_ResolveReflectsHeldButtons(t *testing.T) {
	m := NewMachine()
	now := time.Now()
	a := Actions{Activate: 0, Release: 1, Flash10: 2, DimOff: 3, FineMode: 4, ZoomMod: 5}

	m.Feed([]Edge{{Button: 4, Pressed: true, At: now}, {Button: 5, Pressed: true, At: now}})
	held := m.Resolve(a)
	require.True(t, held.FineMode)
	require.True(t, held.ZoomMod)
	require.False(t, held.Flash10)
}

func TestMachine_DispatchMapsActivateReleaseAndPresets(t *testing.T) {
	m := NewMachine()
	now := time.Now()
	a := Actions{Activate: 0, Release: 1, Flash10: -1, DimOff: -1, FineMode: -1, ZoomMod: -1}

	bindingFor := func(button int) string {
		if button == 6 {
			return "preset-a"
		}
		return ""
	}

	accepted := m.Feed([]Edge{
		{Button: 0, Pressed: true, At: now},
		{Button: 6, Pressed: true, At: now},
	})
	results := m.Dispatch(accepted, a, bindingFor)
	require.Len(t, results, 2)
	require.Equal(t, CmdActivate, results[0].Command)
	require.Equal(t, CmdPresetRecall, results[1].Command)
	require.Equal(t, "preset-a", results[1].PresetID)

	accepted = m.Feed([]Edge{{Button: 6, Pressed: false, At: now.Add(10 * time.Millisecond)}})
	results = m.Dispatch(accepted, a, bindingFor)
	require.Len(t, results, 1)
	require.Equal(t, CmdPresetRelease, results[0].Command)
}

func TestDiffEdges_HandlesShorterPreviousVector(t *testing.T) {
	now := time.Now()
	edges := DiffEdges([]bool{true}, []bool{true, true, false}, now)
	require.Len(t, edges, 1)
	require.Equal(t, 1, edges[0].Button)
	require.True(t, edges[0].Pressed)
}
