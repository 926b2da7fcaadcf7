package holdengine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEngine_RecallAndRelease(t *testing.T) {
	e := New()
	held, id := e.Active()
	require.False(t, held)
	require.Empty(t, id)

	e.Recall("p1")
	held, id = e.Active()
	require.True(t, held)
	require.Equal(t, "p1", id)

	e.Release("p1")
	held, _ = e.Active()
	require.False(t, held)
}

func TestEngine_ReleaseIgnoresStaleButton(t *testing.T) {
	e := New()
	e.Recall("p1")
	e.Recall("p2") // a second button was pressed before the first was released
	e.Release("p1")
	held, id := e.Active()
	require.True(t, held, "releasing a superseded preset must not clear the active hold")
	require.Equal(t, "p2", id)
}

func TestResolve_FallsBackWhenNoneHeldOrPresetMissing(t *testing.T) {
	e := New()
	lookup := func(id string) (Values, bool) { return Values{}, false }
	_, ok := Resolve(e, lookup)
	require.False(t, ok)

	e.Recall("missing")
	_, ok = Resolve(e, lookup)
	require.False(t, ok, "a held preset deleted mid-hold must fall back to live control")

	e.Recall("p1")
	found := func(id string) (Values, bool) { return Values{Pan16: 42}, true }
	v, ok := Resolve(e, found)
	require.True(t, ok)
	require.Equal(t, uint16(42), v.Pan16)
}
