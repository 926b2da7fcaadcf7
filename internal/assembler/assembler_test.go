package assembler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fixture(id string, universe, start int) FixtureChannels {
	return FixtureChannels{
		ID: id, Universe: universe, StartAddr: start,
		PanCoarse: 1, PanFine: 2, TiltCoarse: 3, TiltFine: 4, Dimmer: 5,
	}
}

func TestAssemble_WritesChannelsAtStartAddrOffset(t *testing.T) {
	a := New()
	f := fixture("a", 1, 10)
	touched := a.Assemble([]FixtureChannels{f}, func(FixtureChannels) Values {
		return Values{Pan16: 0xABCD, Tilt16: 0x1234, Dim8: 0xFF, Zoom16: 0}
	})
	require.Len(t, touched, 1)
	buf := a.Buffer(1)
	require.Equal(t, byte(0xAB), buf.Slots[9])  // channel 10 (0-based 9) = pan coarse
	require.Equal(t, byte(0xCD), buf.Slots[10]) // channel 11 = pan fine
	require.Equal(t, byte(0x12), buf.Slots[11]) // tilt coarse
	require.Equal(t, byte(0x34), buf.Slots[12]) // tilt fine
	require.Equal(t, byte(0xFF), buf.Slots[13]) // dimmer
}

func TestAssemble_SkipsZeroOffsetChannels(t *testing.T) {
	a := New()
	f := FixtureChannels{ID: "a", Universe: 1, StartAddr: 1, Dimmer: 1} // only dimmer wired
	a.Assemble([]FixtureChannels{f}, func(FixtureChannels) Values {
		return Values{Pan16: 0xFFFF, Tilt16: 0xFFFF, Dim8: 42, Zoom16: 0xFFFF}
	})
	buf := a.Buffer(1)
	require.Equal(t, byte(42), buf.Slots[0])
	for i := 1; i < 512; i++ {
		require.Zero(t, buf.Slots[i], "only the dimmer slot should be written")
	}
}

func TestAssemble_DirtyOnlyWhenBytesChange(t *testing.T) {
	a := New()
	f := fixture("a", 1, 1)
	resolve := func(FixtureChannels) Values { return Values{Pan16: 0x1000} }
	a.Assemble([]FixtureChannels{f}, resolve)
	buf := a.Buffer(1)
	buf.Dirty = false

	touched := a.Assemble([]FixtureChannels{f}, resolve)
	require.Empty(t, touched, "re-assembling identical values must not mark the buffer dirty")
}

func TestAssemble_ReleaseZeroesAllLiveBuffersOnce(t *testing.T) {
	a := New()
	f := fixture("a", 1, 1)
	a.Assemble([]FixtureChannels{f}, func(FixtureChannels) Values {
		return Values{Pan16: 0xFFFF, Dim8: 0xFF}
	})

	touched := a.Release()
	require.Len(t, touched, 1)
	for _, b := range touched[0].Slots {
		require.Zero(t, b)
	}
	touched[0].Dirty = false // the emitter clears the bit once it has sent the release frame

	touched = a.Release()
	require.Len(t, touched, 1)
	require.False(t, touched[0].Dirty, "a second release on an already-zero buffer must not re-dirty it")
}

func TestRetire_DropsUniverseWithNoEnabledFixture(t *testing.T) {
	a := New()
	f := fixture("a", 1, 1)
	a.Assemble([]FixtureChannels{f}, func(FixtureChannels) Values { return Values{Pan16: 1} })
	a.Release()
	a.Buffer(1).Dirty = false // the emitter has sent the release frame

	retired := a.Retire(nil)
	require.Equal(t, []int{1}, retired)
	require.Nil(t, a.Buffer(1))
}
