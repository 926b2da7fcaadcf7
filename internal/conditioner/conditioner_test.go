package conditioner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func baseParams() Params {
	return Params{
		Deadzone:      0.08,
		Expo:          0.35,
		FineModeGain:  0.20,
		ZoomFromZAxis: true,
	}
}

func TestCondition_CenteredSticksFullThrottle(t *testing.T) {
	st := NewState()
	out := Condition(st, [4]float32{0, 0, 1, 0}, Held{}, baseParams())
	require.Equal(t, uint16(0x8000), out.Pan16)
	require.Equal(t, uint16(0x8000), out.Tilt16)
	require.Equal(t, uint8(0xFF), out.Dim8)
}

func TestCondition_DeadzoneAndExpoApplied(t *testing.T) {
	st := NewState()
	out := Condition(st, [4]float32{0.10, 0, -1, 0}, Held{}, Params{Deadzone: 0.08, Expo: 0, FineModeGain: 0.20})
	require.Equal(t, uint16(33480), out.Pan16)
}

func TestCondition_IsPure(t *testing.T) {
	axes := [4]float32{0.3, -0.4, 0.1, 0.5}
	held := Held{FineMode: true}
	p := baseParams()

	st1 := NewState()
	out1 := Condition(st1, axes, held, p)
	st2 := NewState()
	out2 := Condition(st2, axes, held, p)
	require.Equal(t, out1, out2)
}

func TestCondition_ZoomModSwapsYAxisAndTiltSticks(t *testing.T) {
	st := NewState()
	p := baseParams()
	p.ZoomFromZAxis = false

	out1 := Condition(st, [4]float32{0, 0.5, 0, 0}, Held{}, p)
	require.NotEqual(t, uint16(0x8000), out1.Tilt16, "tilt should move with the y-axis when zoom-mod is not held")

	held := Held{ZoomMod: true}
	out2 := Condition(st, [4]float32{0, -0.9, 0, 0}, held, p)
	require.Equal(t, out1.Tilt16, out2.Tilt16, "tilt must stay put while zoom-mod steals the y-axis")
	require.NotEqual(t, uint16(0x8000), out2.Zoom16)

	out3 := Condition(st, [4]float32{0, 0.9, 0, 0}, Held{}, p)
	require.Equal(t, out2.Zoom16, out3.Zoom16, "zoom must not re-center once zoom-mod is released")
}

func TestCondition_Flash10AndDimOffOverrideThrottle(t *testing.T) {
	st := NewState()
	p := baseParams()

	out := Condition(st, [4]float32{0, 0, 1, 0}, Held{Flash10: true}, p)
	require.Equal(t, uint8(26), out.Dim8)

	out = Condition(st, [4]float32{0, 0, 1, 0}, Held{DimOff: true}, p)
	require.Equal(t, uint8(0), out.Dim8)
}

func TestScale16_ClampsAtBounds(t *testing.T) {
	require.Equal(t, uint16(65535), scale16(2, false, 0))
	require.Equal(t, uint16(0), scale16(-2, false, 0))
	require.Equal(t, uint16(65535), scale16(1, false, 1000))
}

func TestScale16_InvertNegatesBeforeBias(t *testing.T) {
	a := scale16(0.5, false, 0)
	b := scale16(0.5, true, 0)
	require.NotEqual(t, a, b)
	require.Equal(t, a, scale16(-0.5, true, 0))
}
