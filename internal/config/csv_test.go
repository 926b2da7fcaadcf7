package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFixturesCSV_RoundTrip(t *testing.T) {
	fixtures := []Fixture{
		validFixture("a", 1, 1),
		{ID: "b", Enabled: false, Universe: 2, StartAddr: 20, InvertPan: true, PanBias: -100},
	}
	var buf bytes.Buffer
	require.NoError(t, writeFixturesCSVTo(&buf, fixtures))

	got, err := ParseFixturesCSV(&buf)
	require.NoError(t, err)
	require.Equal(t, fixtures, got)
}

func TestParseFixturesCSV_AcceptsTrueFalseStrings(t *testing.T) {
	body := "id,enabled,universe,start_addr,pan_coarse,pan_fine,tilt_coarse,tilt_fine,dimmer,zoom,zoom_fine,color_temp_channel,color_temp_value,invert_pan,invert_tilt,pan_bias,tilt_bias,status_led\n" +
		"f1,True,1,1,1,2,3,4,5,0,0,0,0,False,True,0,0,0\n"
	fixtures, err := ParseFixturesCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, fixtures, 1)
	require.True(t, fixtures[0].Enabled)
	require.False(t, fixtures[0].InvertPan)
	require.True(t, fixtures[0].InvertTilt)
}

func TestParseFixturesCSV_SkipsBlankRows(t *testing.T) {
	body := "id,enabled,universe,start_addr,pan_coarse,pan_fine,tilt_coarse,tilt_fine,dimmer,zoom,zoom_fine,color_temp_channel,color_temp_value,invert_pan,invert_tilt,pan_bias,tilt_bias,status_led\n\n" +
		"f1,True,1,1,1,2,3,4,5,0,0,0,0,False,False,0,0,0\n"
	fixtures, err := ParseFixturesCSV(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, fixtures, 1)
}

func writeFixturesCSVTo(buf *bytes.Buffer, fixtures []Fixture) error {
	for _, f := range fixtures {
		buf.WriteString(strings.Join(fixtureToRow(f), ","))
		buf.WriteByte('\n')
	}
	return nil
}
