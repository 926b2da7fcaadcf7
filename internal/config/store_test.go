package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validFixture(id string, universe, start int) Fixture {
	return Fixture{
		ID: id, Enabled: true, Universe: universe, StartAddr: start,
		PanCoarse: 1, PanFine: 2, TiltCoarse: 3, TiltFine: 4, Dimmer: 5,
	}
}

func TestAddFixture_EnforcesLimitAndUniqueID(t *testing.T) {
	s := New(Snapshot{Settings: DefaultSettings()})
	for i := 0; i < MaxFixtures; i++ {
		require.NoError(t, s.AddFixture(validFixture(string(rune('a'+i)), 1, 1+i*10)))
	}
	require.Error(t, s.AddFixture(validFixture("overflow", 1, 500)))

	require.NoError(t, s.DeleteFixture(string(rune('a'+MaxFixtures-1))))
	require.Error(t, s.AddFixture(validFixture("a", 2, 100)), "duplicate id must be rejected")
}

func TestFixture_ValidateRejectsOutOfRangeChannels(t *testing.T) {
	f := validFixture("x", 1, 510)
	require.Error(t, f.Validate(), "tilt_fine at offset 4 pushes slot 513 out of range")

	f2 := validFixture("x", 1, 512)
	require.Error(t, f2.Validate(), "pan_fine at offset 2 pushes slot 513 out of range")
}

func TestFixture_ValidateRejectsBadUniverseAndStartAddr(t *testing.T) {
	require.Error(t, Fixture{ID: "x", Universe: 0, StartAddr: 1}.Validate())
	require.Error(t, Fixture{ID: "x", Universe: 1, StartAddr: 0}.Validate())
	require.Error(t, Fixture{ID: "", Universe: 1, StartAddr: 1}.Validate())
}

func TestApplySettings_RejectsButtonCollisions(t *testing.T) {
	s := New(Snapshot{Settings: DefaultSettings()})
	ba := DefaultSettings().ButtonActions
	ba.Release = ba.Activate
	err := s.ApplySettings(SettingsPatch{ButtonActions: &ba})
	require.Error(t, err)
}

func TestApplySettings_RejectsRangeViolations(t *testing.T) {
	s := New(Snapshot{Settings: DefaultSettings()})
	bad := -1
	require.Error(t, s.ApplySettings(SettingsPatch{FrameRateHz: &bad}))
}

func TestBindPresetButton_RejectsSemanticCollision(t *testing.T) {
	s := New(Snapshot{Settings: DefaultSettings()})
	preset, err := s.CapturePreset(nil, 100, 200, 50, 300)
	require.NoError(t, err)

	err = s.BindPresetButton(DefaultSettings().ButtonActions.Activate, preset.ID)
	require.Error(t, err)

	require.NoError(t, s.BindPresetButton(10, preset.ID))
	require.Equal(t, preset.ID, s.Snapshot().BindingForButton(10))
}

func TestDeletePreset_CascadesBindings(t *testing.T) {
	s := New(Snapshot{Settings: DefaultSettings()})
	preset, err := s.CapturePreset(nil, 1, 2, 3, 4)
	require.NoError(t, err)
	require.NoError(t, s.BindPresetButton(10, preset.ID))

	require.NoError(t, s.DeletePreset(preset.ID))
	require.Equal(t, "", s.Snapshot().BindingForButton(10))
}

func TestStore_SnapshotIsImmutableAcrossWrites(t *testing.T) {
	s := New(Snapshot{Settings: DefaultSettings()})
	before := s.Snapshot()
	require.NoError(t, s.AddFixture(validFixture("a", 1, 1)))
	require.Empty(t, before.Fixtures, "a previously read snapshot must not observe later writes")
	require.Len(t, s.Snapshot().Fixtures, 1)
}
