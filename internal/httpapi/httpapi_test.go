package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vaspar/followspot/internal/config"
	"github.com/vaspar/followspot/internal/input"
	"github.com/vaspar/followspot/internal/runtime"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := config.New(config.Snapshot{Settings: config.DefaultSettings()})
	state := runtime.New()
	virtual := input.NewVirtualSource()
	sw := input.NewSwitch(input.NewHardwareSource(), virtual)
	return New(store, state, virtual, sw, nil, zerolog.Nop(), nil)
}

func doJSON(t *testing.T, srv *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(b))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, r)
	return w
}

func TestCreateAndListFixtures(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/fixtures", map[string]interface{}{
		"id": "f1", "enabled": true, "universe": 1, "start_addr": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/fixtures", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fixtures []config.Fixture
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fixtures))
	require.Len(t, fixtures, 1)
	require.Equal(t, "f1", fixtures[0].ID)
}

func TestCreateFixture_InvalidPayloadReturns400(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/fixtures", map[string]interface{}{
		"id": "", "universe": 1, "start_addr": 1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body["error"])
}

func TestActivateAndReleaseToggleStatus(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/api/activate", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Equal(t, true, status["active"])

	w = doJSON(t, srv, http.MethodPost, "/api/release", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, srv, http.MethodGet, "/api/status", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.Equal(t, false, status["active"])
}

func TestVirtualWriteSwitchesInputSource(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/virtual", map[string]interface{}{
		"x": 0.5, "y": -0.5, "throttle": 1, "z_axis": 0,
	})
	require.Equal(t, http.StatusNoContent, w.Code)
	require.True(t, srv.sw.UsingVirtual())
}

func TestPatchFixture_AppliesSnakeCaseFields(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, http.MethodPost, "/api/fixtures", map[string]interface{}{
		"id": "f1", "enabled": true, "universe": 1, "start_addr": 1,
	})

	w := doJSON(t, srv, http.MethodPatch, "/api/fixtures/f1", map[string]interface{}{
		"start_addr": 100, "invert_pan": true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var f config.Fixture
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &f))
	require.Equal(t, 100, f.StartAddr)
	require.True(t, f.InvertPan)
}

func TestPatchSettings_AppliesSnakeCaseFields(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/settings", map[string]interface{}{
		"frame_rate_hz": 60, "deadzone": 0.1,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var s config.Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	require.Equal(t, 60, s.FrameRateHz)
	require.Equal(t, 0.1, s.Deadzone)
}

func TestCapturePresetAndBindButton(t *testing.T) {
	srv := newTestServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/presets", map[string]interface{}{})
	require.Equal(t, http.StatusCreated, w.Code)
	var preset config.Preset
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preset))

	w = doJSON(t, srv, http.MethodPost, "/api/preset-buttons", map[string]interface{}{
		"button": 7, "preset_id": preset.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/preset-buttons", map[string]interface{}{
		"button": 0, "preset_id": preset.ID, // button 0 is the default activate index
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}
