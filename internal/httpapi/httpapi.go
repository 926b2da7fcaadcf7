// Package httpapi exposes the controller's JSON HTTP control surface,
// routed with gorilla/mux, per spec.md §6's endpoint table.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/vaspar/followspot/internal/applog"
	"github.com/vaspar/followspot/internal/config"
	"github.com/vaspar/followspot/internal/input"
	"github.com/vaspar/followspot/internal/netinfo"
	"github.com/vaspar/followspot/internal/runtime"
)

// Server holds the collaborators the HTTP handlers need.
type Server struct {
	store    *config.Store
	state    *runtime.State
	virtual  *input.VirtualSource
	sw       *input.Switch
	lister   input.DeviceLister
	log      zerolog.Logger
	restart  func()
}

// New builds a Server. restart may be nil; if so, POST /api/restart
// reports 501.
func New(store *config.Store, state *runtime.State, virtual *input.VirtualSource, sw *input.Switch, lister input.DeviceLister, log zerolog.Logger, restart func()) *Server {
	if lister == nil {
		lister = input.NullDeviceLister{}
	}
	return &Server{store: store, state: state, virtual: virtual, sw: sw, lister: lister, log: log, restart: restart}
}

// Router builds the gorilla/mux router with every endpoint wired.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/logs", s.handleLogs).Methods(http.MethodGet)

	r.HandleFunc("/api/settings", s.handleGetSettings).Methods(http.MethodGet)
	r.HandleFunc("/api/settings", s.handlePostSettings).Methods(http.MethodPost)

	r.HandleFunc("/api/fixtures", s.handleListFixtures).Methods(http.MethodGet)
	r.HandleFunc("/api/fixtures", s.handleCreateFixture).Methods(http.MethodPost)
	r.HandleFunc("/api/fixtures/{id}", s.handlePatchFixture).Methods(http.MethodPatch)
	r.HandleFunc("/api/fixtures/{id}", s.handleDeleteFixture).Methods(http.MethodDelete)
	r.HandleFunc("/api/fixtures/import", s.handleImportFixtures).Methods(http.MethodPost)
	r.HandleFunc("/api/fixtures/config", s.handleFixturesConfig).Methods(http.MethodPost)

	r.HandleFunc("/api/activate", s.handleActivate).Methods(http.MethodPost)
	r.HandleFunc("/api/release", s.handleRelease).Methods(http.MethodPost)

	r.HandleFunc("/api/virtual", s.handleVirtualWrite).Methods(http.MethodPost)
	r.HandleFunc("/api/virtual/press", s.handleVirtualPress).Methods(http.MethodPost)
	r.HandleFunc("/api/virtual/release", s.handleVirtualRelease).Methods(http.MethodPost)

	r.HandleFunc("/api/presets", s.handleListPresets).Methods(http.MethodGet)
	r.HandleFunc("/api/presets", s.handleCapturePreset).Methods(http.MethodPost)
	r.HandleFunc("/api/presets/{id}", s.handlePatchPreset).Methods(http.MethodPatch)
	r.HandleFunc("/api/presets/{id}", s.handleDeletePreset).Methods(http.MethodDelete)
	r.HandleFunc("/api/presets/{id}/recall", s.handleRecallPreset).Methods(http.MethodPost)

	r.HandleFunc("/api/preset-buttons", s.handleBindPresetButton).Methods(http.MethodPost)

	r.HandleFunc("/api/network/adapters", s.handleNetworkAdapters).Methods(http.MethodGet)
	r.HandleFunc("/api/usb/devices", s.handleUSBDevices).Methods(http.MethodGet)

	r.HandleFunc("/api/restart", s.handleRestart).Methods(http.MethodPost)
	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	errSet, errMsg := s.state.Error()
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"active":              s.state.Active(),
		"error":               errSet,
		"error_message":       errMsg,
		"last_frame_timestamp": s.state.LastFrame(),
		"fixture_ok":          s.state.FixtureOK(),
		"current":             s.state.Current(),
		"using_virtual_input": s.sw.UsingVirtual(),
		"cid":                 snap.Settings.CID.String(),
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	for _, line := range applog.RecentLines() {
		w.Write([]byte(line))
	}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot().Settings)
}

func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	var p config.SettingsPatch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.ApplySettings(p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Snapshot().Settings)
}

func (s *Server) handleListFixtures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot().Fixtures)
}

func (s *Server) handleCreateFixture(w http.ResponseWriter, r *http.Request) {
	var f config.Fixture
	if err := decodeJSON(r, &f); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.AddFixture(f); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handlePatchFixture(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var p config.FixturePatch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.UpdateFixture(id, p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	f, _ := s.store.Snapshot().FixtureByID(id)
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleDeleteFixture(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteFixture(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImportFixtures(w http.ResponseWriter, r *http.Request) {
	fixtures, err := config.ParseFixturesCSV(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.ImportFixtures(fixtures); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Snapshot().Fixtures)
}

func (s *Server) handleFixturesConfig(w http.ResponseWriter, r *http.Request) {
	var body struct {
		MultiUniverseEnabled *bool `json:"multi_universe_enabled"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if body.MultiUniverseEnabled != nil {
		if err := s.store.SetMultiUniverseEnabled(*body.MultiUniverseEnabled); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.store.Snapshot().Settings)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	s.state.SetActive(true)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	s.state.SetActive(false)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVirtualWrite(w http.ResponseWriter, r *http.Request) {
	var v input.VirtualSample
	if err := decodeJSON(r, &v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.virtual.Write(v)
	s.sw.SetVirtual(true)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVirtualPress(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Button int `json:"button"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.setVirtualButton(body.Button, true)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVirtualRelease(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Button int `json:"button"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.setVirtualButton(body.Button, false)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setVirtualButton(button int, pressed bool) {
	cur := s.virtual.Poll()
	btns := append([]bool(nil), cur.Buttons...)
	for len(btns) <= button {
		btns = append(btns, false)
	}
	btns[button] = pressed
	s.virtual.Write(input.VirtualSample{
		X: cur.Axes[input.AxisPan], Y: cur.Axes[input.AxisTilt],
		Throttle: cur.Axes[input.AxisThrottle], ZAxis: cur.Axes[input.AxisZoom],
		Buttons: btns,
	})
	s.sw.SetVirtual(true)
}

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"presets":  s.store.Snapshot().Presets,
		"bindings": s.store.Snapshot().Bindings,
	})
}

func (s *Server) handleCapturePreset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name *string `json:"name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	// Capture freezes the current live conditioned output of the first
	// enabled fixture — presets broadcast identically to all fixtures on
	// recall (spec.md §4.6), so a single representative source is enough.
	var pan16, tilt16, zoom16 uint16
	var dim8 uint8
	for _, f := range s.store.Snapshot().Fixtures {
		if !f.Enabled {
			continue
		}
		if c, ok := s.state.Current()[f.ID]; ok {
			pan16, tilt16, dim8, zoom16 = c.Pan16, c.Tilt16, c.Dim8, c.Zoom16
			break
		}
	}
	p, err := s.store.CapturePreset(body.Name, pan16, tilt16, dim8, zoom16)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handlePatchPreset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var p config.PresetPatch
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.UpdatePreset(id, p); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	preset, _ := s.store.Snapshot().PresetByID(id)
	writeJSON(w, http.StatusOK, preset)
}

func (s *Server) handleDeletePreset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeletePreset(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRecallPreset reports a preset's values for a UI preview; the hold
// itself is driven only by physical button edges through the control loop.
func (s *Server) handleRecallPreset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	preset, ok := s.store.Snapshot().PresetByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, errNotFound("preset"))
		return
	}
	writeJSON(w, http.StatusOK, preset)
}

func (s *Server) handleBindPresetButton(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Button   int    `json:"button"`
		PresetID string `json:"preset_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.store.BindPresetButton(body.Button, body.PresetID); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Snapshot().Bindings)
}

func (s *Server) handleNetworkAdapters(w http.ResponseWriter, r *http.Request) {
	adapters, err := netinfo.List()
	if err != nil {
		id := uuid.New().String()
		s.log.Error().Err(err).Str("correlation_id", id).Msg("list network adapters")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error(), "correlation_id": id})
		return
	}
	writeJSON(w, http.StatusOK, adapters)
}

func (s *Server) handleUSBDevices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lister.List())
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if s.restart == nil {
		writeError(w, http.StatusNotImplemented, errNotFound("restart"))
		return
	}
	w.WriteHeader(http.StatusAccepted)
	go s.restart()
}

type errNotFound string

func (e errNotFound) Error() string { return string(e) + " not found" }
