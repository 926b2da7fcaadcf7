// Package control runs the fixed-period scheduler that ties the input
// source, button machine, conditioner, preset hold engine, frame assembler
// and sACN emitter together into one tick (spec.md §4, §5).
package control

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/vaspar/followspot/internal/assembler"
	"github.com/vaspar/followspot/internal/buttons"
	"github.com/vaspar/followspot/internal/conditioner"
	"github.com/vaspar/followspot/internal/config"
	"github.com/vaspar/followspot/internal/holdengine"
	"github.com/vaspar/followspot/internal/indicator"
	"github.com/vaspar/followspot/internal/input"
	"github.com/vaspar/followspot/internal/runtime"
	"github.com/vaspar/followspot/internal/sacn"
)

// Loop owns every per-tick collaborator. It has no goroutine of its own;
// Run drives it on the calling goroutine until stop is closed, matching the
// single control-loop-goroutine ownership rule in spec.md §5.
type Loop struct {
	store      *config.Store
	state      *runtime.State
	in         input.Source
	buttonsM   *buttons.Machine
	hold       *holdengine.Engine
	asm        *assembler.Assembler
	emitter    *sacn.Emitter
	indicator  indicator.Sink
	fixtureLED indicator.FixtureSink
	log        zerolog.Logger

	condState map[string]*conditioner.State
	prevBtn   []bool
}

// New wires a Loop from its collaborators. emitter, indicatorSink and
// fixtureLED may be nil (e.g. sacn dial failed, or no GPIO backend probed);
// the loop degrades to logging instead of emitting/lighting.
func New(store *config.Store, state *runtime.State, in input.Source, emitter *sacn.Emitter, ind indicator.Sink, fled indicator.FixtureSink, log zerolog.Logger) *Loop {
	return &Loop{
		store:      store,
		state:      state,
		in:         in,
		buttonsM:   buttons.NewMachine(),
		hold:       holdengine.New(),
		asm:        assembler.New(),
		emitter:    emitter,
		indicator:  ind,
		fixtureLED: fled,
		log:        log,
		condState:  map[string]*conditioner.State{},
	}
}

// Run ticks at the snapshot's configured frame rate until stop is closed.
// It re-reads the frame period from the snapshot at the start of every
// tick so a live frame-rate change takes effect on the next tick without a
// restart, and corrects for scheduling drift by skipping missed ticks
// rather than bursting to catch up (spec.md §4 "fixed-period scheduler").
func (l *Loop) Run(stop <-chan struct{}) {
	if l.indicator != nil {
		l.indicator.SetPower(true)
		defer l.indicator.SetPower(false)
	}

	period := l.period()
	timer := time.NewTimer(period)
	defer timer.Stop()
	next := time.Now().Add(period)

	for {
		select {
		case <-stop:
			l.shutdown()
			return
		case now := <-timer.C:
			l.Tick(now)

			period = l.period()
			next = next.Add(period)
			if d := now.Sub(next); d > 0 {
				// We fell behind by more than one period; resync to now
				// instead of firing a burst of immediate catch-up ticks.
				skipped := d / period
				next = next.Add((skipped + 1) * period)
			}
			timer.Reset(time.Until(next))
		}
	}
}

func (l *Loop) period() time.Duration {
	hz := l.store.Snapshot().Settings.FrameRateHz
	if hz <= 0 {
		hz = 40
	}
	return time.Second / time.Duration(hz)
}

// Tick runs exactly one control cycle: poll input, resolve buttons,
// condition axes, resolve preset holds, assemble frames, emit, record
// status. It is exported so tests can drive individual ticks deterministically.
func (l *Loop) Tick(now time.Time) {
	snap := l.store.Snapshot()

	sample := l.in.Poll()
	edges := buttons.DiffEdges(l.prevBtn, sample.Buttons, now)
	l.prevBtn = append(l.prevBtn[:0], sample.Buttons...)
	accepted := l.buttonsM.Feed(edges)

	a := buttons.Actions{
		Activate: snap.Settings.ButtonActions.Activate,
		Release:  snap.Settings.ButtonActions.Release,
		Flash10:  snap.Settings.ButtonActions.Flash10,
		DimOff:   snap.Settings.ButtonActions.DimOff,
		FineMode: snap.Settings.ButtonActions.FineMode,
		ZoomMod:  snap.Settings.ButtonActions.ZoomMod,
	}
	results := l.buttonsM.Dispatch(accepted, a, snap.BindingForButton)
	for _, r := range results {
		switch r.Command {
		case buttons.CmdActivate:
			l.state.SetActive(true)
		case buttons.CmdRelease:
			l.state.SetActive(false)
		case buttons.CmdPresetRecall:
			l.hold.Recall(r.PresetID)
		case buttons.CmdPresetRelease:
			l.hold.Release(r.PresetID)
		}
	}

	held := l.buttonsM.Resolve(a)
	active := l.state.Active()

	fixtures := make([]assembler.FixtureChannels, 0, len(snap.Fixtures))
	resolvers := map[string]func() assembler.Values{}
	for _, f := range snap.Fixtures {
		if !f.Enabled {
			continue
		}
		fixtures = append(fixtures, toChannels(f))
		f := f
		resolvers[f.ID] = func() assembler.Values {
			return l.resolveFixture(snap, f, sample, held, active)
		}
	}

	var touched []*assembler.UniverseBuffer
	if !active {
		touched = l.asm.Release()
	} else {
		l.asm.Assemble(fixtures, func(fc assembler.FixtureChannels) assembler.Values {
			return resolvers[fc.ID]()
		})
	}
	for _, u := range l.asm.Retire(fixtures) {
		if l.emitter != nil {
			l.emitter.Forget(u)
		}
	}
	if active {
		// Hand every live buffer to the emitter, not only the dirty ones, so a
		// universe whose values have not changed still gets its keepalive.
		for _, u := range l.asm.Universes() {
			touched = append(touched, l.asm.Buffer(u))
		}
	}

	if l.emitter != nil {
		errs := l.emitter.Tick(now, touched, func(universe int) sacn.Destination {
			return resolveDestination(snap, universe)
		})
		l.reportHealth(snap, errs)
	}

	if l.fixtureLED != nil {
		for _, f := range snap.Fixtures {
			if f.StatusLEDSlot <= 0 {
				continue
			}
			ok := f.Enabled && active
			l.fixtureLED.SetSlot(f.StatusLEDSlot, ok)
		}
	}
	if l.indicator != nil {
		errSet, _ := l.state.Error()
		l.indicator.SetError(errSet)
	}

	l.state.RecordFrame(now)
}

func (l *Loop) resolveFixture(snap *config.Snapshot, f config.Fixture, sample input.Sample, held buttons.Held, active bool) assembler.Values {
	if v, ok := holdengine.Resolve(l.hold, func(id string) (holdengine.Values, bool) {
		p, found := snap.PresetByID(id)
		if !found {
			return holdengine.Values{}, false
		}
		return holdengine.Values{Pan16: p.Pan16, Tilt16: p.Tilt16, Dim8: p.Dim8, Zoom16: p.Zoom16}, true
	}); ok {
		l.state.SetCurrent(f.ID, runtime.Conditioned{Pan16: v.Pan16, Tilt16: v.Tilt16, Dim8: v.Dim8, Zoom16: v.Zoom16})
		return v
	}

	st, ok := l.condState[f.ID]
	if !ok {
		st = conditioner.NewState()
		l.condState[f.ID] = st
	}
	out := conditioner.Condition(st, sample.Axes, conditioner.Held{
		FineMode: held.FineMode,
		ZoomMod:  held.ZoomMod,
		Flash10:  held.Flash10,
		DimOff:   held.DimOff,
	}, conditioner.Params{
		Deadzone:       snap.Settings.Deadzone,
		Expo:           snap.Settings.Expo,
		FineModeGain:   snap.Settings.FineModeGain,
		ThrottleInvert: snap.Settings.ThrottleInvert,
		InvertPan:      f.InvertPan,
		InvertTilt:     f.InvertTilt,
		PanBias:        f.PanBias,
		TiltBias:       f.TiltBias,
		ZoomFromZAxis:  true,
	})
	l.state.SetCurrent(f.ID, runtime.Conditioned{Pan16: out.Pan16, Tilt16: out.Tilt16, Dim8: out.Dim8, Zoom16: out.Zoom16})
	return assembler.Values{Pan16: out.Pan16, Tilt16: out.Tilt16, Dim8: out.Dim8, Zoom16: out.Zoom16}
}

// reportHealth reflects the emitter's per-universe send errors into the
// per-fixture health map and the controller-wide error flag. An empty errs
// clears the error automatically on recovery (spec.md §4.5/§7/§8).
func (l *Loop) reportHealth(snap *config.Snapshot, errs map[int]error) {
	for _, f := range snap.Fixtures {
		if !f.Enabled {
			continue
		}
		_, bad := errs[f.Universe]
		l.state.SetFixtureOK(f.ID, !bad)
		if bad {
			l.log.Warn().Str("fixture", f.ID).Int("universe", f.Universe).Err(errs[f.Universe]).Msg("sacn send failed")
		}
	}

	if len(errs) == 0 {
		l.state.SetError("")
		return
	}
	universes := make([]int, 0, len(errs))
	for u := range errs {
		universes = append(universes, u)
	}
	sort.Ints(universes)
	msg := fmt.Sprintf("sacn send failed on %d universe(s): ", len(universes))
	for i, u := range universes {
		if i > 0 {
			msg += ", "
		}
		msg += fmt.Sprintf("%d (%v)", u, errs[u])
	}
	l.state.SetError(msg)
}

// shutdown sends one final all-zero frame per live universe and closes the
// emitter socket, so no fixture is left holding a stale live value after
// the process exits (spec.md §4.5 "final release frame on shutdown").
func (l *Loop) shutdown() {
	touched := l.asm.Release()
	if l.emitter != nil {
		snap := l.store.Snapshot()
		l.emitter.Tick(time.Now(), touched, func(universe int) sacn.Destination {
			return resolveDestination(snap, universe)
		})
		l.emitter.Close()
	}
}

func toChannels(f config.Fixture) assembler.FixtureChannels {
	return assembler.FixtureChannels{
		ID:               f.ID,
		Universe:         f.Universe,
		StartAddr:        f.StartAddr,
		PanCoarse:        f.PanCoarse,
		PanFine:          f.PanFine,
		TiltCoarse:       f.TiltCoarse,
		TiltFine:         f.TiltFine,
		Dimmer:           f.Dimmer,
		Zoom:             f.Zoom,
		ZoomFine:         f.ZoomFine,
		ColorTempChannel: f.ColorTempChannel,
		ColorTempValue:   f.ColorTempValue,
		StatusLEDSlot:    f.StatusLEDSlot,
	}
}

func resolveDestination(snap *config.Snapshot, universe int) sacn.Destination {
	if snap.Settings.UniverseMode == config.ModeUnicast {
		if addr, ok := snap.Settings.UnicastTargets[universe]; ok {
			return sacn.Destination{Universe: universe, Unicast: addr}
		}
	}
	return sacn.Destination{Universe: universe}
}
