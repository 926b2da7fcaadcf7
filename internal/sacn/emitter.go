package sacn

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vaspar/followspot/internal/assembler"
)

// Keepalive is the maximum interval between packets for a given universe
// when nothing has changed; sACN receivers expect at least one packet per
// second (spec.md §4.5).
const Keepalive = time.Second

// universeState tracks the sequence counter and last-sent time for one
// universe, independent of the assembler's dirty bit.
type universeState struct {
	seq      uint8
	lastSent time.Time
}

// Emitter wraps a Sender with per-universe sequencing and keepalive
// scheduling, and reports per-universe send errors back to the caller so
// they can be reflected into the per-fixture health map.
type Emitter struct {
	mu       sync.Mutex
	sender   *Sender
	cid      uuid.UUID
	priority int
	states   map[int]*universeState
}

// NewEmitter wires an Emitter over an already-dialed Sender.
func NewEmitter(sender *Sender, cid uuid.UUID, priority int) *Emitter {
	return &Emitter{
		sender:   sender,
		cid:      cid,
		priority: priority,
		states:   map[int]*universeState{},
	}
}

// SetPriority updates the packet priority used for all subsequent sends.
func (e *Emitter) SetPriority(priority int) {
	e.mu.Lock()
	e.priority = priority
	e.mu.Unlock()
}

func (e *Emitter) next(universe int) *universeState {
	st, ok := e.states[universe]
	if !ok {
		st = &universeState{}
		e.states[universe] = st
	}
	return st
}

// Tick sends every buffer that is dirty or due for a keepalive, resolving
// each universe's destination via resolveDest, and returns a map of
// universe -> send error for any that failed.
func (e *Emitter) Tick(now time.Time, buffers []*assembler.UniverseBuffer, resolveDest func(universe int) Destination) map[int]error {
	e.mu.Lock()
	defer e.mu.Unlock()

	errs := map[int]error{}
	for _, buf := range buffers {
		st := e.next(buf.Universe)
		due := buf.Dirty || now.Sub(st.lastSent) >= Keepalive
		if !due {
			continue
		}
		st.seq++
		packet := Encode(e.cid, buf.Universe, st.seq, e.priority, buf)
		if err := e.sender.Send(resolveDest(buf.Universe), packet); err != nil {
			errs[buf.Universe] = err
		}
		st.lastSent = now
		buf.Dirty = false
	}
	return errs
}

// Forget drops sequencing state for a retired universe.
func (e *Emitter) Forget(universe int) {
	e.mu.Lock()
	delete(e.states, universe)
	e.mu.Unlock()
}

// Close releases the underlying sockets.
func (e *Emitter) Close() error {
	return e.sender.Close()
}
