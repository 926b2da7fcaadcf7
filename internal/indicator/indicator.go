// Package indicator drives the controller's status LEDs: the power and
// error indicators, and one LED per fixture slot.
//
// It follows the registration idiom of periph.io's own driver registry
// (periph.Register / periph.MustRegister / periph.Init): concrete backends
// register themselves from an init() function, and Open() probes them in
// name order, taking the first one whose Probe() succeeds. This
// lets a Raspberry Pi host pick up the sysfs GPIO backend while any other
// host transparently falls back to a no-op sink, matching design note
// "Runtime LED backends" in the specification.
package indicator

import (
	"fmt"
	"sort"
	"sync"
)

// Sink drives the controller's two always-present indicators: power (on
// while the process is running) and error (on while RuntimeState.error is
// set).
type Sink interface {
	SetPower(on bool) error
	SetError(on bool) error
	// Close releases any underlying resource.
	Close() error
}

// FixtureSink drives one LED per fixture slot, addressed by the
// Fixture.StatusLEDSlot the config store assigns (1..N; 0 means "no LED").
type FixtureSink interface {
	// SetSlot drives the LED for the given 1-based slot.
	SetSlot(slot int, ok bool) error
	// Close releases any underlying resource.
	Close() error
}

// Backend constructs a Sink and FixtureSink pair for one indicator
// subsystem (power+error pins, and N fixture-status pins).
type Backend interface {
	// Name is a unique, human-readable backend name, e.g. "sysfs-gpio".
	Name() string
	// Probe reports whether this backend can run on the current host.
	Probe() bool
	// Open opens the power/error sink given their configured GPIO pin
	// numbers, and a fixture-status sink given the configured pins keyed by
	// slot number.
	Open(powerPin, errorPin int, fixturePins map[int]int) (Sink, FixtureSink, error)
}

var (
	mu       sync.Mutex
	backends []Backend
)

// Register registers a Backend. Call from an init() function.
func Register(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	backends = append(backends, b)
	sort.SliceStable(backends, func(i, j int) bool { return backends[i].Name() < backends[j].Name() })
}

// Open probes registered backends in name order and opens the first one
// that claims this host. The no-op backend is always registered, always
// probes true and always opens, so a host no other backend claims falls
// back to it; an error is returned only when no registered backend both
// probes true and opens.
func Open(powerPin, errorPin int, fixturePins map[int]int) (Sink, FixtureSink, error) {
	mu.Lock()
	candidates := make([]Backend, len(backends))
	copy(candidates, backends)
	mu.Unlock()

	for _, b := range candidates {
		if !b.Probe() {
			continue
		}
		sink, fsink, err := b.Open(powerPin, errorPin, fixturePins)
		if err != nil {
			continue
		}
		return sink, fsink, nil
	}
	return nil, nil, fmt.Errorf("indicator: no backend claimed this host")
}
