// Package gpio defines digital output pins and a process-wide registry for
// them.
//
// It is a trimmed descendant of periph.io's conn/gpio package: the
// follow-spot controller only ever drives GPIO lines as outputs (power,
// error and per-fixture status LEDs), so the input-side concepts (Pull,
// Edge, PinIn) that the original package carried are not needed here.
package gpio

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Level is the level of the pin: Low or High.
type Level bool

const (
	// Low represents 0v.
	Low Level = false
	// High represents Vin, generally 3.3v or 5v.
	High Level = true
)

func (l Level) String() string {
	if l == Low {
		return "Low"
	}
	return "High"
}

// PinOut is a GPIO pin driven as an output.
type PinOut interface {
	// String returns a name unique across all registered pins, e.g. "GPIO17".
	String() string
	// Number returns the pin's logical number, or -1 if it has none.
	Number() int
	// Out sets the pin level.
	Out(l Level) error
	// Halt idles the pin; implementations drive it Low.
	Halt() error
}

// INVALID implements PinOut and fails on all access.
var INVALID PinOut = invalidPin{}

// ByName returns a registered GPIO pin by name, or nil if absent.
func ByName(name string) PinOut {
	lock.Lock()
	defer lock.Unlock()
	return byName[name]
}

// ByNumber returns a registered GPIO pin by number, or nil if absent.
func ByNumber(number int) PinOut {
	lock.Lock()
	defer lock.Unlock()
	return byNumber[number]
}

// All returns every registered pin, sorted by number.
func All() []PinOut {
	lock.Lock()
	defer lock.Unlock()
	out := make(pinList, 0, len(byNumber))
	for _, p := range byNumber {
		out = append(out, p)
	}
	sort.Sort(out)
	return out
}

// Register registers a GPIO pin. Registering the same name or number twice
// is an error.
func Register(p PinOut) error {
	lock.Lock()
	defer lock.Unlock()
	name := p.String()
	if _, ok := byName[name]; ok {
		return fmt.Errorf("gpio: pin %q already registered", name)
	}
	number := p.Number()
	if number >= 0 {
		if _, ok := byNumber[number]; ok {
			return fmt.Errorf("gpio: pin number %d already registered", number)
		}
		byNumber[number] = p
	}
	byName[name] = p
	return nil
}

// Unregister removes a previously registered pin, e.g. when the underlying
// file descriptor is closed during shutdown.
func Unregister(name string) error {
	lock.Lock()
	defer lock.Unlock()
	p, ok := byName[name]
	if !ok {
		return errors.New("gpio: unknown pin")
	}
	delete(byName, name)
	if n := p.Number(); n >= 0 {
		delete(byNumber, n)
	}
	return nil
}

var errInvalidPin = errors.New("gpio: invalid pin")

type invalidPin struct{}

func (invalidPin) String() string  { return "INVALID" }
func (invalidPin) Number() int     { return -1 }
func (invalidPin) Out(Level) error { return errInvalidPin }
func (invalidPin) Halt() error     { return errInvalidPin }

var (
	lock     sync.Mutex
	byName   = map[string]PinOut{}
	byNumber = map[int]PinOut{}
)

type pinList []PinOut

func (p pinList) Len() int           { return len(p) }
func (p pinList) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }
func (p pinList) Less(i, j int) bool { return p[i].Number() < p[j].Number() }

var _ PinOut = INVALID
