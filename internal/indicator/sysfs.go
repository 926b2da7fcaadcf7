package indicator

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vaspar/followspot/internal/gpio"
)

const gpioRoot = "/sys/class/gpio"

func init() {
	Register(sysfsBackend{})
}

// sysfsBackend drives LEDs through the Linux GPIO sysfs class
// (/sys/class/gpio/gpioN/{direction,value}), adapted from periph.io's
// host/sysfs LED driver: export the line, force it to an output, then hold
// an open *os.File to its value attribute for the life of the process
// rather than reopening on every write.
type sysfsBackend struct{}

func (sysfsBackend) Name() string { return "sysfs-gpio" }

func (sysfsBackend) Probe() bool {
	fi, err := os.Stat(gpioRoot)
	return err == nil && fi.IsDir()
}

func (sysfsBackend) Open(powerPin, errorPin int, fixturePins map[int]int) (Sink, FixtureSink, error) {
	power, err := openPin(powerPin)
	if err != nil {
		return nil, nil, fmt.Errorf("indicator: open power pin %d: %w", powerPin, err)
	}
	errPin, err := openPin(errorPin)
	if err != nil {
		power.Close()
		return nil, nil, fmt.Errorf("indicator: open error pin %d: %w", errorPin, err)
	}

	fixtures := make(map[int]*sysfsPin, len(fixturePins))
	for slot, pinNum := range fixturePins {
		p, err := openPin(pinNum)
		if err != nil {
			power.Close()
			errPin.Close()
			for _, f := range fixtures {
				f.Close()
			}
			return nil, nil, fmt.Errorf("indicator: open fixture slot %d pin %d: %w", slot, pinNum, err)
		}
		fixtures[slot] = p
	}

	return &sysfsSink{power: power, err: errPin}, &sysfsFixtureSink{pins: fixtures}, nil
}

// sysfsPin is a single exported, output-configured GPIO line. It implements
// gpio.PinOut and registers itself in the process-wide gpio registry, so
// any other component (or a future diagnostics endpoint) can enumerate the
// indicator's pins via gpio.All() alongside whatever else is registered.
type sysfsPin struct {
	number int

	mu    sync.Mutex
	value *os.File
}

func openPin(number int) (*sysfsPin, error) {
	if number <= 0 {
		// 0 conventionally means "no LED wired"; treat as an always-succeeding
		// no-op pin so callers don't need to special-case it. It is not
		// registered: it has no distinct identity worth enumerating.
		return &sysfsPin{number: number}, nil
	}

	dir := filepath.Join(gpioRoot, fmt.Sprintf("gpio%d", number))
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(gpioRoot, "export"), []byte(fmt.Sprintf("%d", number)), 0o200); err != nil {
			return nil, fmt.Errorf("export gpio%d: %w", number, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "direction"), []byte("out"), 0o200); err != nil {
		return nil, fmt.Errorf("set gpio%d direction: %w", number, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "value"), os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open gpio%d value: %w", number, err)
	}
	p := &sysfsPin{number: number, value: f}
	_ = gpio.Register(p) // best-effort: a pin reused across two sinks would collide and is harmless to skip
	return p, nil
}

func (p *sysfsPin) String() string { return fmt.Sprintf("GPIO%d", p.number) }
func (p *sysfsPin) Number() int    { return p.number }

func (p *sysfsPin) Out(l gpio.Level) error {
	if p.value == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	b := byte('0')
	if l == gpio.High {
		b = '1'
	}
	if _, err := p.value.WriteAt([]byte{b}, 0); err != nil {
		return fmt.Errorf("gpio%d: %w", p.number, err)
	}
	return nil
}

func (p *sysfsPin) Halt() error { return p.Out(gpio.Low) }

func (p *sysfsPin) Close() error {
	if p.value == nil {
		return nil
	}
	gpio.Unregister(p.String())
	return p.value.Close()
}

type sysfsSink struct {
	power *sysfsPin
	err   *sysfsPin
}

func (s *sysfsSink) SetPower(on bool) error {
	return s.power.Out(gpio.Level(on))
}

func (s *sysfsSink) SetError(on bool) error {
	return s.err.Out(gpio.Level(on))
}

func (s *sysfsSink) Close() error {
	pe := s.power.Close()
	ee := s.err.Close()
	if pe != nil {
		return pe
	}
	return ee
}

type sysfsFixtureSink struct {
	pins map[int]*sysfsPin
}

func (s *sysfsFixtureSink) SetSlot(slot int, ok bool) error {
	p, found := s.pins[slot]
	if !found {
		return nil
	}
	return p.Out(gpio.Level(ok))
}

func (s *sysfsFixtureSink) Close() error {
	var first error
	for _, p := range s.pins {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
