package indicator

func init() {
	Register(noopBackend{})
}

// noopBackend discards every write. It always probes true so it is the
// universal fallback on hosts without a GPIO sysfs class (dev laptops,
// CI, the non-Pi hosts called out in the specification's design notes).
type noopBackend struct{}

func (noopBackend) Name() string  { return "zz-noop" }
func (noopBackend) Probe() bool   { return true }

func (noopBackend) Open(powerPin, errorPin int, fixturePins map[int]int) (Sink, FixtureSink, error) {
	return noopSink{}, noopFixtureSink{}, nil
}

type noopSink struct{}

func (noopSink) SetPower(on bool) error { return nil }
func (noopSink) SetError(on bool) error { return nil }
func (noopSink) Close() error           { return nil }

type noopFixtureSink struct{}

func (noopFixtureSink) SetSlot(slot int, ok bool) error { return nil }
func (noopFixtureSink) Close() error                    { return nil }
