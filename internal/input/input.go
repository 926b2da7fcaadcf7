// Package input abstracts the joystick: a pull API over either a physical
// HID device or a virtual override written through the HTTP surface
// (spec.md §4.1).
package input

import (
	"sync"
	"sync/atomic"
)

// Axis indices, matching the HOTAS convention in spec.md §4.1.
const (
	AxisPan      = 0
	AxisTilt     = 1
	AxisThrottle = 2
	AxisZoom     = 3

	minAxes = 4
)

// Sample is one polled reading: axes in [-1, +1] and the current button
// levels (not edges — edge extraction happens in internal/buttons).
type Sample struct {
	Axes    [minAxes]float32
	Buttons []bool
}

// Source is the pull API both the hardware and virtual backends implement.
type Source interface {
	// Poll returns the current sample. Never blocks.
	Poll() Sample
	// Available reports whether a backing device is present (hardware) or
	// always true for the virtual source. A false Available does not mean
	// error — spec.md §4.1 calls this "idle", not "error".
	Available() bool
}

// Device is the minimal handle the hardware backend polls. Real
// implementations wrap a HID library; the admission check and health pill
// only depend on this interface.
type Device interface {
	// Read returns the latest axis and button state. An error means the
	// device is gone (unplugged); it is not fatal to the controller.
	Read() (axes [minAxes]float32, buttons []bool, err error)
	Close() error
}

// DeviceLister enumerates and opens hardware input devices. USB/HID
// enumeration is an external collaborator per spec.md §1; NullDeviceLister
// is the default no-op implementation used when no real backend is wired
// in at build time.
type DeviceLister interface {
	List() []DeviceInfo
	Open(id string) (Device, error)
}

// DeviceInfo describes one enumerable input device for GET /api/usb/devices.
type DeviceInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// NullDeviceLister always reports no devices. It mirrors the no-op
// indicator backend: a safe default for hosts with no real HID backend
// compiled in.
type NullDeviceLister struct{}

func (NullDeviceLister) List() []DeviceInfo           { return nil }
func (NullDeviceLister) Open(id string) (Device, error) { return nil, errNoDevice }

var errNoDevice = deviceUnavailableError("input: no hardware device backend available")

type deviceUnavailableError string

func (e deviceUnavailableError) Error() string { return string(e) }

// HardwareSource polls a Device when one has been opened, and reports
// Available()==false (not an error) otherwise.
type HardwareSource struct {
	mu     sync.Mutex
	device Device
}

// NewHardwareSource returns a HardwareSource with no device open.
func NewHardwareSource() *HardwareSource {
	return &HardwareSource{}
}

// Attach swaps in an opened device (or nil to detach).
func (h *HardwareSource) Attach(d Device) {
	h.mu.Lock()
	old := h.device
	h.device = d
	h.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// Available reports whether a device is currently attached.
func (h *HardwareSource) Available() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.device != nil
}

// Poll reads the attached device. If the device errors (e.g. unplugged),
// it is detached and a zeroed sample is returned; the caller sees
// Available()==false on the next call.
func (h *HardwareSource) Poll() Sample {
	h.mu.Lock()
	d := h.device
	h.mu.Unlock()
	if d == nil {
		return Sample{}
	}
	axes, buttons, err := d.Read()
	if err != nil {
		h.Attach(nil)
		return Sample{}
	}
	return Sample{Axes: axes, Buttons: buttons}
}

// VirtualSample is what the HTTP surface writes for the virtual joystick.
type VirtualSample struct {
	X        float32 `json:"x"`
	Y        float32 `json:"y"`
	Throttle float32 `json:"throttle"`
	ZAxis    float32 `json:"z_axis"`
	Buttons  []bool  `json:"buttons"`
}

// VirtualSource serves samples written by the HTTP surface through an
// atomically-swapped holder (spec.md §5 "Virtual-joystick buffer").
type VirtualSource struct {
	holder atomic.Pointer[VirtualSample]
}

// NewVirtualSource returns a VirtualSource seeded with a centered, buttonless
// sample.
func NewVirtualSource() *VirtualSource {
	v := &VirtualSource{}
	v.holder.Store(&VirtualSample{})
	return v
}

// Write stores a new virtual sample; the next Poll() observes it.
func (v *VirtualSource) Write(s VirtualSample) {
	cp := s
	v.holder.Store(&cp)
}

// Available always returns true: the virtual source has no device to lose.
func (v *VirtualSource) Available() bool { return true }

// Poll loads the latest written sample.
func (v *VirtualSource) Poll() Sample {
	s := v.holder.Load()
	return Sample{
		Axes:    [minAxes]float32{s.X, s.Y, s.Throttle, s.ZAxis},
		Buttons: s.Buttons,
	}
}

// Switch selects between a HardwareSource and a VirtualSource. The swap is
// atomic and keeps the hardware device handle open when switching away from
// it (spec.md §4.1).
type Switch struct {
	hw      *HardwareSource
	virtual *VirtualSource
	useVirt atomic.Bool
}

// NewSwitch wires a Switch over the given hardware and virtual sources.
func NewSwitch(hw *HardwareSource, virtual *VirtualSource) *Switch {
	return &Switch{hw: hw, virtual: virtual}
}

// SetVirtual toggles which backing source Poll() reads from.
func (s *Switch) SetVirtual(on bool) { s.useVirt.Store(on) }

// UsingVirtual reports the current selection.
func (s *Switch) UsingVirtual() bool { return s.useVirt.Load() }

// Available reflects the currently-selected source.
func (s *Switch) Available() bool {
	if s.useVirt.Load() {
		return s.virtual.Available()
	}
	return s.hw.Available()
}

// Poll reads from the currently-selected source.
func (s *Switch) Poll() Sample {
	if s.useVirt.Load() {
		return s.virtual.Poll()
	}
	return s.hw.Poll()
}
