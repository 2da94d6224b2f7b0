// hal/platform/board_linux.go
//go:build linux && !(rp2040 || rp2350)

package platform

import (
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"robotcode-go/errcode"
	"robotcode-go/hal"
)

// Default initialises periph.io host drivers and returns a board backed by
// the kernel's GPIO and I²C character devices (Raspberry Pi class hosts).
func Default() (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init")
	}
	return newBoard("periph", periphPinFactory{}, &periphI2CFactory{ports: make(map[string]*periphI2C)}), nil
}

// ---- GPIO ----

type periphPinFactory struct{}

func (periphPinFactory) ByNumber(n int) (hal.GPIOPin, bool) {
	p := gpioreg.ByName(strconv.Itoa(n))
	if p == nil {
		return nil, false
	}
	return &periphPin{p: p, n: n}, true
}

type periphPin struct {
	p gpio.PinIO
	n int
}

func (r *periphPin) ConfigureInput(pull hal.Pull) error {
	pl := gpio.Float
	switch pull {
	case hal.PullUp:
		pl = gpio.PullUp
	case hal.PullDown:
		pl = gpio.PullDown
	}
	return errors.Wrapf(r.p.In(pl, gpio.NoEdge), "gpio %d input", r.n)
}

func (r *periphPin) ConfigureOutput(initial bool) error {
	return errors.Wrapf(r.p.Out(gpio.Level(initial)), "gpio %d output", r.n)
}

func (r *periphPin) Set(level bool) { _ = r.p.Out(gpio.Level(level)) }
func (r *periphPin) Get() bool      { return r.p.Read() == gpio.High }
func (r *periphPin) Toggle()        { r.Set(!r.Get()) }
func (r *periphPin) Number() int    { return r.n }

// ---- I²C ----

// periphI2CFactory accepts any id; it is resolved by i2creg on Begin.
// "i2c0" and "" select the first registered bus.
type periphI2CFactory struct {
	mu    sync.Mutex
	ports map[string]*periphI2C
}

func (f *periphI2CFactory) ByID(id string) (hal.I2CPort, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.ports[id]
	if !ok {
		name := id
		if id == "i2c0" {
			name = ""
		}
		p = &periphI2C{name: name}
		f.ports[id] = p
	}
	return p, true
}

type periphI2C struct {
	mu   sync.Mutex
	name string
	bus  i2c.BusCloser
}

// SetPins is a no-op: pin muxing belongs to the kernel device tree.
func (p *periphI2C) SetPins(sda, scl int) {}

func (p *periphI2C) Begin() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bus != nil {
		return nil
	}
	b, err := i2creg.Open(p.name)
	if err != nil {
		return errors.Wrapf(err, "open i2c %q", p.name)
	}
	p.bus = b
	return nil
}

func (p *periphI2C) Tx(addr uint16, w, r []byte) error {
	p.mu.Lock()
	b := p.bus
	p.mu.Unlock()
	if b == nil {
		return errcode.NotReady
	}
	return b.Tx(addr, w, r)
}

func (p *periphI2C) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bus == nil {
		return nil
	}
	err := p.bus.Close()
	p.bus = nil
	return err
}
