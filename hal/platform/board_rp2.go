// hal/platform/board_rp2.go
//go:build rp2040 || rp2350

package platform

import (
	"machine"

	"robotcode-go/errcode"
	"robotcode-go/hal"
)

// DefaultI2CHz is the bus frequency used by Begin.
const DefaultI2CHz = 400 * machine.KHz

// Default returns the Raspberry Pi Pico / Pico 2 board. Logical pin numbers
// map directly to machine.Pin(n) (GP numbering).
func Default() (*Board, error) {
	f := &rp2I2CFactory{ports: map[string]hal.I2CPort{
		"i2c0": &rp2I2C{hw: machine.I2C0, sda: machine.I2C0_SDA_PIN, scl: machine.I2C0_SCL_PIN},
		"i2c1": &rp2I2C{hw: machine.I2C1, sda: machine.I2C1_SDA_PIN, scl: machine.I2C1_SCL_PIN},
	}}
	return newBoard("rp2", rp2PinFactory{}, f), nil
}

// ---- I²C implementation ----

type rp2I2CFactory struct {
	ports map[string]hal.I2CPort
}

func (f *rp2I2CFactory) ByID(id string) (hal.I2CPort, bool) {
	p, ok := f.ports[id]
	return p, ok
}

type rp2I2C struct {
	hw       *machine.I2C
	sda, scl machine.Pin
	began    bool
}

func (p *rp2I2C) SetPins(sda, scl int) {
	p.sda = machine.Pin(sda)
	p.scl = machine.Pin(scl)
}

func (p *rp2I2C) Begin() error {
	p.sda.Configure(machine.PinConfig{Mode: machine.PinI2C})
	p.scl.Configure(machine.PinConfig{Mode: machine.PinI2C})
	if err := p.hw.Configure(machine.I2CConfig{
		SDA:       p.sda,
		SCL:       p.scl,
		Frequency: DefaultI2CHz,
	}); err != nil {
		return err
	}
	p.began = true
	return nil
}

func (p *rp2I2C) Tx(addr uint16, w, r []byte) error {
	if !p.began {
		return errcode.NotReady
	}
	return p.hw.Tx(addr, w, r)
}

func (p *rp2I2C) Close() error {
	p.began = false
	return nil
}

// ---- GPIO implementation ----

type rp2PinFactory struct{}

func (rp2PinFactory) ByNumber(n int) (hal.GPIOPin, bool) {
	// Constrain to RP2’s user GPIOs (GP0..GP28).
	if n < 0 || n > 28 {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull hal.Pull) error {
	var mode machine.PinMode
	switch pull {
	case hal.PullUp:
		mode = machine.PinInputPullup
	case hal.PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }

func (r *rp2Pin) Toggle() {
	if r.p.Get() {
		r.p.Low()
	} else {
		r.p.High()
	}
}

func (r *rp2Pin) Number() int { return r.n }
