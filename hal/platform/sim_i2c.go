// hal/platform/sim_i2c.go
//go:build !(rp2040 || rp2350)

package platform

import (
	"strconv"
	"sync"

	"robotcode-go/errcode"
	"robotcode-go/hal"
)

// SimDevice is a peripheral attached to a SimI2C bus. Addr is consulted
// on every transaction so a device may move itself to a new address.
type SimDevice interface {
	Addr() uint16
	Tx(w, r []byte) error
}

// SimI2C implements hal.I2CPort in memory.
type SimI2C struct {
	mu      sync.Mutex
	id      string
	devices []SimDevice
	sda     int
	scl     int
	began   int
	closed  bool

	// Err, when set, is returned by every Tx.
	Err error
}

func NewSimI2C(id string) *SimI2C {
	return &SimI2C{id: id, sda: -1, scl: -1}
}

// Attach places d on the bus. It answers at whatever d.Addr() reports.
func (b *SimI2C) Attach(d SimDevice) {
	b.mu.Lock()
	b.devices = append(b.devices, d)
	b.mu.Unlock()
}

func (b *SimI2C) SetPins(sda, scl int) {
	b.mu.Lock()
	b.sda, b.scl = sda, scl
	b.mu.Unlock()
}

func (b *SimI2C) Begin() error {
	b.mu.Lock()
	b.began++
	b.closed = false
	b.mu.Unlock()
	return nil
}

func (b *SimI2C) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *SimI2C) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Err != nil {
		return b.Err
	}
	if b.closed {
		return errcode.NotReady
	}
	for _, d := range b.devices {
		if d.Addr() == addr {
			return d.Tx(w, r)
		}
	}
	return &errcode.E{C: errcode.Error, Op: "i2c.tx", Msg: "nack at 0x" + strconv.FormatUint(uint64(addr), 16)}
}

// Pins reports the last SetPins assignment.
func (b *SimI2C) Pins() (sda, scl int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sda, b.scl
}

// Began counts Begin calls.
func (b *SimI2C) Began() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.began
}

// Closed reports whether Close was called after the last Begin.
func (b *SimI2C) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// SetErr injects (or clears) a bus fault.
func (b *SimI2C) SetErr(err error) {
	b.mu.Lock()
	b.Err = err
	b.mu.Unlock()
}

type simI2CFactory struct {
	ports map[string]hal.I2CPort
}

func (f *simI2CFactory) ByID(id string) (hal.I2CPort, bool) {
	p, ok := f.ports[id]
	return p, ok
}
