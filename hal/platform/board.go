package platform

import (
	"strconv"
	"sync"

	"go.uber.org/multierr"

	"robotcode-go/errcode"
	"robotcode-go/hal"
)

// Board bundles the pin and bus factories of one platform and keeps track
// of the ports handed out so they can be released together.
type Board struct {
	Name string
	Pins hal.PinFactory
	I2C  hal.I2CFactory

	mu     sync.Mutex
	opened map[string]hal.I2CPort
}

func newBoard(name string, pins hal.PinFactory, i2c hal.I2CFactory) *Board {
	return &Board{Name: name, Pins: pins, I2C: i2c, opened: make(map[string]hal.I2CPort)}
}

// Pin returns GPIO n or errcode.UnknownPin.
func (b *Board) Pin(n int) (hal.GPIOPin, error) {
	p, ok := b.Pins.ByNumber(n)
	if !ok || p == nil {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "board.pin", Msg: strconv.Itoa(n)}
	}
	return p, nil
}

// Port returns the I²C port with the given id. Repeated calls return the
// same port.
func (b *Board) Port(id string) (hal.I2CPort, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.opened[id]; ok {
		return p, nil
	}
	p, ok := b.I2C.ByID(id)
	if !ok || p == nil {
		return nil, &errcode.E{C: errcode.UnknownBus, Op: "board.port", Msg: id}
	}
	b.opened[id] = p
	return p, nil
}

// Close releases every port obtained through Port.
func (b *Board) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var err error
	for id, p := range b.opened {
		err = multierr.Append(err, p.Close())
		delete(b.opened, id)
	}
	return err
}
