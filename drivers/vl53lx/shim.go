package vl53lx

import "tinygo.org/x/drivers"

// errBus passes transactions through and remembers the first error since
// the last take. The vl53l1x driver discards Tx errors, so this is the only
// place they surface.
type errBus struct {
	i2c drivers.I2C
	err error
}

func (b *errBus) Tx(addr uint16, w, r []byte) error {
	err := b.i2c.Tx(addr, w, r)
	if err != nil && b.err == nil {
		b.err = err
	}
	return err
}

func (b *errBus) take() error {
	err := b.err
	b.err = nil
	return err
}
