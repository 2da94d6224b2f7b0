// Package hal declares the board-facing resources the drivers are wired to.
// Concrete implementations live in hal/platform, selected per build.
package hal

import (
	"tinygo.org/x/drivers"
)

// ---- GPIO abstractions ----

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Toggle()
	Number() int
}

// PinFactory supplies GPIO pins by the board's number scheme.
type PinFactory interface {
	ByNumber(n int) (GPIOPin, bool)
}

// ---- Buses ----

// I2CPort is one I²C controller. Pins are assigned with SetPins and the
// controller is brought up with Begin; Tx before Begin is an error on real
// hardware.
//
// NOTE: Tx MUST perform a write followed by a repeated-start read when both
// w and r are provided.
type I2CPort interface {
	drivers.I2C
	SetPins(sda, scl int)
	Begin() error
	Close() error
}

// I2CFactory injects I²C ports by id ("i2c0", "i2c1", "/dev/i2c-1", ...).
type I2CFactory interface {
	ByID(id string) (I2CPort, bool)
}
