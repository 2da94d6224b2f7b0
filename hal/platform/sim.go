// hal/platform/sim.go
//go:build !(rp2040 || rp2350)

package platform

import "robotcode-go/hal"

// Sim exposes the in-memory hardware behind a simulated Board.
type Sim struct {
	Pins *SimPinFactory
	Bus  *SimI2C
	ToF  *SimVL53L1X
}

// SimXShut is the GPIO wired to the emulated VL53L1X's XSHUT input.
const SimXShut = 19

// Simulated builds a board with 29 GPIOs (RP2 numbering) and one I²C port,
// "i2c0", carrying an emulated VL53L1X at its power-on address with its
// XSHUT on SimXShut.
func Simulated() (*Board, *Sim) {
	pins := &SimPinFactory{Max: 28}
	bus := NewSimI2C("i2c0")
	tof := NewSimVL53L1X()
	bus.Attach(tof)
	pins.Watch(SimXShut, tof.SetPowered)
	f := &simI2CFactory{ports: map[string]hal.I2CPort{"i2c0": bus}}
	return newBoard("sim", pins, f), &Sim{Pins: pins, Bus: bus, ToF: tof}
}
