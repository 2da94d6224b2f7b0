// hal/platform/sim_vl53l1x.go
//go:build !(rp2040 || rp2350)

package platform

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers/vl53l1x"
)

// Result block offsets relative to RESULT_RANGE_STATUS, as read by the
// vl53l1x driver in a single 17-byte burst.
const (
	regResultStatus   = vl53l1x.RESULT_RANGE_STATUS
	regResultStream   = vl53l1x.RESULT_RANGE_STATUS + 2
	regResultSPADs    = vl53l1x.RESULT_RANGE_STATUS + 3
	regResultAmbient  = vl53l1x.RESULT_RANGE_STATUS + 7
	regResultRangeMM  = vl53l1x.RESULT_RANGE_STATUS + 13
	regResultSignal   = vl53l1x.RESULT_RANGE_STATUS + 15
	rawStatusComplete = 9 // RANGECOMPLETE
	rawStatusNoTarget = 4 // MSRCNOTARGET
)

// SimVL53L1X emulates the register file of a VL53L1X closely enough for
// the vl53l1x driver to boot, move address, range and clear interrupts.
// Powering it down (XSHUT low) returns it to the default address.
type SimVL53L1X struct {
	mu            sync.Mutex
	off           bool
	addr          uint16
	regs          map[uint16]byte
	ready         bool
	notReadyPolls int
	clears        int
}

func NewSimVL53L1X() *SimVL53L1X {
	s := &SimVL53L1X{
		addr:  vl53l1x.Address,
		regs:  make(map[uint16]byte),
		ready: true,
	}
	s.put16(vl53l1x.WHO_AM_I, vl53l1x.CHIP_ID)
	s.regs[vl53l1x.FIRMWARE_SYSTEM_STATUS] = 0x01
	s.put16(vl53l1x.OSC_MEASURED_FAST_OSC_FREQUENCY, 0xBEEF)
	s.put16(vl53l1x.RESULT_OSC_CALIBRATE_VAL, 0x0030)
	s.regs[regResultStream] = 1
	s.put16(regResultSPADs, 0x2000)
	s.put16(regResultSignal, 1280) // 10 Mcps in 9.7 fixed point
	s.put16(regResultAmbient, 64)  // 0.5 Mcps
	s.setRangeLocked(1000)
	return s
}

func (s *SimVL53L1X) Addr() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

func (s *SimVL53L1X) Tx(w, r []byte) error {
	if len(w) < 2 {
		return errors.New("vl53l1x sim: need a 16-bit register index")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.off {
		return errors.New("vl53l1x sim: in shutdown")
	}
	reg := uint16(w[0])<<8 | uint16(w[1])
	for i, v := range w[2:] {
		s.write(reg+uint16(i), v)
	}
	for i := range r {
		r[i] = s.read(reg + uint16(i))
	}
	return nil
}

// SetPowered models the XSHUT line. Shutdown forgets the programmed
// address and the interrupt state; the simulated scene is kept.
func (s *SimVL53L1X) SetPowered(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on || s.off {
		s.off = !on
		return
	}
	s.off = true
	s.addr = vl53l1x.Address
	delete(s.regs, vl53l1x.I2C_SLAVE_DEVICE_ADDRESS)
	delete(s.regs, vl53l1x.SYSTEM_INTERRUPT_CLEAR)
	s.regs[regResultStream] = 1
}

// Powered reports whether XSHUT is released.
func (s *SimVL53L1X) Powered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.off
}

func (s *SimVL53L1X) write(reg uint16, v byte) {
	switch reg {
	case vl53l1x.I2C_SLAVE_DEVICE_ADDRESS:
		s.addr = uint16(v & 0x7F)
	case vl53l1x.SYSTEM_INTERRUPT_CLEAR:
		if v&0x01 != 0 {
			s.clears++
			s.regs[regResultStream]++
		}
	}
	s.regs[reg] = v
}

func (s *SimVL53L1X) read(reg uint16) byte {
	v := s.regs[reg]
	if reg == vl53l1x.GPIO_TIO_HV_STATUS {
		// Bit 0 low means a new result is waiting.
		if !s.ready || s.notReadyPolls > 0 {
			if s.notReadyPolls > 0 {
				s.notReadyPolls--
			}
			return v | 0x01
		}
		return v &^ 0x01
	}
	return v
}

func (s *SimVL53L1X) put16(reg uint16, v uint16) {
	s.regs[reg] = byte(v >> 8)
	s.regs[reg+1] = byte(v)
}

func (s *SimVL53L1X) setRangeLocked(mm uint16) {
	// Inverse of the driver's (raw*2011 + 0x400) / 0x800 scaling.
	raw := (uint32(mm)*0x800 + 1005) / 2011
	s.put16(regResultRangeMM, uint16(raw))
	s.regs[regResultStatus] = rawStatusComplete
}

// SetRange makes the next results report a valid target at mm.
func (s *SimVL53L1X) SetRange(mm uint16) {
	s.mu.Lock()
	s.setRangeLocked(mm)
	s.mu.Unlock()
}

// SetNoTarget makes the next results report no target.
func (s *SimVL53L1X) SetNoTarget() {
	s.mu.Lock()
	s.regs[regResultStatus] = rawStatusNoTarget
	s.mu.Unlock()
}

// SetRates sets the raw 9.7 fixed-point signal and ambient rates (Mcps).
// Keep both below 2048: the driver scales them in 32-bit arithmetic.
func (s *SimVL53L1X) SetRates(signal, ambient uint16) {
	s.mu.Lock()
	s.put16(regResultSignal, signal)
	s.put16(regResultAmbient, ambient)
	s.mu.Unlock()
}

// SetReady controls the data-ready flag.
func (s *SimVL53L1X) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.notReadyPolls = 0
	s.mu.Unlock()
}

// SetReadyAfter reports "not ready" for the next n status polls.
func (s *SimVL53L1X) SetReadyAfter(n int) {
	s.mu.Lock()
	s.ready = true
	s.notReadyPolls = n
	s.mu.Unlock()
}

// InterruptClears counts SYSTEM_INTERRUPT_CLEAR writes.
func (s *SimVL53L1X) InterruptClears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// Reg returns a raw register byte.
func (s *SimVL53L1X) Reg(reg uint16) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[reg]
}
