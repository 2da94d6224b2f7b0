// Package vl53lx provides the ST VL53LX-style multi-target ranging API on
// top of the TinyGo VL53L1X register driver:
//
//	d.Begin()                                // xshut as output, held low
//	d.Off()                                  // power the chip down
//	d.InitSensor(0x12)                       // power up, boot, move address
//	d.StartMeasurement()                     // continuous ranging
//	ready, err := d.MeasurementDataReady()
//	err = d.MultiRangingData(&data)
//	err = d.ClearInterruptAndStartMeasurement()
//
// Addresses passed to InitSensor use ST's 8-bit form (7-bit << 1).
//
// The VL53L1X reports a single target per cycle, so NumberOfObjectsFound is
// 0 or 1. Signal and ambient rates are 16.16 fixed-point Mcps as in ST's
// VL53LX_TargetRangeData_t.
//
// The underlying driver swallows bus errors; this package routes it through
// a shim that records the first failure of each operation and returns it.
package vl53lx

import (
	"errors"
	"time"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/vl53l1x"
)

// DefaultAddress is the power-on address in 8-bit form.
const DefaultAddress = vl53l1x.Address << 1

// MaxRangeResults is the number of target slots in MultiRangingData.
const MaxRangeResults = 4

// Range status codes (ST VL53LX_RANGESTATUS_*).
const (
	StatusRangeValid       uint8 = 0
	StatusSigmaFail        uint8 = 1
	StatusSignalFail       uint8 = 2
	StatusMinRangeClipped  uint8 = 3
	StatusOutOfBounds      uint8 = 4
	StatusHardwareFail     uint8 = 5
	StatusNoWrapCheckFail  uint8 = 6
	StatusWrapTargetFail   uint8 = 7
	StatusXtalkSignalFail  uint8 = 9
	StatusSynchronization  uint8 = 10
	StatusMinRangeFail     uint8 = 13
	StatusNone             uint8 = 255
)

var (
	ErrNotConnected = errors.New("vl53lx: sensor not found")
	ErrNotStarted   = errors.New("vl53lx: measurement not started")
)

// TargetRangeData is one detected object.
type TargetRangeData struct {
	RangeMilliMeter       int16  `json:"range_mm"`
	RangeStatus           uint8  `json:"range_status"`
	SignalRateRtnMegaCps  uint32 `json:"signal_rate_rtn_mcps"`  // 16.16 fixed point
	AmbientRateRtnMegaCps uint32 `json:"ambient_rate_rtn_mcps"` // 16.16 fixed point
}

// SignalMcps returns the return signal rate as a float.
func (t TargetRangeData) SignalMcps() float32 {
	return float32(t.SignalRateRtnMegaCps) / 65536.0
}

// AmbientMcps returns the ambient rate as a float.
func (t TargetRangeData) AmbientMcps() float32 {
	return float32(t.AmbientRateRtnMegaCps) / 65536.0
}

// MultiRangingData is the result of one ranging cycle.
type MultiRangingData struct {
	TimeStamp             uint32                           `json:"ts_ms"`
	StreamCount           uint8                            `json:"stream_count"`
	NumberOfObjectsFound  uint8                            `json:"objects"`
	RangeData             [MaxRangeResults]TargetRangeData `json:"range_data"`
	EffectiveSpadRtnCount uint16                           `json:"effective_spads"`
}

// Objects returns the populated slice of RangeData.
func (m *MultiRangingData) Objects() []TargetRangeData {
	n := int(m.NumberOfObjectsFound)
	if n > MaxRangeResults {
		n = MaxRangeResults
	}
	return m.RangeData[:n]
}

// DistanceMode mirrors vl53l1x.DistanceMode; the zero value selects Long.
type DistanceMode uint8

const (
	ModeDefault DistanceMode = iota
	ModeShort
	ModeMedium
	ModeLong
)

// Pin drives the XSHUT line. It may be nil when the line is hard-wired.
type Pin interface {
	ConfigureOutput(initial bool) error
	Set(level bool)
}

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// Mode defaults to Long.
	Mode DistanceMode
	// TimingBudgetUs defaults to 50000.
	TimingBudgetUs uint32
	// PeriodMs is the inter-measurement period, default 50.
	PeriodMs uint32
	// BootDelay is waited after releasing XSHUT, default 10 ms.
	BootDelay time.Duration
	// BootTimeoutMs bounds the firmware boot wait inside the driver, default 500.
	BootTimeoutMs uint32
	// Use2v8 selects 2V8 I/O mode.
	Use2v8 bool
}

func (c Config) withDefaults() Config {
	if c.Mode == ModeDefault {
		c.Mode = ModeLong
	}
	if c.TimingBudgetUs == 0 {
		c.TimingBudgetUs = 50000
	}
	if c.PeriodMs == 0 {
		c.PeriodMs = 50
	}
	if c.BootDelay == 0 {
		c.BootDelay = 10 * time.Millisecond
	}
	if c.BootTimeoutMs == 0 {
		c.BootTimeoutMs = 500
	}
	return c
}

// Device is one VL53LX-family sensor.
type Device struct {
	bus     *errBus
	dev     vl53l1x.Device
	xshut   Pin
	cfg     Config
	stream  uint8
	running bool
}

// New creates a Device on an already configured bus. It does not touch the
// hardware.
func New(bus drivers.I2C, xshut Pin, cfgs ...Config) *Device {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	b := &errBus{i2c: bus}
	return &Device{
		bus:   b,
		dev:   vl53l1x.New(b),
		xshut: xshut,
		cfg:   c.withDefaults(),
	}
}

// Address returns the current address in 8-bit form.
func (d *Device) Address() uint8 { return uint8(d.dev.Address << 1) }

// Begin claims XSHUT as an output, holding the sensor in shutdown.
func (d *Device) Begin() error {
	if d.xshut == nil {
		return nil
	}
	return d.xshut.ConfigureOutput(false)
}

// On releases XSHUT and waits for the boot delay.
func (d *Device) On() {
	if d.xshut != nil {
		d.xshut.Set(true)
	}
	time.Sleep(d.cfg.BootDelay)
}

// Off asserts XSHUT. The chip forgets its address and configuration.
func (d *Device) Off() error {
	if d.xshut != nil {
		d.xshut.Set(false)
	}
	d.running = false
	return nil
}

// InitSensor powers the chip up, runs the driver bring-up and, if addr
// differs from DefaultAddress, moves the chip to addr (8-bit form).
func (d *Device) InitSensor(addr uint8) error {
	d.On()
	d.bus.take()
	d.dev = vl53l1x.New(d.bus)
	d.dev.SetTimeout(d.cfg.BootTimeoutMs)
	if !d.dev.Configure(d.cfg.Use2v8) {
		if err := d.bus.take(); err != nil {
			return err
		}
		return ErrNotConnected
	}
	if d.cfg.Mode != ModeLong {
		d.dev.SetDistanceMode(toDriverMode(d.cfg.Mode))
	}
	if d.cfg.TimingBudgetUs != 50000 {
		d.dev.SetMeasurementTimingBudget(d.cfg.TimingBudgetUs)
	}
	if addr != 0 && addr != DefaultAddress {
		d.dev.SetAddress(addr >> 1)
	}
	d.stream = 0
	return d.bus.take()
}

// StartMeasurement starts continuous ranging.
func (d *Device) StartMeasurement() error {
	d.dev.StartContinuous(d.cfg.PeriodMs)
	if err := d.bus.take(); err != nil {
		return err
	}
	d.running = true
	return nil
}

// StopMeasurement aborts continuous ranging.
func (d *Device) StopMeasurement() error {
	d.dev.StopContinuous()
	d.running = false
	return d.bus.take()
}

// MeasurementDataReady reports whether a new result is waiting.
func (d *Device) MeasurementDataReady() (bool, error) {
	var r [1]byte
	reg := uint16(vl53l1x.GPIO_TIO_HV_STATUS)
	if err := d.bus.Tx(d.dev.Address, []byte{byte(reg >> 8), byte(reg)}, r[:]); err != nil {
		d.bus.take()
		return false, err
	}
	return r[0]&0x01 == 0, nil
}

// MultiRangingData reads the pending result into out.
func (d *Device) MultiRangingData(out *MultiRangingData) error {
	if !d.running {
		return ErrNotStarted
	}
	d.dev.Read(false)
	if err := d.bus.take(); err != nil {
		return err
	}
	d.stream++

	st := uint8(d.dev.Status())
	t := TargetRangeData{
		RangeMilliMeter:       int16(d.dev.Distance()),
		RangeStatus:           st,
		SignalRateRtnMegaCps:  cpsToFixed(d.dev.SignalRate()),
		AmbientRateRtnMegaCps: cpsToFixed(d.dev.AmbientRate()),
	}

	*out = MultiRangingData{
		TimeStamp:             uint32(time.Now().UnixMilli()),
		StreamCount:           d.stream,
		EffectiveSpadRtnCount: d.dev.EffectiveSPADCount(),
	}
	out.RangeData[0] = t
	if targetPresent(st) {
		out.NumberOfObjectsFound = 1
	}
	return nil
}

// ClearInterruptAndStartMeasurement acknowledges the current result so the
// next cycle can complete.
func (d *Device) ClearInterruptAndStartMeasurement() error {
	reg := uint16(vl53l1x.SYSTEM_INTERRUPT_CLEAR)
	err := d.bus.Tx(d.dev.Address, []byte{byte(reg >> 8), byte(reg), 0x01}, nil)
	d.bus.take()
	return err
}

// End stops ranging and shuts the sensor down.
func (d *Device) End() error {
	var err error
	if d.running {
		err = d.StopMeasurement()
	}
	if e := d.Off(); err == nil {
		err = e
	}
	return err
}

// targetPresent reports whether a status carries a usable object.
// No-target and hardware failures do not count as detections.
func targetPresent(st uint8) bool {
	switch st {
	case StatusNone, StatusSignalFail, StatusHardwareFail:
		return false
	default:
		return true
	}
}

// cpsToFixed converts counts per second to 16.16 fixed-point Mcps.
func cpsToFixed(cps int32) uint32 {
	if cps <= 0 {
		return 0
	}
	return uint32(uint64(cps) * 65536 / 1_000_000)
}

func toDriverMode(m DistanceMode) vl53l1x.DistanceMode {
	switch m {
	case ModeShort:
		return vl53l1x.SHORT
	case ModeMedium:
		return vl53l1x.MEDIUM
	default:
		return vl53l1x.LONG
	}
}
