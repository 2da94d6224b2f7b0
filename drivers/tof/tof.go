// Package tof is the robot's rangefinder: a VL53LX-class time-of-flight
// sensor on a two-wire bus, polled for multi-object ranging results.
//
// The plain methods (ReadDistance, ShowMeasurement, ReadMeasurement) spin
// until the chip reports a result, with no timeout. The *Context forms stop
// when ctx is done and report failures as errcode values.
//
// Cycle restarts differ per method: ReadDistance restarts only when an
// object was found, ShowMeasurement restarts after every successful read,
// and ReadMeasurement never restarts (call Restart).
package tof

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"robotcode-go/drivers/vl53lx"
	"robotcode-go/errcode"
	"robotcode-go/hal"
)

// Board wiring defaults.
const (
	DefaultXShut   = 19
	DefaultSDA     = 20
	DefaultSCL     = 21
	DefaultAddress = 0x12 // 8-bit form
)

// NoObject is returned by ReadDistance when nothing is in range.
const NoObject = -1

// RangingResult is one raw multi-object ranging result.
type RangingResult = vl53lx.MultiRangingData

// Ranger is the ranging driver surface the sensor is built on.
type Ranger interface {
	Begin() error
	Off() error
	InitSensor(addr uint8) error
	StartMeasurement() error
	MeasurementDataReady() (bool, error)
	MultiRangingData(out *vl53lx.MultiRangingData) error
	ClearInterruptAndStartMeasurement() error
	End() error
}

// Bus is the part of the I²C controller the sensor brings up.
type Bus interface {
	SetPins(sda, scl int)
	Begin() error
}

// Config holds the wiring and polling settings. Pin numbers are used as
// given, GP0 included; start from DefaultConfig for the reference wiring.
type Config struct {
	XShut   int
	SDA     int
	SCL     int
	Address uint8 // 0 means DefaultAddress

	// PollInterval is slept between readiness polls; 0 spins.
	PollInterval time.Duration
	// Output receives ShowMeasurement lines; nil means stdout.
	Output io.Writer
	// Driver is passed to the VL53LX driver by Open.
	Driver vl53lx.Config
}

// DefaultConfig returns the reference board wiring.
func DefaultConfig() Config {
	return Config{XShut: DefaultXShut, SDA: DefaultSDA, SCL: DefaultSCL, Address: DefaultAddress}
}

func (c Config) withDefaults() Config {
	if c.Address == 0 {
		c.Address = DefaultAddress
	}
	if c.Output == nil {
		c.Output = os.Stdout
	}
	return c
}

// Sensor owns one ranging driver. It is not safe for concurrent use.
type Sensor struct {
	bus    Bus
	r      Ranger
	cfg    Config
	closed bool
}

// New wraps an existing driver. Nothing touches the hardware until
// Initialize.
func New(bus Bus, r Ranger, cfg Config) *Sensor {
	return &Sensor{bus: bus, r: r, cfg: cfg.withDefaults()}
}

// Open builds a VL53LX driver on port with its XSHUT line taken from pins.
// A missing XSHUT pin leaves the line unmanaged.
func Open(port hal.I2CPort, pins hal.PinFactory, cfg Config) *Sensor {
	cfg = cfg.withDefaults()
	var xshut vl53lx.Pin
	if pins != nil {
		if p, ok := pins.ByNumber(cfg.XShut); ok {
			xshut = p
		}
	}
	return New(port, vl53lx.New(port, xshut, cfg.Driver), cfg)
}

// Config returns the effective configuration.
func (s *Sensor) Config() Config { return s.cfg }

// Initialize brings up the bus and the chip and starts continuous ranging.
// Failures are ignored; use Start to see them.
func (s *Sensor) Initialize() { _ = s.Start() }

// Start runs the Initialize sequence, attempting every step, and returns
// the first failure.
func (s *Sensor) Start() error {
	var first error
	keep := func(op string, err error) {
		if err != nil && first == nil {
			first = errcode.Wrap(errcode.NotReady, op, err)
		}
	}
	s.bus.SetPins(s.cfg.SDA, s.cfg.SCL)
	keep("tof.bus", s.bus.Begin())
	keep("tof.begin", s.r.Begin())
	keep("tof.off", s.r.Off())
	keep("tof.init", s.r.InitSensor(s.cfg.Address))
	keep("tof.start", s.r.StartMeasurement())
	s.closed = false
	return first
}

// WaitReady polls until a result is waiting, the readiness query fails, or
// ctx is done.
func (s *Sensor) WaitReady(ctx context.Context) error {
	var t *time.Timer
	for {
		ready, err := s.r.MeasurementDataReady()
		if err != nil {
			return errcode.Wrap(errcode.QueryFailed, "tof.ready", err)
		}
		if ready {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return ctxErr("tof.ready", err)
		}
		if s.cfg.PollInterval <= 0 {
			runtime.Gosched()
			continue
		}
		if t == nil {
			t = time.NewTimer(s.cfg.PollInterval)
			defer t.Stop()
		} else {
			t.Reset(s.cfg.PollInterval)
		}
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctxErr("tof.ready", ctx.Err())
		}
	}
}

// ReadDistance returns the first object's range in millimetres, or
// NoObject when nothing was detected or the chip could not be queried.
func (s *Sensor) ReadDistance() int {
	d, _ := s.ReadDistanceContext(context.Background())
	return d
}

// ReadDistanceContext is ReadDistance bounded by ctx. When an object was
// found but the restart fails, the distance is returned with the error.
func (s *Sensor) ReadDistanceContext(ctx context.Context) (int, error) {
	var m RangingResult
	if err := s.fetch(ctx, &m); err != nil {
		return NoObject, err
	}
	if m.NumberOfObjectsFound == 0 {
		return NoObject, nil
	}
	d := int(m.RangeData[0].RangeMilliMeter)
	if err := s.r.ClearInterruptAndStartMeasurement(); err != nil {
		return d, errcode.Wrap(errcode.QueryFailed, "tof.restart", err)
	}
	return d, nil
}

// ShowMeasurement writes one line describing every detected object to the
// configured output and restarts the cycle.
func (s *Sensor) ShowMeasurement() { _ = s.ShowMeasurementContext(context.Background()) }

// ShowMeasurementContext is ShowMeasurement bounded by ctx.
func (s *Sensor) ShowMeasurementContext(ctx context.Context) error {
	return s.ShowMeasurementTo(ctx, s.cfg.Output)
}

// ShowMeasurementTo is ShowMeasurementContext writing to w instead of the
// configured output.
func (s *Sensor) ShowMeasurementTo(ctx context.Context, w io.Writer) error {
	var m RangingResult
	if err := s.fetch(ctx, &m); err != nil {
		return err
	}
	if _, err := io.WriteString(w, FormatMeasurement(&m)); err != nil {
		return err
	}
	if err := s.r.ClearInterruptAndStartMeasurement(); err != nil {
		return errcode.Wrap(errcode.QueryFailed, "tof.restart", err)
	}
	return nil
}

// ReadMeasurement copies the raw result into out. It returns false when
// the chip reports an error. The cycle is not restarted.
func (s *Sensor) ReadMeasurement(out *RangingResult) bool {
	return s.ReadMeasurementContext(context.Background(), out) == nil
}

// ReadMeasurementContext is ReadMeasurement bounded by ctx.
func (s *Sensor) ReadMeasurementContext(ctx context.Context, out *RangingResult) error {
	return s.fetch(ctx, out)
}

// Restart acknowledges the current result and arms the next cycle.
func (s *Sensor) Restart() error {
	if err := s.r.ClearInterruptAndStartMeasurement(); err != nil {
		return errcode.Wrap(errcode.QueryFailed, "tof.restart", err)
	}
	return nil
}

// Close stops ranging and powers the chip down. It is idempotent.
func (s *Sensor) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.r.End()
}

func (s *Sensor) fetch(ctx context.Context, out *RangingResult) error {
	if err := s.WaitReady(ctx); err != nil {
		return err
	}
	if err := s.r.MultiRangingData(out); err != nil {
		return errcode.Wrap(errcode.QueryFailed, "tof.read", err)
	}
	return nil
}

// objectIndent lines up continuation objects under the first one.
const objectIndent = "\r\n                               "

// FormatMeasurement renders m the way ShowMeasurement prints it.
func FormatMeasurement(m *RangingResult) string {
	b := make([]byte, 0, 96)
	b = fmt.Appendf(b, "VL53LX Satellite: Count=%d, #Objs=%1d ", m.StreamCount, m.NumberOfObjectsFound)
	for j, o := range m.Objects() {
		if j != 0 {
			b = append(b, objectIndent...)
		}
		b = fmt.Appendf(b, "status=%d, D=%dmm, Signal=%.2f Mcps, Ambient=%.2f Mcps",
			o.RangeStatus, o.RangeMilliMeter, o.SignalMcps(), o.AmbientMcps())
	}
	return string(append(b, "\r\n"...))
}

func ctxErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errcode.Wrap(errcode.Timeout, op, err)
	}
	return errcode.Wrap(errcode.Canceled, op, err)
}
