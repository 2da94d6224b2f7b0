package tof

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"robotcode-go/drivers/vl53lx"
	"robotcode-go/errcode"
)

// Compile-time checks.
var (
	_ Ranger = (*vl53lx.Device)(nil)
	_ Ranger = (*fakeRanger)(nil)
)

// Scripted ranging driver.
type fakeRanger struct {
	calls []string

	notReady int   // polls reporting "not ready" before ready
	readyErr error // returned by every readiness query
	never    bool  // never becomes ready
	polls    int

	result   RangingResult
	fetchErr error
	fetches  int

	restarts   int
	restartErr error
	initAddr   uint8
	initErr    error
	ends       int
}

func (f *fakeRanger) Begin() error { f.calls = append(f.calls, "begin"); return nil }
func (f *fakeRanger) Off() error   { f.calls = append(f.calls, "off"); return nil }
func (f *fakeRanger) InitSensor(addr uint8) error {
	f.calls = append(f.calls, "init")
	f.initAddr = addr
	return f.initErr
}
func (f *fakeRanger) StartMeasurement() error {
	f.calls = append(f.calls, "start")
	return nil
}
func (f *fakeRanger) MeasurementDataReady() (bool, error) {
	f.polls++
	if f.readyErr != nil {
		return false, f.readyErr
	}
	if f.never {
		return false, nil
	}
	if f.notReady > 0 {
		f.notReady--
		return false, nil
	}
	return true, nil
}
func (f *fakeRanger) MultiRangingData(out *vl53lx.MultiRangingData) error {
	f.fetches++
	if f.fetchErr != nil {
		return f.fetchErr
	}
	*out = f.result
	return nil
}
func (f *fakeRanger) ClearInterruptAndStartMeasurement() error {
	f.restarts++
	return f.restartErr
}
func (f *fakeRanger) End() error { f.ends++; return nil }

type fakeBus struct {
	sda, scl int
	begun    int
	err      error
}

func (b *fakeBus) SetPins(sda, scl int) { b.sda, b.scl = sda, scl }
func (b *fakeBus) Begin() error         { b.begun++; return b.err }

func twoObjects() RangingResult {
	var m RangingResult
	m.StreamCount = 7
	m.NumberOfObjectsFound = 2
	m.RangeData[0] = vl53lx.TargetRangeData{RangeMilliMeter: 350, SignalRateRtnMegaCps: 10 << 16, AmbientRateRtnMegaCps: 1 << 15}
	m.RangeData[1] = vl53lx.TargetRangeData{RangeMilliMeter: 1200, SignalRateRtnMegaCps: 3 << 15, AmbientRateRtnMegaCps: 1 << 14}
	return m
}

func newTestSensor(r *fakeRanger) (*Sensor, *fakeBus, *bytes.Buffer) {
	bus := &fakeBus{}
	out := &bytes.Buffer{}
	cfg := DefaultConfig()
	cfg.Output = out
	return New(bus, r, cfg), bus, out
}

func TestConfigDefaults(t *testing.T) {
	s, _, _ := newTestSensor(&fakeRanger{})
	c := s.Config()
	if c.XShut != 19 || c.SDA != 20 || c.SCL != 21 || c.Address != 0x12 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestConfigKeepsPinZero(t *testing.T) {
	bus := &fakeBus{sda: -1, scl: -1}
	s := New(bus, &fakeRanger{}, Config{XShut: 2, SDA: 0, SCL: 1, Output: &bytes.Buffer{}})
	c := s.Config()
	if c.SDA != 0 || c.SCL != 1 || c.XShut != 2 || c.Address != DefaultAddress {
		t.Fatalf("config rewritten: %+v", c)
	}
	_ = s.Start()
	if bus.sda != 0 || bus.scl != 1 {
		t.Fatalf("bus pins %d/%d", bus.sda, bus.scl)
	}
}

func TestInitializeSequence(t *testing.T) {
	r := &fakeRanger{}
	s, bus, _ := newTestSensor(r)
	s.Initialize()

	if bus.sda != 20 || bus.scl != 21 || bus.begun != 1 {
		t.Fatalf("bus pins %d/%d begun %d", bus.sda, bus.scl, bus.begun)
	}
	want := []string{"begin", "off", "init", "start"}
	if diff := cmp.Diff(want, r.calls); diff != "" {
		t.Fatalf("call order (-want +got):\n%s", diff)
	}
	if r.initAddr != 0x12 {
		t.Fatalf("init address %#x", r.initAddr)
	}
}

func TestInitializeIgnoresFailures(t *testing.T) {
	r := &fakeRanger{initErr: errors.New("no chip")}
	s, bus, _ := newTestSensor(r)
	bus.err = errors.New("bus down")

	s.Initialize()
	if len(r.calls) != 4 {
		t.Fatalf("every step should run, got %v", r.calls)
	}

	r.calls = nil
	err := s.Start()
	if errcode.Of(err) != errcode.NotReady || !strings.Contains(err.Error(), "bus down") {
		t.Fatalf("Start should report the first failure, got %v", err)
	}
	if len(r.calls) != 4 {
		t.Fatalf("every step should run, got %v", r.calls)
	}
}

func TestReadDistanceZeroObjects(t *testing.T) {
	r := &fakeRanger{}
	r.result.NumberOfObjectsFound = 0
	s, _, _ := newTestSensor(r)

	if d := s.ReadDistance(); d != -1 {
		t.Fatalf("got %d, want -1", d)
	}
	if r.restarts != 0 {
		t.Fatalf("zero objects must not restart, got %d restarts", r.restarts)
	}
}

func TestReadDistanceTwoObjects(t *testing.T) {
	r := &fakeRanger{result: twoObjects()}
	s, _, _ := newTestSensor(r)

	if d := s.ReadDistance(); d != 350 {
		t.Fatalf("got %d, want 350", d)
	}
	if r.restarts != 1 {
		t.Fatalf("expected one restart, got %d", r.restarts)
	}
}

func TestReadDistanceNegativeOnlyWithoutObjects(t *testing.T) {
	for n := uint8(0); n <= 4; n++ {
		r := &fakeRanger{}
		r.result.NumberOfObjectsFound = n
		r.result.RangeData[0].RangeMilliMeter = 0
		s, _, _ := newTestSensor(r)
		d := s.ReadDistance()
		if (d == -1) != (n == 0) {
			t.Fatalf("objects=%d: got %d", n, d)
		}
	}
}

func TestReadDistanceWaitsForReady(t *testing.T) {
	r := &fakeRanger{notReady: 3, result: twoObjects()}
	s, _, _ := newTestSensor(r)
	if d := s.ReadDistance(); d != 350 {
		t.Fatalf("got %d", d)
	}
	if r.polls != 4 || r.fetches != 1 {
		t.Fatalf("polls=%d fetches=%d", r.polls, r.fetches)
	}
}

func TestReadDistanceQueryFailure(t *testing.T) {
	r := &fakeRanger{readyErr: errors.New("nack"), result: twoObjects()}
	s, _, _ := newTestSensor(r)
	if d := s.ReadDistance(); d != -1 {
		t.Fatalf("got %d", d)
	}
	if r.fetches != 0 || r.restarts != 0 {
		t.Fatalf("fetches=%d restarts=%d", r.fetches, r.restarts)
	}
	_, err := s.ReadDistanceContext(context.Background())
	if errcode.Of(err) != errcode.QueryFailed {
		t.Fatalf("expected query_failed, got %v", err)
	}
}

func TestReadDistanceRestartFailureKeepsDistance(t *testing.T) {
	r := &fakeRanger{result: twoObjects(), restartErr: errors.New("nack")}
	s, _, _ := newTestSensor(r)
	d, err := s.ReadDistanceContext(context.Background())
	if d != 350 || errcode.Of(err) != errcode.QueryFailed {
		t.Fatalf("got %d, %v", d, err)
	}
}

func TestReadMeasurementCopiesVerbatim(t *testing.T) {
	want := twoObjects()
	want.TimeStamp = 123456
	want.EffectiveSpadRtnCount = 0x2000
	want.RangeData[3] = vl53lx.TargetRangeData{RangeMilliMeter: -4, RangeStatus: 7}
	r := &fakeRanger{result: want}
	s, _, _ := newTestSensor(r)

	var got RangingResult
	if !s.ReadMeasurement(&got) {
		t.Fatal("expected true")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	if r.restarts != 0 {
		t.Fatal("ReadMeasurement must not restart")
	}

	if err := s.Restart(); err != nil || r.restarts != 1 {
		t.Fatalf("Restart: %v (restarts=%d)", err, r.restarts)
	}
}

func TestReadMeasurementFalseOnQueryError(t *testing.T) {
	r := &fakeRanger{readyErr: errors.New("nack")}
	s, _, _ := newTestSensor(r)
	var got RangingResult
	if s.ReadMeasurement(&got) {
		t.Fatal("expected false")
	}

	r = &fakeRanger{fetchErr: errors.New("nack")}
	s, _, _ = newTestSensor(r)
	if s.ReadMeasurement(&got) {
		t.Fatal("expected false on fetch failure")
	}
}

func TestShowMeasurementFormat(t *testing.T) {
	r := &fakeRanger{result: twoObjects()}
	s, _, out := newTestSensor(r)
	s.ShowMeasurement()

	want := "VL53LX Satellite: Count=7, #Objs=2 " +
		"status=0, D=350mm, Signal=10.00 Mcps, Ambient=0.50 Mcps" +
		"\r\n                               " +
		"status=0, D=1200mm, Signal=1.50 Mcps, Ambient=0.25 Mcps\r\n"
	if out.String() != want {
		t.Fatalf("got %q\nwant %q", out.String(), want)
	}
	if r.restarts != 1 {
		t.Fatalf("expected restart, got %d", r.restarts)
	}
}

func TestShowMeasurementRestartsWithoutObjects(t *testing.T) {
	r := &fakeRanger{}
	r.result.StreamCount = 3
	s, _, out := newTestSensor(r)
	s.ShowMeasurement()
	if out.String() != "VL53LX Satellite: Count=3, #Objs=0 \r\n" {
		t.Fatalf("got %q", out.String())
	}
	if r.restarts != 1 {
		t.Fatalf("expected restart, got %d", r.restarts)
	}
}

func TestShowMeasurementToWriter(t *testing.T) {
	r := &fakeRanger{result: twoObjects()}
	s, _, out := newTestSensor(r)
	var other bytes.Buffer
	if err := s.ShowMeasurementTo(context.Background(), &other); err != nil {
		t.Fatalf("show: %v", err)
	}
	if out.Len() != 0 || !strings.HasPrefix(other.String(), "VL53LX Satellite: Count=7, #Objs=2 ") {
		t.Fatalf("configured=%q given=%q", out.String(), other.String())
	}
	if r.restarts != 1 {
		t.Fatalf("expected restart, got %d", r.restarts)
	}
}

func TestShowMeasurementFetchFailure(t *testing.T) {
	r := &fakeRanger{fetchErr: errors.New("nack")}
	s, _, out := newTestSensor(r)
	if err := s.ShowMeasurementContext(context.Background()); errcode.Of(err) != errcode.QueryFailed {
		t.Fatalf("got %v", err)
	}
	if out.Len() != 0 || r.restarts != 0 {
		t.Fatalf("nothing should be printed or restarted: %q restarts=%d", out.String(), r.restarts)
	}
}

func TestContextTimeout(t *testing.T) {
	r := &fakeRanger{never: true}
	bus := &fakeBus{}
	cfg := DefaultConfig()
	cfg.PollInterval = time.Millisecond
	cfg.Output = &bytes.Buffer{}
	s := New(bus, r, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d, err := s.ReadDistanceContext(ctx)
	if d != -1 || errcode.Of(err) != errcode.Timeout {
		t.Fatalf("got %d, %v", d, err)
	}
	if r.fetches != 0 {
		t.Fatal("must not fetch before ready")
	}
}

func TestContextCanceledWhileSpinning(t *testing.T) {
	r := &fakeRanger{never: true}
	s, _, _ := newTestSensor(r)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var m RangingResult
	if err := s.ReadMeasurementContext(ctx, &m); errcode.Of(err) != errcode.Canceled {
		t.Fatalf("got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	r := &fakeRanger{}
	s, _, _ := newTestSensor(r)
	_ = s.Close()
	_ = s.Close()
	if r.ends != 1 {
		t.Fatalf("End called %d times", r.ends)
	}
}
