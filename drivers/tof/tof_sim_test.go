//go:build !(rp2040 || rp2350)

package tof

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"robotcode-go/drivers/vl53lx"
	"robotcode-go/hal/platform"
)

func TestOpenOnSimulatedBoard(t *testing.T) {
	board, sim := platform.Simulated()
	port, err := board.Port("i2c0")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	out := &bytes.Buffer{}
	cfg := DefaultConfig()
	cfg.Output = out
	cfg.Driver = vl53lx.Config{BootDelay: time.Microsecond}
	s := Open(port, board.Pins, cfg)
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if sda, scl := sim.Bus.Pins(); sda != 20 || scl != 21 {
		t.Fatalf("bus pins %d/%d", sda, scl)
	}
	if sim.ToF.Addr() != 0x09 {
		t.Fatalf("sensor at %#x", sim.ToF.Addr())
	}

	sim.ToF.SetRange(420)
	if d := s.ReadDistance(); d != 420 {
		t.Fatalf("distance %d", d)
	}

	sim.ToF.SetNoTarget()
	if d := s.ReadDistance(); d != NoObject {
		t.Fatalf("expected no object, got %d", d)
	}

	sim.ToF.SetRange(800)
	s.ShowMeasurement()
	if !strings.Contains(out.String(), "D=800mm, Signal=10.00 Mcps, Ambient=0.50 Mcps\r\n") {
		t.Fatalf("unexpected report %q", out.String())
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	xshut, _ := sim.Pins.Get(DefaultXShut)
	if xshut.Get() {
		t.Fatal("xshut should be low after Close")
	}
}

func TestRestartAfterCloseOnSimulatedBoard(t *testing.T) {
	board, sim := platform.Simulated()
	port, err := board.Port("i2c0")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Output = &bytes.Buffer{}
	cfg.Driver = vl53lx.Config{BootDelay: time.Microsecond}
	s := Open(port, board.Pins, cfg)

	for i := 0; i < 2; i++ {
		if err := s.Start(); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		if sim.ToF.Addr() != 0x09 {
			t.Fatalf("start %d: sensor at %#x", i, sim.ToF.Addr())
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
		if sim.ToF.Powered() {
			t.Fatalf("close %d: sensor left powered", i)
		}
	}
}
