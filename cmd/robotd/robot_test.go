//go:build !(rp2040 || rp2350)

package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"robotcode-go/drivers/hbridge"
	"robotcode-go/services/config"
	"robotcode-go/services/httpapi"
)

func simRobot(t *testing.T, mutate func(*config.Config)) *robot {
	t.Helper()
	cfg, err := config.Load(config.Options{Profile: "sim", Environ: map[string]string{}})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := newRobot(cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newRobot: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func get(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode
}

func TestSimRobotServes(t *testing.T) {
	r := simRobot(t, nil)
	if r.sim == nil {
		t.Fatal("expected simulated board")
	}
	srv := httptest.NewServer(r.handler())
	defer srv.Close()

	r.sim.ToF.SetRange(333)
	var d httpapi.DistanceResponse
	if status := get(t, srv.URL+"/distance", &d); status != http.StatusOK || d.DistanceMM != 333 {
		t.Fatalf("distance: status %d body %+v", status, d)
	}

	var acts httpapi.ActionsResponse
	if status := get(t, srv.URL+"/drive?direction=forward&duration=5", &acts); status != http.StatusOK {
		t.Fatalf("drive: status %d", status)
	}
	if r.motor.Last() != hbridge.Stop {
		t.Fatalf("motor left in %v", r.motor.Last())
	}
	in1, _ := r.sim.Pins.Get(r.cfg.Motor.In1)
	if !in1.IsOutput() || in1.Get() {
		t.Fatal("IN1 not an idle output")
	}
}

func TestRobotWithoutRangefinder(t *testing.T) {
	r := simRobot(t, func(c *config.Config) { c.ToF.Enabled = false })
	if r.rng != nil || r.sensor != nil {
		t.Fatal("rangefinder built while disabled")
	}
	srv := httptest.NewServer(r.handler())
	defer srv.Close()
	var e httpapi.ErrResponse
	if status := get(t, srv.URL+"/distance", &e); status != http.StatusServiceUnavailable {
		t.Fatalf("status %d", status)
	}
}

func TestRobotRejectsUnknownBus(t *testing.T) {
	cfg, _ := config.Load(config.Options{Profile: "sim", Environ: map[string]string{}})
	cfg.ToF.Bus = "i2c7"
	if _, err := newRobot(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatal("unknown bus accepted")
	}
}

func TestCloseReleasesHardware(t *testing.T) {
	r := simRobot(t, nil)
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	xshut, _ := r.sim.Pins.Get(r.cfg.ToF.XShut)
	if xshut.Get() {
		t.Fatal("sensor still powered")
	}
	if !r.sim.Bus.Closed() {
		t.Fatal("bus left open")
	}
}
