//go:build !(rp2040 || rp2350)

package main

import (
	"context"
	"net/http"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"robotcode-go/drivers/hbridge"
	"robotcode-go/drivers/tof"
	"robotcode-go/hal/platform"
	"robotcode-go/services/config"
	"robotcode-go/services/drive"
	"robotcode-go/services/httpapi"
	"robotcode-go/services/ranging"
)

// robot is the assembled daemon.
type robot struct {
	cfg    config.Config
	logger *zap.Logger

	board  *platform.Board
	sim    *platform.Sim // nil on real hardware
	motor  *hbridge.Device
	sensor *tof.Sensor
	ctrl   *drive.Controller
	rng    *ranging.Service
}

func openBoard(cfg config.Config, logger *zap.Logger) (*platform.Board, *platform.Sim, error) {
	switch cfg.Platform {
	case config.PlatformSim:
		b, s := platform.Simulated()
		return b, s, nil
	case config.PlatformPeriph:
		b, err := platform.Default()
		return b, nil, err
	}
	b, err := platform.Default()
	if err != nil {
		logger.Warn("no hardware backend, using simulated board", zap.Error(err))
		b, s := platform.Simulated()
		return b, s, nil
	}
	return b, nil, nil
}

func newRobot(cfg config.Config, logger *zap.Logger) (*robot, error) {
	b, sim, err := openBoard(cfg, logger)
	if err != nil {
		return nil, errors.Wrap(err, "open board")
	}
	r := &robot{cfg: cfg, logger: logger, board: b, sim: sim}

	var pins [4]hbridge.Pin
	for i, n := range []int{cfg.Motor.In1, cfg.Motor.In2, cfg.Motor.In3, cfg.Motor.In4} {
		p, err := b.Pin(n)
		if err != nil {
			_ = b.Close()
			return nil, errors.Wrapf(err, "motor in%d", i+1)
		}
		pins[i] = p
	}
	r.motor = hbridge.New(pins[0], pins[1], pins[2], pins[3])
	r.motor.Configure()
	r.ctrl = drive.NewController(r.motor, drive.Config{Turn90: cfg.Drive.Turn90, MaxDuration: cfg.Drive.MaxDuration})

	if cfg.ToF.Enabled {
		port, err := b.Port(cfg.ToF.Bus)
		if err != nil {
			_ = b.Close()
			return nil, errors.Wrap(err, "rangefinder bus")
		}
		r.sensor = tof.Open(port, b.Pins, tof.Config{
			XShut:        cfg.ToF.XShut,
			SDA:          cfg.ToF.SDA,
			SCL:          cfg.ToF.SCL,
			Address:      cfg.ToF.Address,
			PollInterval: cfg.ToF.PollInterval,
			Output:       os.Stdout,
		})
		if err := r.sensor.Start(); err != nil {
			// Keep serving; reads report the failure.
			logger.Warn("rangefinder init failed", zap.Error(err))
		} else {
			logger.Info("rangefinder ready", zap.String("bus", cfg.ToF.Bus), zap.Uint8("address", cfg.ToF.Address))
		}
		r.rng = ranging.New(r.sensor, ranging.Config{ReadTimeout: cfg.ToF.ReadTimeout})
	}
	logger.Info("robot assembled", zap.String("board", b.Name), zap.Bool("rangefinder", r.rng != nil))
	return r, nil
}

func (r *robot) handler() http.Handler {
	var rng httpapi.Ranger
	if r.rng != nil {
		rng = r.rng
	}
	return httpapi.New(r.ctrl, rng, r.logger.Named("http")).Handler()
}

// sample runs the ranging stream until ctx ends. A zero interval disables it.
func (r *robot) sample(ctx context.Context) {
	if r.rng == nil || r.cfg.Stream.Interval <= 0 {
		return
	}
	if err := r.rng.Run(ctx, r.cfg.Stream.Interval); err != nil {
		r.logger.Warn("range sampling stopped", zap.Error(err))
	}
}

// Close stops the motors and releases the hardware.
func (r *robot) Close() error {
	r.ctrl.Stop()
	var err error
	if r.sensor != nil {
		err = multierr.Append(err, r.sensor.Close())
	}
	return multierr.Append(err, r.board.Close())
}
