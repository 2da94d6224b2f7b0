// Package drive turns timed actions into H-bridge motions.
package drive

import (
	"context"
	"errors"
	"sync"
	"time"

	"robotcode-go/drivers/hbridge"
	"robotcode-go/errcode"
	"robotcode-go/x/mathx"
	"robotcode-go/x/timex"
)

// Motor is the motion sink, normally an *hbridge.Device.
type Motor interface {
	Drive(m hbridge.Motion)
}

type Config struct {
	// Turn90 is how long a 90 degree turn takes. Default 600 ms.
	Turn90 time.Duration
	// MaxDuration caps every timed action. Default 10 s.
	MaxDuration time.Duration
}

func (c Config) withDefaults() Config {
	if c.Turn90 <= 0 {
		c.Turn90 = 600 * time.Millisecond
	}
	if c.MaxDuration <= 0 {
		c.MaxDuration = 10 * time.Second
	}
	return c
}

// Controller runs one action at a time.
type Controller struct {
	motor Motor
	cfg   Config

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64

	motorMu sync.Mutex
}

func NewController(m Motor, cfg Config) *Controller {
	return &Controller{motor: m, cfg: cfg.withDefaults()}
}

// Plan returns the motion and run time Execute would use for a.
func (c *Controller) Plan(a Action) (hbridge.Motion, time.Duration) {
	d := a.Duration
	if a.Command == CmdTurn {
		deg := a.Degrees
		if deg == 0 {
			deg = DefaultDegrees
		}
		// Bound deg before multiplying so the product stays in range.
		maxDeg := time.Duration(90) * (c.cfg.MaxDuration/c.cfg.Turn90 + 1)
		d = mathx.MulDiv(c.cfg.Turn90, mathx.Clamp(time.Duration(deg), 0, maxDeg), 90)
	}
	return a.Motion(), mathx.Clamp(d, 0, c.cfg.MaxDuration)
}

// Execute performs a and blocks until it completes, ctx is done or Stop is
// called. Timed moves always end with the motors stopped. A second timed
// action while one is running fails with errcode.Busy.
func (c *Controller) Execute(ctx context.Context, a Action) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if a.Command == CmdStop {
		c.Stop()
		return nil
	}
	m, d := c.Plan(a)

	// Untimed drive/spin latch the motion.
	if d == 0 && (a.Command == CmdDrive || a.Command == CmdSpin) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.cancel != nil {
			return &errcode.E{C: errcode.Busy, Op: "drive." + string(a.Command)}
		}
		c.drive(m)
		return nil
	}

	run, gen, err := c.begin(ctx, a)
	if err != nil {
		return err
	}
	defer c.end(gen)

	c.drive(m)
	err = timex.Sleep(run, d)
	c.drive(hbridge.Stop)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errcode.Wrap(errcode.Timeout, "drive."+string(a.Command), err)
		}
		return errcode.Wrap(errcode.Canceled, "drive."+string(a.Command), err)
	}
	return nil
}

// Stop cancels the running action, if any, and stops the motors.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.drive(hbridge.Stop)
	c.mu.Unlock()
}

// Busy reports whether a timed action is running.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

func (c *Controller) begin(ctx context.Context, a Action) (context.Context, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		return nil, 0, &errcode.E{C: errcode.Busy, Op: "drive." + string(a.Command)}
	}
	run, cancel := context.WithCancel(ctx)
	c.gen++
	c.cancel = cancel
	return run, c.gen, nil
}

func (c *Controller) end(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen && c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) drive(m hbridge.Motion) {
	c.motorMu.Lock()
	c.motor.Drive(m)
	c.motorMu.Unlock()
}
