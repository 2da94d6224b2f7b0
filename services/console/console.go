// Package console is a line-oriented command interpreter for driving the
// robot and reading the rangefinder from a serial port or terminal.
package console

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"robotcode-go/errcode"
	"robotcode-go/services/drive"
)

// Driver executes actions; *drive.Controller implements it.
type Driver interface {
	Execute(ctx context.Context, a drive.Action) error
	Stop()
}

// Ranger reads the rangefinder; *ranging.Service implements it.
type Ranger interface {
	Distance(ctx context.Context) (int, error)
	Show(ctx context.Context, w io.Writer) error
}

const helpText = `commands:
  forward|backward [ms]   drive (hold until stop without ms)
  left|right [deg]        turn in place, default 90
  drive <dir> [ms]        same as forward/backward
  turn <dir> [deg]        same as left/right
  spin [ms]               rotate clockwise
  pause <ms>              motors off for ms
  follow_line             not available on this robot
  stop                    stop and cancel the running action
  distance                read the rangefinder once
  show                    print a full ranging report
  help                    this text
`

// Console interprets command lines. Timed actions run in the background so
// stop stays responsive; their outcome is reported when they finish.
type Console struct {
	drv Driver
	rng Ranger

	mu sync.Mutex // output
	w  io.Writer
	wg sync.WaitGroup
}

// New creates a console writing replies to w. rng may be nil.
func New(drv Driver, rng Ranger, w io.Writer) *Console {
	return &Console{drv: drv, rng: rng, w: w}
}

// Run reads lines from r until EOF or ctx is done, then waits for running
// actions to finish.
func (c *Console) Run(ctx context.Context, r io.Reader) error {
	defer c.wg.Wait()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		c.Exec(ctx, sc.Text())
	}
	return sc.Err()
}

// Exec runs one command line.
func (c *Console) Exec(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	word := strings.ToLower(strings.Fields(line)[0])
	switch word {
	case "help", "?":
		c.print(helpText)
		return
	case "distance", "show":
		if c.rng == nil {
			c.fail(&errcode.E{C: errcode.NotReady, Op: "console." + word, Msg: "no rangefinder"})
			return
		}
		if word == "show" {
			c.mu.Lock()
			err := c.rng.Show(ctx, c.w)
			c.mu.Unlock()
			if err != nil {
				c.fail(err)
			}
			return
		}
		d, err := c.rng.Distance(ctx)
		if err != nil {
			c.fail(err)
			return
		}
		if d < 0 {
			c.print("distance: none\r\n")
			return
		}
		c.print("distance: " + strconv.Itoa(d) + "mm\r\n")
		return
	}

	a, err := ParseAction(line)
	if err != nil {
		c.fail(err)
		return
	}
	if a.Command == drive.CmdStop {
		c.drv.Stop()
		c.print("ok\r\n")
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := c.drv.Execute(ctx, a); err != nil {
			c.fail(err)
			return
		}
		c.print("ok " + string(a.Command) + "\r\n")
	}()
}

// Wait blocks until every background action has finished.
func (c *Console) Wait() { c.wg.Wait() }

func (c *Console) print(s string) {
	c.mu.Lock()
	_, _ = io.WriteString(c.w, s)
	c.mu.Unlock()
}

func (c *Console) fail(err error) {
	c.print("error: " + err.Error() + "\r\n")
}
