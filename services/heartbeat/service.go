// Package heartbeat runs a callback on a fixed, adjustable period.
package heartbeat

import (
	"context"
	"time"
)

// Service calls Beat every interval until its context ends.
type Service struct {
	beat     func(time.Time)
	interval time.Duration
	reset    chan time.Duration
}

// New returns a Service; interval must be positive.
func New(interval time.Duration, beat func(time.Time)) *Service {
	if interval <= 0 {
		interval = time.Second
	}
	return &Service{beat: beat, interval: interval, reset: make(chan time.Duration, 1)}
}

// SetInterval changes the period from the next tick on. Non-positive values
// are ignored.
func (s *Service) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-s.reset:
	default:
	}
	s.reset <- d
}

// Run blocks until ctx is done.
func (s *Service) Run(ctx context.Context) {
	tick := time.NewTicker(s.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-tick.C:
			s.beat(t)
		case d := <-s.reset:
			tick.Reset(d)
		}
	}
}
