// hal/platform/sim_gpio.go
//go:build !(rp2040 || rp2350)

package platform

import (
	"sync"

	"robotcode-go/hal"
)

// SimPin implements hal.GPIOPin in memory.
type SimPin struct {
	mu         sync.RWMutex
	number     int
	level      bool
	modeOut    bool
	pull       hal.Pull
	configured int
	writes     int
	watch      func(level bool)
}

// notify runs the watcher outside p.mu so it may call back into the pin.
func (p *SimPin) notify(level bool) {
	p.mu.RLock()
	fn := p.watch
	p.mu.RUnlock()
	if fn != nil {
		fn(level)
	}
}

func (p *SimPin) ConfigureInput(pull hal.Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.pull = pull
	p.configured++
	p.mu.Unlock()
	return nil
}

func (p *SimPin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.level = initial
	p.configured++
	p.mu.Unlock()
	p.notify(initial)
	return nil
}

func (p *SimPin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.writes++
	p.mu.Unlock()
	p.notify(level)
}

func (p *SimPin) Get() bool {
	p.mu.RLock()
	v := p.level
	p.mu.RUnlock()
	return v
}

func (p *SimPin) Toggle() {
	p.mu.Lock()
	p.level = !p.level
	v := p.level
	p.writes++
	p.mu.Unlock()
	p.notify(v)
}

func (p *SimPin) Number() int { return p.number }

// IsOutput reports whether the pin was last configured as an output.
func (p *SimPin) IsOutput() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeOut
}

// Configured counts ConfigureInput/ConfigureOutput calls.
func (p *SimPin) Configured() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.configured
}

// SimPinFactory returns stable *SimPin instances per number in [0, Max].
type SimPinFactory struct {
	Max  int
	mu   sync.Mutex
	pins map[int]*SimPin
}

func (f *SimPinFactory) ByNumber(n int) (hal.GPIOPin, bool) {
	if n < 0 || (f.Max > 0 && n > f.Max) {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = make(map[int]*SimPin)
	}
	p, ok := f.pins[n]
	if !ok {
		p = &SimPin{number: n}
		f.pins[n] = p
	}
	return p, true
}

// Watch calls fn with the new level whenever pin n is driven.
func (f *SimPinFactory) Watch(n int, fn func(level bool)) bool {
	gp, ok := f.ByNumber(n)
	if !ok {
		return false
	}
	p := gp.(*SimPin)
	p.mu.Lock()
	p.watch = fn
	p.mu.Unlock()
	return true
}

// Get exposes the underlying *SimPin once it has been handed out.
func (f *SimPinFactory) Get(n int) (*SimPin, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pins[n]
	return p, ok
}
