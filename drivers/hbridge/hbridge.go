// Package hbridge drives a dual H-bridge (L298N style) from four digital
// outputs, one pin pair per motor side:
//
//	IN1/IN2  left side
//	IN3/IN4  right side
//
// There is no speed control; each motion writes a fixed level pattern and
// fully overwrites whatever was written before.
package hbridge

// Default pin numbers.
const (
	DefaultIN1 = 10
	DefaultIN2 = 11
	DefaultIN3 = 12
	DefaultIN4 = 13
)

// Pin is the subset of a GPIO output the driver needs.
type Pin interface {
	ConfigureOutput(initial bool) error
	Set(level bool)
}

// Motion selects one of the five physical states.
type Motion uint8

const (
	Stop Motion = iota
	Forward
	Backward
	Left
	Right
)

var motionNames = [...]string{"stop", "forward", "backward", "left", "right"}

func (m Motion) String() string {
	if int(m) < len(motionNames) {
		return motionNames[m]
	}
	return "unknown"
}

// ParseMotion is the inverse of Motion.String.
func ParseMotion(s string) (Motion, bool) {
	for i, n := range motionNames {
		if n == s {
			return Motion(i), true
		}
	}
	return Stop, false
}

// Pattern is the IN1..IN4 level set for one Motion.
type Pattern [4]bool

var patterns = [...]Pattern{
	Stop:     {false, false, false, false},
	Forward:  {true, false, true, false},
	Backward: {false, true, false, true},
	Left:     {false, true, true, false},
	Right:    {true, false, false, true},
}

// PatternOf returns the levels written for m.
func PatternOf(m Motion) Pattern {
	if int(m) < len(patterns) {
		return patterns[m]
	}
	return patterns[Stop]
}

// Device is a four-pin H-bridge.
type Device struct {
	pins [4]Pin
	last Motion
}

// New creates a Device. It does not touch the pins; call Configure once
// before any motion.
func New(in1, in2, in3, in4 Pin) *Device {
	return &Device{pins: [4]Pin{in1, in2, in3, in4}}
}

// Configure sets all four pins as outputs, driven low.
// Pin errors are ignored: configuration is assumed to succeed.
func (d *Device) Configure() {
	for _, p := range d.pins {
		_ = p.ConfigureOutput(false)
	}
	d.last = Stop
}

func (d *Device) Forward()  { d.Drive(Forward) }
func (d *Device) Backward() { d.Drive(Backward) }
func (d *Device) Left()     { d.Drive(Left) }
func (d *Device) Right()    { d.Drive(Right) }
func (d *Device) Stop()     { d.Drive(Stop) }

// Drive writes the pattern for m. Unknown values stop the motors.
func (d *Device) Drive(m Motion) {
	pat := PatternOf(m)
	for i, p := range d.pins {
		p.Set(pat[i])
	}
	if int(m) >= len(patterns) {
		m = Stop
	}
	d.last = m
}

// Last reports the most recently written motion.
func (d *Device) Last() Motion { return d.last }
