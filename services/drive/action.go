package drive

import (
	"time"

	"robotcode-go/drivers/hbridge"
	"robotcode-go/errcode"
)

// Command names an action.
type Command string

const (
	CmdDrive      Command = "drive"
	CmdTurn       Command = "turn"
	CmdPause      Command = "pause"
	CmdSpin       Command = "spin"
	CmdFollowLine Command = "follow_line"
	CmdStop       Command = "stop"
)

// DefaultDegrees is used by turn when Degrees is 0.
const DefaultDegrees = 90

// Action is one robot instruction.
//
// Direction is forward|backward for drive and left|right for turn.
// Duration applies to drive, pause and spin; a zero drive or spin holds the
// motion until the next action or Stop.
type Action struct {
	Command   Command       `json:"command"`
	Direction string        `json:"direction,omitempty"`
	Duration  time.Duration `json:"-"`
	Degrees   int           `json:"degrees,omitempty"`
}

// Validate checks the action's parameters for its command.
func (a Action) Validate() error {
	op := "drive." + string(a.Command)
	if a.Duration < 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "negative duration"}
	}
	switch a.Command {
	case CmdDrive:
		if a.Direction != "forward" && a.Direction != "backward" {
			return &errcode.E{C: errcode.InvalidDirection, Op: op, Msg: "direction must be forward or backward"}
		}
	case CmdTurn:
		if a.Direction != "left" && a.Direction != "right" {
			return &errcode.E{C: errcode.InvalidDirection, Op: op, Msg: "direction must be left or right"}
		}
		if a.Degrees < 0 {
			return &errcode.E{C: errcode.InvalidParams, Op: op, Msg: "negative degrees"}
		}
	case CmdPause, CmdSpin, CmdStop:
	case CmdFollowLine:
		return &errcode.E{C: errcode.Unsupported, Op: op, Msg: "no line sensor fitted"}
	default:
		return &errcode.E{C: errcode.UnknownCommand, Op: "drive", Msg: string(a.Command)}
	}
	return nil
}

// Motion returns the H-bridge motion the action drives. Pause and stop
// map to Stop.
func (a Action) Motion() hbridge.Motion {
	switch a.Command {
	case CmdDrive, CmdTurn:
		if m, ok := hbridge.ParseMotion(a.Direction); ok {
			return m
		}
	case CmdSpin:
		return hbridge.Right
	}
	return hbridge.Stop
}
