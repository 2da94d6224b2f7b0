package console

import (
	"strconv"
	"strings"

	"github.com/google/shlex"

	"robotcode-go/errcode"
	"robotcode-go/services/drive"
	"robotcode-go/x/timex"
)

// ParseAction turns one command line into a drive.Action.
//
//	forward|backward [ms]    drive, holding the motion when ms is omitted
//	left|right [deg]         turn (default 90°)
//	drive <dir> [ms]
//	turn <dir> [deg]
//	spin [ms]
//	pause <ms>
//	follow_line
//	stop
//
// The result is validated.
func ParseAction(line string) (drive.Action, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return drive.Action{}, &errcode.E{C: errcode.InvalidParams, Op: "console.parse", Msg: err.Error()}
	}
	if len(args) == 0 {
		return drive.Action{}, &errcode.E{C: errcode.InvalidParams, Op: "console.parse", Msg: "empty command"}
	}
	cmd := strings.ToLower(args[0])
	args = args[1:]

	var a drive.Action
	switch cmd {
	case "forward", "backward":
		a = drive.Action{Command: drive.CmdDrive, Direction: cmd}
		err = optMs(args, 0, &a)
	case "left", "right":
		a = drive.Action{Command: drive.CmdTurn, Direction: cmd}
		err = optInt(args, 0, &a.Degrees)
	case "drive", "turn":
		if len(args) == 0 {
			return a, &errcode.E{C: errcode.InvalidParams, Op: "console." + cmd, Msg: "missing direction"}
		}
		a = drive.Action{Command: drive.Command(cmd), Direction: strings.ToLower(args[0])}
		if cmd == "drive" {
			err = optMs(args, 1, &a)
		} else {
			err = optInt(args, 1, &a.Degrees)
		}
	case "spin":
		a = drive.Action{Command: drive.CmdSpin}
		err = optMs(args, 0, &a)
	case "pause":
		if len(args) == 0 {
			return a, &errcode.E{C: errcode.InvalidParams, Op: "console.pause", Msg: "missing duration"}
		}
		a = drive.Action{Command: drive.CmdPause}
		err = optMs(args, 0, &a)
	case "follow_line":
		a = drive.Action{Command: drive.CmdFollowLine}
	case "stop":
		a = drive.Action{Command: drive.CmdStop}
	default:
		return a, &errcode.E{C: errcode.UnknownCommand, Op: "console", Msg: cmd}
	}
	if err != nil {
		return a, err
	}
	return a, a.Validate()
}

func optInt(args []string, i int, dst *int) error {
	if len(args) <= i {
		return nil
	}
	if len(args) > i+1 {
		return &errcode.E{C: errcode.InvalidParams, Op: "console.parse", Msg: "too many arguments"}
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return &errcode.E{C: errcode.InvalidParams, Op: "console.parse", Msg: "not a number: " + args[i]}
	}
	*dst = n
	return nil
}

func optMs(args []string, i int, a *drive.Action) error {
	ms := 0
	if err := optInt(args, i, &ms); err != nil {
		return err
	}
	if ms < 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "console.parse", Msg: "negative duration"}
	}
	a.Duration = timex.Ms(int64(ms))
	return nil
}
