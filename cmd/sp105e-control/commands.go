package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sp105e/led-command/pkg/action"
	"github.com/sp105e/led-command/pkg/capture"
	"github.com/sp105e/led-command/pkg/device"
	"github.com/sp105e/led-command/pkg/protocol"
	"github.com/sp105e/led-command/pkg/scene"
)

var (
	ErrCommandLineArgs     = errors.New("invalid command line arguments")
	ErrUnknownCommand      = errors.New("unrecognized command")
	ErrRequiresController  = errors.New("command requires a connection to a controller")
	ErrCannotEncodeCommand = errors.New("command does not map to a single frame")
)

// stdout receives command output. Tests replace it.
var stdout io.Writer = os.Stdout

type Argument struct {
	name string
	help string
}

type Handler func(ctx context.Context, ctl *device.Controller, args map[string]string) error

// IntentBuilder converts command arguments into the intent sent to the controller.
type IntentBuilder func(args map[string]string) (protocol.Intent, error)

type Command struct {
	help     string
	args     []Argument
	optional []Argument
	offline  bool // True if the command works without a controller connection
	untimed  bool // True if the command runs until interrupted rather than until -command-timeout
	intent   IntentBuilder
	handler  Handler
}

func argError(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCommandLineArgs, fmt.Sprintf(format, a...))
}

func intArg(args map[string]string, name string) (int, error) {
	n, err := strconv.Atoi(args[name])
	if err != nil {
		return 0, argError("%s must be an integer, got '%s'", name, args[name])
	}
	return n, nil
}

// bindArguments maps positional arguments (excluding the command name) to argument names.
func bindArguments(info *Command, positional []string) (map[string]string, error) {
	if len(positional) < len(info.args) || len(positional) > len(info.args)+len(info.optional) {
		return nil, argError("got %d arguments (%d required, %d optional)", len(positional), len(info.args), len(info.optional))
	}
	keywords := make(map[string]string)
	for i, argInfo := range info.args {
		keywords[argInfo.name] = positional[i]
	}
	index := len(info.args)
	for _, argInfo := range info.optional {
		if index >= len(positional) {
			break
		}
		keywords[argInfo.name] = positional[index]
		index++
	}
	return keywords, nil
}

func lookup(name string) (*Command, error) {
	info, ok := commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return info, nil
}

func execute(ctx context.Context, ctl *device.Controller, args []string) error {
	if len(args) == 0 {
		return argError("missing COMMAND")
	}

	info, err := lookup(args[0])
	if err != nil {
		return err
	}
	if !info.offline && ctl == nil {
		return ErrRequiresController
	}

	keywords, err := bindArguments(info, args[1:])
	if err == nil {
		if info.intent != nil {
			var intent protocol.Intent
			if intent, err = info.intent(keywords); err == nil {
				err = ctl.Execute(ctx, intent)
			}
		} else {
			err = info.handler(ctx, ctl, keywords)
		}
	}

	// Print command-specific help
	if errors.Is(err, ErrCommandLineArgs) {
		info.Usage(args[0])
	}
	return err
}

func (c *Command) Usage(name string) {
	fmt.Fprintf(stdout, "Usage: %s", name)
	maxLength := 0
	for _, arg := range c.args {
		fmt.Fprintf(stdout, " %s", arg.name)
		maxLength = max(maxLength, len(arg.name))
	}
	if len(c.optional) > 0 {
		fmt.Fprintf(stdout, " [")
	}
	for _, arg := range c.optional {
		fmt.Fprintf(stdout, " %s", arg.name)
		maxLength = max(maxLength, len(arg.name))
	}
	if len(c.optional) > 0 {
		fmt.Fprintf(stdout, " ]")
	}
	fmt.Fprintf(stdout, "\n%s\n", c.help)
	maxLength++
	for _, arg := range append(append([]Argument{}, c.args...), c.optional...) {
		fmt.Fprintf(stdout, "    %s:%s%s\n", arg.name, strings.Repeat(" ", maxLength-len(arg.name)), arg.help)
	}
}

func printStatus(w io.Writer, status protocol.Status, format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		fmt.Fprintf(w, "Power:       %s\n", status.Power)
		fmt.Fprintf(w, "Mode:        %s\n", status.Mode)
		fmt.Fprintf(w, "Speed:       %s\n", status.Speed)
		fmt.Fprintf(w, "Brightness:  %s\n", status.Brightness)
		fmt.Fprintf(w, "Pixel type:  %s\n", status.PixelType)
		fmt.Fprintf(w, "Color order: %s\n", status.ColorOrder)
		fmt.Fprintf(w, "Color:       %s\n", status.Color)
		fmt.Fprintf(w, "Pixel count: %s\n", status.PixelCount)
		if len(status.Unparsed) > 0 {
			fmt.Fprintf(w, "Unparsed:    %02x\n", status.Unparsed)
		}
		return nil
	case "json":
		encoded, err := json.Marshal(status)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(encoded))
		return nil
	}
	return argError("unknown FORMAT '%s' (expected text or json)", format)
}

var formatArgument = Argument{name: "FORMAT", help: "text (default) or json"}

var commands = map[string]*Command{
	"power": &Command{
		help: "Turn the strip on or off",
		args: []Argument{
			Argument{name: "STATE", help: "on or off"},
		},
		intent: func(args map[string]string) (protocol.Intent, error) {
			switch strings.ToLower(args["STATE"]) {
			case "on":
				return action.PowerOn(), nil
			case "off":
				return action.PowerOff(), nil
			}
			return nil, argError("STATE must be on or off")
		},
	},
	"color": &Command{
		help: "Set a static color",
		args: []Argument{
			Argument{name: "RED", help: "0-255"},
			Argument{name: "GREEN", help: "0-255"},
			Argument{name: "BLUE", help: "0-255"},
		},
		intent: func(args map[string]string) (protocol.Intent, error) {
			var channels [3]int
			for i, name := range []string{"RED", "GREEN", "BLUE"} {
				n, err := intArg(args, name)
				if err != nil {
					return nil, err
				}
				channels[i] = n
			}
			return action.Color(channels[0], channels[1], channels[2]), nil
		},
	},
	"color-hex": &Command{
		help: "Set a static color from a hex code",
		args: []Argument{
			Argument{name: "COLOR", help: "#RRGGBB"},
		},
		intent: func(args map[string]string) (protocol.Intent, error) {
			c, err := action.ColorHex(args["COLOR"])
			if err != nil {
				return nil, argError("%s", err)
			}
			return c, nil
		},
	},
	"brightness": &Command{
		help: "Set brightness",
		args: []Argument{
			Argument{name: "LEVEL", help: "0-255, or a percentage such as 40%"},
		},
		intent: func(args map[string]string) (protocol.Intent, error) {
			if percent, ok := strings.CutSuffix(args["LEVEL"], "%"); ok {
				n, err := strconv.Atoi(percent)
				if err != nil {
					return nil, argError("invalid percentage '%s'", args["LEVEL"])
				}
				return action.BrightnessPercent(n)
			}
			level, err := intArg(args, "LEVEL")
			if err != nil {
				return nil, err
			}
			return action.Brightness(level), nil
		},
	},
	"effect": &Command{
		help: "Start a preprogrammed animation",
		args: []Argument{
			Argument{name: "ID", help: "0-200, or auto (same as 0) to cycle through all animations"},
		},
		intent: func(args map[string]string) (protocol.Intent, error) {
			effect, err := protocol.ParseEffect(args["ID"])
			if err != nil {
				if errors.Is(err, protocol.ErrOutOfRange) {
					return nil, err
				}
				return nil, argError("%s", err)
			}
			return action.Effect(effect), nil
		},
	},
	"speed": &Command{
		help: "Set animation speed",
		args: []Argument{
			Argument{name: "SPEED", help: "0-6"},
		},
		intent: func(args map[string]string) (protocol.Intent, error) {
			speed, err := intArg(args, "SPEED")
			if err != nil {
				return nil, err
			}
			return action.Speed(speed), nil
		},
	},
	"fixed": &Command{
		help: "Select a preset color",
		args: []Argument{
			Argument{name: "COLOR", help: "red, green, blue, white or alt-white"},
		},
		intent: func(args map[string]string) (protocol.Intent, error) {
			color, err := protocol.ParseFixedColor(args["COLOR"])
			if err != nil {
				return nil, argError("%s", err)
			}
			return action.FixedColor(color), nil
		},
	},
	"pixels": &Command{
		help: "Configure the number of LEDs on the strip",
		args: []Argument{
			Argument{name: "COUNT", help: "1-2048"},
		},
		intent: func(args map[string]string) (protocol.Intent, error) {
			count, err := intArg(args, "COUNT")
			if err != nil {
				return nil, err
			}
			return action.PixelCount(count), nil
		},
	},
	"order": &Command{
		help: "Configure the color channel order of the LED chips",
		args: []Argument{
			Argument{name: "ORDER", help: "RGB, RBG, GRB, GBR, BRG or BGR"},
		},
		intent: func(args map[string]string) (protocol.Intent, error) {
			order, err := protocol.ParseColorOrder(args["ORDER"])
			if err != nil {
				return nil, argError("%s", err)
			}
			return action.ColorOrder(order), nil
		},
	},
	"pixel-type": &Command{
		help: "Configure the LED chip family",
		args: []Argument{
			Argument{name: "TYPE", help: "One of: " + strings.Join(protocol.PixelTypeNames(), ", ")},
		},
		intent: func(args map[string]string) (protocol.Intent, error) {
			pixelType, err := protocol.ParsePixelType(args["TYPE"])
			if err != nil {
				return nil, argError("%s", err)
			}
			return action.PixelType(pixelType), nil
		},
	},
	"raw": &Command{
		help: "Send bytes to the controller verbatim",
		args: []Argument{
			Argument{name: "HEX", help: "frame bytes, e.g. 38ff00801e"},
		},
		intent: func(args map[string]string) (protocol.Intent, error) {
			raw, err := action.RawHex(args["HEX"])
			if err != nil {
				return nil, argError("%s", err)
			}
			return raw, nil
		},
	},
	"hello": &Command{
		help: "Perform the connection handshake",
		handler: func(ctx context.Context, ctl *device.Controller, args map[string]string) error {
			if err := ctl.Hello(ctx); err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Handshake OK")
			return nil
		},
	},
	"status": &Command{
		help:     "Fetch and print the controller status",
		optional: []Argument{formatArgument},
		handler: func(ctx context.Context, ctl *device.Controller, args map[string]string) error {
			status, err := ctl.Status(ctx)
			if err != nil {
				return err
			}
			return printStatus(stdout, status, args["FORMAT"])
		},
	},
	"watch": &Command{
		help:     "Print every status notification until interrupted",
		optional: []Argument{formatArgument},
		untimed:  true,
		handler: func(ctx context.Context, ctl *device.Controller, args map[string]string) error {
			var printErr error
			err := ctl.Watch(ctx, func(status protocol.Status) {
				if printErr == nil {
					printErr = printStatus(stdout, status, args["FORMAT"])
				}
			})
			if printErr != nil {
				return printErr
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	},
	"scene": &Command{
		help:    "Play a YAML scene file",
		untimed: true,
		args: []Argument{
			Argument{name: "FILE", help: "scene file"},
		},
		handler: func(ctx context.Context, ctl *device.Controller, args map[string]string) error {
			s, err := scene.Load(args["FILE"])
			if err != nil {
				return err
			}
			return s.Run(ctx, ctl)
		},
	},
	"replay": &Command{
		help:    "Re-send the frames stored in a capture file",
		untimed: true,
		args: []Argument{
			Argument{name: "FILE", help: "capture file written with -record"},
		},
		optional: []Argument{
			Argument{name: "TIMING", help: "'timed' to keep the recorded spacing between frames"},
		},
		handler: func(ctx context.Context, ctl *device.Controller, args map[string]string) error {
			preserveTiming := false
			switch args["TIMING"] {
			case "":
			case "timed":
				preserveTiming = true
			default:
				return argError("TIMING must be 'timed'")
			}
			c, err := capture.ReadFile(args["FILE"])
			if err != nil {
				return err
			}
			n, err := c.Replay(ctx, ctl, preserveTiming)
			fmt.Fprintf(stdout, "Replayed %d frames from session %s\n", n, c.Header.Session)
			return err
		},
	},
	"encode": &Command{
		help:    "Print the frame for COMMAND without connecting",
		offline: true,
		args: []Argument{
			Argument{name: "COMMAND", help: "a command that sends a single frame, e.g. color"},
		},
		optional: []Argument{
			Argument{name: "ARG1", help: "first argument of COMMAND"},
			Argument{name: "ARG2", help: "second argument of COMMAND"},
			Argument{name: "ARG3", help: "third argument of COMMAND"},
		},
	},
	"decode": &Command{
		help:    "Decode a status notification without connecting",
		offline: true,
		args: []Argument{
			Argument{name: "HEX", help: "notification bytes, e.g. 0105038009020000"},
		},
		optional: []Argument{formatArgument},
		handler: func(ctx context.Context, ctl *device.Controller, args map[string]string) error {
			raw, err := action.RawHex(args["HEX"])
			if err != nil {
				return argError("%s", err)
			}
			if protocol.IsHelloAck(raw.Bytes) {
				fmt.Fprintln(stdout, "Handshake acknowledgement")
				return nil
			}
			status, err := protocol.Decode(raw.Bytes)
			if err != nil {
				return err
			}
			return printStatus(stdout, status, args["FORMAT"])
		},
	},
}

// The encode handler looks up other commands, so it can't appear in the commands literal.
func init() {
	commands["encode"].handler = func(ctx context.Context, ctl *device.Controller, args map[string]string) error {
		frame, err := encodeCommand(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, frame)
		return nil
	}
}

func encodeCommand(args map[string]string) (protocol.Frame, error) {
	name := args["COMMAND"]
	sub, err := lookup(name)
	if err != nil {
		return protocol.Frame{}, err
	}
	if sub.intent == nil {
		return protocol.Frame{}, fmt.Errorf("%w: %s", ErrCannotEncodeCommand, name)
	}
	var positional []string
	for _, key := range []string{"ARG1", "ARG2", "ARG3"} {
		if v, ok := args[key]; ok {
			positional = append(positional, v)
		}
	}
	keywords, err := bindArguments(sub, positional)
	if err != nil {
		return protocol.Frame{}, err
	}
	intent, err := sub.intent(keywords)
	if err != nil {
		return protocol.Frame{}, err
	}
	return protocol.Encode(intent)
}
