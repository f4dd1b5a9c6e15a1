package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sp105e/led-command/pkg/protocol"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buffer bytes.Buffer
	saved := stdout
	stdout = &buffer
	t.Cleanup(func() { stdout = saved })
	return &buffer
}

func TestEncodeCommand(t *testing.T) {
	type params struct {
		args  []string
		frame string
		err   error
	}
	testCases := []params{
		{args: []string{"power", "on"}, frame: "38000000aa"},
		{args: []string{"power", "OFF"}, frame: "38000000ab"},
		{args: []string{"color", "255", "0", "128"}, frame: "38ff00801e"},
		{args: []string{"color-hex", "#ff0080"}, frame: "38ff00801e"},
		{args: []string{"brightness", "128"}, frame: "388000002a"},
		{args: []string{"brightness", "100%"}, frame: "38ff00002a"},
		{args: []string{"effect", "auto"}, frame: "380000002c"},
		{args: []string{"effect", "42"}, frame: "382a00002c"},
		{args: []string{"speed", "6"}, frame: "3806000003"},
		{args: []string{"fixed", "blue"}, frame: "3800000012"},
		{args: []string{"pixels", "300"}, frame: "38012c002d"},
		{args: []string{"order", "grb"}, frame: "380200003c"},
		{args: []string{"pixel-type", "ws2811"}, frame: "380300001c"},
		{args: []string{"raw", "0x38 00 00 00 10"}, frame: "3800000010"},
		{args: []string{"color", "256", "0", "0"}, err: protocol.ErrOutOfRange},
		{args: []string{"brightness", "101%"}, err: protocol.ErrOutOfRange},
		{args: []string{"effect", "201"}, err: protocol.ErrOutOfRange},
		{args: []string{"speed", "7"}, err: protocol.ErrOutOfRange},
		{args: []string{"pixels", "0"}, err: protocol.ErrOutOfRange},
		{args: []string{"color", "red", "0", "0"}, err: ErrCommandLineArgs},
		{args: []string{"color", "1", "2"}, err: ErrCommandLineArgs},
		{args: []string{"power", "maybe"}, err: ErrCommandLineArgs},
		{args: []string{"fixed", "purple"}, err: ErrCommandLineArgs},
		{args: []string{"raw", "zz"}, err: ErrCommandLineArgs},
		{args: []string{"status"}, err: ErrCannotEncodeCommand},
		{args: []string{"sparkle"}, err: ErrUnknownCommand},
	}
	for _, test := range testCases {
		keywords := map[string]string{"COMMAND": test.args[0]}
		for i, arg := range test.args[1:] {
			keywords[fmt.Sprintf("ARG%d", i+1)] = arg
		}
		frame, err := encodeCommand(keywords)
		if !errors.Is(err, test.err) {
			t.Errorf("expected %v to result in error %v, but got %v", test.args, test.err, err)
		} else if err == nil && frame.String() != test.frame {
			t.Errorf("expected %v to encode to %s, but got %s", test.args, test.frame, frame)
		}
	}
}

func TestExecuteOffline(t *testing.T) {
	out := captureOutput(t)
	if err := execute(context.Background(), nil, []string{"encode", "color", "255", "0", "128"}); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(out.String()); got != "38ff00801e" {
		t.Errorf("unexpected encode output %q", got)
	}
}

func TestExecuteDecode(t *testing.T) {
	out := captureOutput(t)
	if err := execute(context.Background(), nil, []string{"decode", "01 05 03 80 09 02 00 00"}); err != nil {
		t.Fatal(err)
	}
	for _, expected := range []string{"Power:       true", "Mode:        5", "Brightness:  128", "Pixel type:  APA102", "Color order: GRB", "Color:       unknown"} {
		if !strings.Contains(out.String(), expected) {
			t.Errorf("decode output is missing %q:\n%s", expected, out)
		}
	}
}

func TestExecuteDecodeJSON(t *testing.T) {
	out := captureOutput(t)
	if err := execute(context.Background(), nil, []string{"decode", "0105038009020000", "json"}); err != nil {
		t.Fatal(err)
	}
	for _, expected := range []string{`"power":true`, `"pixel_type":"APA102"`, `"color":null`} {
		if !strings.Contains(out.String(), expected) {
			t.Errorf("json output is missing %s: %s", expected, out)
		}
	}
}

func TestExecuteDecodeHelloAck(t *testing.T) {
	out := captureOutput(t)
	if err := execute(context.Background(), nil, []string{"decode", "00010203040506bf"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Handshake") {
		t.Errorf("expected handshake acknowledgement, got %q", out)
	}
}

func TestExecuteDecodeShortPayload(t *testing.T) {
	captureOutput(t)
	err := execute(context.Background(), nil, []string{"decode", "0105"})
	if !errors.Is(err, protocol.ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
	if code := exitCode(err); code != exitMalformed {
		t.Errorf("expected exit status %d, got %d", exitMalformed, code)
	}
}

func TestExecuteRequiresController(t *testing.T) {
	captureOutput(t)
	for _, args := range [][]string{{"status"}, {"power", "on"}, {"watch"}} {
		if err := execute(context.Background(), nil, args); !errors.Is(err, ErrRequiresController) {
			t.Errorf("expected %v to require a controller, got %v", args, err)
		}
	}
}

func TestExecuteBadArguments(t *testing.T) {
	out := captureOutput(t)
	err := execute(context.Background(), nil, []string{"decode"})
	if !errors.Is(err, ErrCommandLineArgs) {
		t.Fatalf("expected ErrCommandLineArgs, got %v", err)
	}
	if !strings.Contains(out.String(), "Usage: decode HEX") {
		t.Errorf("expected command usage, got %q", out)
	}
	if err := execute(context.Background(), nil, []string{"nope"}); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	type params struct {
		err  error
		code int
	}
	testCases := []params{
		{err: nil, code: exitOK},
		{err: &protocol.OutOfRangeError{Field: "speed", Value: 9, Allowed: protocol.Range{Min: 0, Max: 6}}, code: exitBadInput},
		{err: fmt.Errorf("%w: x", ErrCommandLineArgs), code: exitBadInput},
		{err: fmt.Errorf("%w: sparkle", ErrUnknownCommand), code: exitBadInput},
		{err: fmt.Errorf("%w: nil", protocol.ErrUnsupportedIntent), code: exitBadInput},
		{err: &protocol.MalformedError{Reason: "short"}, code: exitMalformed},
		{err: protocol.ErrNotConnected, code: exitTransport},
		{err: fmt.Errorf("%w: link lost", protocol.ErrWriteFailed), code: exitTransport},
		{err: fmt.Errorf("%w: %w", protocol.ErrNoResponse, context.DeadlineExceeded), code: exitTransport},
		{err: context.DeadlineExceeded, code: exitTransport},
		{err: errors.New("scene file not found"), code: exitFailure},
	}
	for _, test := range testCases {
		if code := exitCode(test.err); code != test.code {
			t.Errorf("expected exitCode(%v) = %d, but got %d", test.err, test.code, code)
		}
	}
}

func TestEveryCommandHasHandler(t *testing.T) {
	for name, info := range commands {
		if (info.intent == nil) == (info.handler == nil) {
			t.Errorf("command %s must define exactly one of intent or handler", name)
		}
		if info.help == "" {
			t.Errorf("command %s has no help text", name)
		}
	}
}

func TestEffectAcceptsAdvertisedRange(t *testing.T) {
	help := commands["effect"].args[0].help
	if !strings.HasPrefix(help, "0-200") {
		t.Errorf("effect help %q does not advertise 0-200", help)
	}
	for _, id := range []string{"0", "auto", "200"} {
		if _, err := encodeCommand(map[string]string{"COMMAND": "effect", "ARG1": id}); err != nil {
			t.Errorf("effect %s should be accepted: %s", id, err)
		}
	}
}
