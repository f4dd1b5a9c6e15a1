package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"golang.org/x/term"

	"github.com/sp105e/led-command/internal/log"
	"github.com/sp105e/led-command/pkg/cli"
	"github.com/sp105e/led-command/pkg/device"
	"github.com/sp105e/led-command/pkg/protocol"
)

// Exit statuses.
const (
	exitOK        = 0
	exitFailure   = 1
	exitBadInput  = 2
	exitMalformed = 3
	exitTransport = 4
)

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * Commands other than encode, decode and help require a -target.
 * Run without a COMMAND to start an interactive shell.
 * Exit status is 2 for invalid input, 3 for an unparseable notification and 4 for a Bluetooth failure.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Printf("\nRun %s help COMMAND for more information. Valid COMMANDs are listed below.", os.Args[0])
	fmt.Println("")
	fmt.Println(usage)
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	sort.Strings(labels)
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	var perr protocol.Error
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, protocol.ErrOutOfRange),
		errors.Is(err, protocol.ErrUnsupportedIntent),
		errors.Is(err, ErrCommandLineArgs),
		errors.Is(err, ErrUnknownCommand),
		errors.Is(err, ErrCannotEncodeCommand):
		return exitBadInput
	case errors.Is(err, protocol.ErrMalformed):
		return exitMalformed
	case errors.As(err, &perr), errors.Is(err, context.DeadlineExceeded):
		return exitTransport
	}
	return exitFailure
}

// commandContext bounds a command by timeout, or by an interrupt for commands that stream.
func commandContext(info *Command, timeout time.Duration) (context.Context, context.CancelFunc) {
	if info != nil && info.untimed {
		return signal.NotifyContext(context.Background(), os.Interrupt)
	}
	return context.WithTimeout(context.Background(), timeout)
}

func runCommand(ctl *device.Controller, args []string, timeout time.Duration) int {
	info := commands[args[0]]
	ctx, cancel := commandContext(info, timeout)
	defer cancel()

	err := execute(ctx, ctl, args)
	if err != nil {
		if protocol.MayHaveSucceeded(err) {
			writeErr("Couldn't verify success: %s", err)
		} else if errors.Is(err, ErrRequiresController) {
			writeErr("%s: provide a controller with -target", err)
		} else {
			writeErr("Failed to execute command: %s", err)
		}
	}
	return exitCode(err)
}

// lineReader abstracts over readline (for terminals) and a plain scanner (for pipes).
type lineReader interface {
	ReadLine() (string, error)
	Close() error
}

type scannerReader struct {
	scanner *bufio.Scanner
}

func (s *scannerReader) ReadLine() (string, error) {
	fmt.Printf("> ")
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *scannerReader) Close() error {
	return nil
}

type terminalReader struct {
	*readline.Instance
}

func (t *terminalReader) ReadLine() (string, error) {
	for {
		line, err := t.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		return line, err
	}
}

func newLineReader(in *os.File) (lineReader, error) {
	if !term.IsTerminal(int(in.Fd())) {
		return &scannerReader{scanner: bufio.NewScanner(in)}, nil
	}
	instance, err := readline.NewEx(&readline.Config{
		Prompt:          "sp105e> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}
	return &terminalReader{instance}, nil
}

func runInteractiveShell(ctl *device.Controller, timeout time.Duration) int {
	reader, err := newLineReader(os.Stdin)
	if err != nil {
		writeErr("Error opening terminal: %s", err)
		return exitFailure
	}
	defer reader.Close()

	for {
		line, err := reader.ReadLine()
		if errors.Is(err, io.EOF) {
			return exitOK
		} else if err != nil {
			writeErr("Error reading command: %s", err)
			return exitFailure
		}
		args, err := shlex.Split(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return exitOK
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		if args[0] == "help" {
			shellHelp(args)
			continue
		}
		runCommand(ctl, args, timeout)
	}
}

func shellHelp(args []string) {
	if len(args) == 1 {
		Usage()
		return
	}
	info, ok := commands[args[1]]
	if !ok {
		writeErr("Unrecognized command: %s", args[1])
		return
	}
	info.Usage(args[1])
}

func main() {
	status := exitFailure
	defer func() {
		os.Exit(status)
	}()

	var (
		commandTimeout time.Duration
		connTimeout    time.Duration
	)
	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", err)
		os.Exit(exitFailure)
	}
	flag.Usage = Usage
	flag.DurationVar(&commandTimeout, "command-timeout", 5*time.Second, "Set timeout for commands sent to the controller.")
	flag.DurationVar(&connTimeout, "connect-timeout", 20*time.Second, "Set timeout for establishing initial connection.")

	config.RegisterCommandLineFlags()
	flag.Parse()
	config.ReadFromEnvironment()
	if err := config.ReadFromFile(); err != nil {
		writeErr("Error: %s", err)
		return
	}
	if config.Debug {
		log.SetLevel(log.LevelDebug)
	}

	args := flag.Args()
	if len(args) > 0 {
		if args[0] == "help" {
			if len(args) > 1 {
				if _, ok := commands[args[1]]; !ok {
					writeErr("Unrecognized command: %s", args[1])
					status = exitBadInput
					return
				}
			}
			shellHelp(args)
			status = exitOK
			return
		}
		info, ok := commands[args[0]]
		if !ok {
			writeErr("Unrecognized command: %s", args[0])
			status = exitBadInput
			return
		}
		if info.offline {
			status = runCommand(nil, args, commandTimeout)
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()

	defer config.Close()
	ctl, err := config.Connect(ctx)
	if err != nil {
		writeErr("Error: %s", err)
		if errors.Is(err, cli.ErrNoTarget) {
			status = exitBadInput
		} else {
			status = exitCode(err)
		}
		return
	}
	defer ctl.Disconnect()

	if len(args) > 0 {
		status = runCommand(ctl, args, commandTimeout)
	} else {
		status = runInteractiveShell(ctl, commandTimeout)
	}
}
