package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bamsammich/burn/internal/config"
	"github.com/bamsammich/burn/internal/disk"
	"github.com/bamsammich/burn/internal/event"
	"github.com/bamsammich/burn/internal/platform"
	"github.com/bamsammich/burn/internal/stats"
	"github.com/bamsammich/burn/internal/ui"
	"github.com/bamsammich/burn/internal/wire"
)

var watchCmd = &cobra.Command{
	Use:   "watch [--sudo] -- <burn args>",
	Short: "Run a flashing session in a child process and render its progress",
	Long: `Run "burn --machine <burn args>" as a child process and render the
progress records it writes to stdout.

With --sudo the child is started through pkexec when a graphical session is
available and sudo otherwise, so only the writer runs with root privileges.
The child is killed if this process dies.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runWatch,
}

func init() {
	watchCmd.Flags().Bool("sudo", false, "run the writer with root privileges")
	watchCmd.Flags().Bool("tui", false, "full-screen TUI (Bubble Tea)")
	watchCmd.Flags().BoolP("verbose", "v", false, "verbose output")
	watchCmd.Flags().BoolP("quiet", "q", false, "suppress all output except errors")
	// Everything after the first positional argument belongs to the child.
	watchCmd.Flags().SetInterspersed(false)
}

//nolint:revive // cognitive-complexity: process supervision, decoding and presentation in one place
func runWatch(cmd *cobra.Command, args []string) error {
	sudo, _ := cmd.Flags().GetBool("sudo")       //nolint:errcheck // flag name is hardcoded
	tuiFlag, _ := cmd.Flags().GetBool("tui")     //nolint:errcheck // flag name is hardcoded
	verbose, _ := cmd.Flags().GetBool("verbose") //nolint:errcheck // flag name is hardcoded
	quiet, _ := cmd.Flags().GetBool("quiet")     //nolint:errcheck // flag name is hardcoded

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate burn executable: %w", err)
	}
	var elevate string
	if sudo {
		elevate, err = elevator(exec.LookPath, os.Getenv)
		if err != nil {
			return err
		}
	}

	isTTY := ui.IsTTY(os.Stderr.Fd())
	useTUI := tuiFlag && isTTY
	session := uuid.NewString()

	logger, closeLog, err := newLogger(logOptions{
		verbose:    verbose,
		quiet:      quiet,
		fullscreen: useTUI,
		session:    session,
	})
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		logger.Warn("failed to load config", "path", config.Path(), "error", cfgErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	name, argv := childCommand(exe, elevate, session, args)
	child := exec.CommandContext(ctx, name, argv...)
	child.Stdin = os.Stdin
	child.Stderr = os.Stderr
	child.SysProcAttr = &syscall.SysProcAttr{}
	platform.SetPdeathsig(child.SysProcAttr)
	// Let the writer finish its current chunk and report before exiting.
	child.Cancel = func() error { return child.Process.Signal(syscall.SIGTERM) }

	stdout, err := child.StdoutPipe()
	if err != nil {
		return fmt.Errorf("child stdout: %w", err)
	}
	logger.Debug("starting writer", "command", name, "args", argv)
	if err := child.Start(); err != nil {
		return &exitError{code: 1, err: fmt.Errorf("start writer: %w", err)}
	}

	collector := stats.NewCollector()
	presenter := newPresenter(presentOptions{
		fullscreen: useTUI,
		quiet:      quiet,
		verbose:    verbose,
		isTTY:      isTTY,
		image:      imageArg(args),
		theme:      cfg.Theme,
	}, collector)

	events := make(chan event.Event, 256)
	var childErr error
	go func() {
		defer close(events)
		decodeErr := forwardRecords(stdout, events, logger)
		childErr = child.Wait()
		if childErr == nil && decodeErr != nil {
			childErr = decodeErr
		}
		event.Send(events, event.Event{Type: event.SessionFinished, Error: childErr})
	}()

	abort := func() {
		if child.Process != nil {
			child.Process.Signal(syscall.SIGTERM) //nolint:errcheck // the child may already be gone
		}
	}
	if err := present(presenter, events, abort, collector); err != nil {
		fmt.Fprintf(os.Stderr, "presenter: %v\n", err)
	}

	if !quiet {
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(os.Stderr, summary)
		}
	}

	var exitErr *exec.ExitError
	if errors.As(childErr, &exitErr) && exitErr.ExitCode() > 0 {
		// The writer already reported why on the shared stderr.
		return &exitError{code: exitErr.ExitCode()}
	}
	if childErr != nil {
		return &exitError{code: 1, err: childErr}
	}
	return nil
}

// forwardRecords decodes wire records from r into events until EOF. A
// malformed line is logged and skipped. Device records are given their
// sysfs label. The returned error is the last read failure, if any.
func forwardRecords(r io.Reader, events chan<- event.Event, logger *slog.Logger) error {
	dec := wire.NewDecoder(r)
	for {
		rec, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var decErr *wire.DecodeError
		if errors.As(err, &decErr) {
			logger.Warn("skipping malformed record", "input", decErr.Input, "error", decErr.Err)
			continue
		}
		if err != nil {
			// Drain so a writer blocked on a full pipe can still exit.
			io.Copy(io.Discard, r) //nolint:errcheck // best effort
			return fmt.Errorf("read writer output: %w", err)
		}

		ev := rec.Event()
		if ev.Type == event.DeviceAdded {
			ev.Label = disk.Label(ev.Path)
		}
		event.Send(events, ev)
	}
}

// childCommand builds the writer invocation: burn itself in machine mode,
// optionally behind a privilege helper.
func childCommand(exe, elevate, session string, args []string) (string, []string) {
	argv := make([]string, 0, len(args)+4)
	argv = append(argv, "--machine", "--session", session)
	argv = append(argv, args...)
	if elevate == "" {
		return exe, argv
	}
	return elevate, append([]string{exe}, argv...)
}

// elevator picks pkexec inside a graphical session and sudo otherwise.
func elevator(lookPath func(string) (string, error), getenv func(string) string) (string, error) {
	candidates := []string{"sudo", "pkexec"}
	if getenv("DISPLAY") != "" || getenv("WAYLAND_DISPLAY") != "" {
		candidates = []string{"pkexec", "sudo"}
	}
	for _, c := range candidates {
		if path, err := lookPath(c); err == nil {
			return path, nil
		}
	}
	return "", errors.New("--sudo needs sudo or pkexec on PATH")
}

// valueFlags are the root flags that take a separate value argument.
var valueFlags = map[string]bool{
	"--buffer-size": true,
	"--bwlimit":     true,
	"--checksum":    true,
	"--exclude":     true,
	"--filter":      true,
	"--include":     true,
	"--log":         true,
	"--max-size":    true,
	"--min-size":    true,
}

// imageArg finds the image path in the child's arguments for display: the
// first positional argument.
func imageArg(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			if i+1 < len(args) {
				return args[i+1]
			}
			return ""
		case valueFlags[a]:
			i++
		case a != "" && a[0] != '-':
			return a
		}
	}
	return ""
}
