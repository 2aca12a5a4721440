package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/bamsammich/burn/internal/config"
	"github.com/bamsammich/burn/internal/disk"
	"github.com/bamsammich/burn/internal/engine"
	"github.com/bamsammich/burn/internal/event"
	"github.com/bamsammich/burn/internal/filter"
	"github.com/bamsammich/burn/internal/image"
	"github.com/bamsammich/burn/internal/platform"
	"github.com/bamsammich/burn/internal/stats"
	"github.com/bamsammich/burn/internal/ui"
)

var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

// filterFlag is a custom pflag.Value that preserves CLI ordering of
// --exclude and --include rules by appending to a shared filter.Chain.
type filterFlag struct {
	chain   *filter.Chain
	include bool
}

func (*filterFlag) String() string { return "" }
func (*filterFlag) Type() string   { return "string" }

func (f *filterFlag) Set(val string) error {
	if f.include {
		return f.chain.AddInclude(val)
	}
	return f.chain.AddExclude(val)
}

type options struct {
	all         bool
	verify      bool
	unmount     bool
	yes         bool
	machine     bool
	tui         bool
	verbose     bool
	quiet       bool
	noProgress  bool
	showVersion bool
	bufferSize  string
	bwLimit     string
	filterFile  string
	minSize     string
	maxSize     string
	checksum    string
	logFile     string
	session     string

	chain *filter.Chain
}

func run(args []string) int {
	rootCmd := newRootCmd(newOptions())
	rootCmd.SetArgs(args)

	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			if exitErr.err != nil {
				fmt.Fprintf(os.Stderr, "burn: %v\n", exitErr.err)
			}
			return exitErr.code
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	return 0
}

func newOptions() *options {
	return &options{chain: filter.NewChain()}
}

func newRootCmd(o *options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "burn [flags] <image> [<device>...]",
		Short: "Flash one disk image onto many drives at once",
		Long: `Flash one disk image onto many drives at once.

The image is read once per chunk and written to every device in parallel.
A device that fails is dropped while the others carry on; with --check
every surviving device is read back and compared with the image.

When stdout is not a terminal, or with --machine, progress is written to
stdout as one record per line for a supervising process (see burn watch).`,
		Args: func(cmd *cobra.Command, args []string) error {
			if o.showVersion {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "burn %s\n", version)
				return nil
			}
			return flash(cmd, o, args)
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&o.showVersion, "version", false, "print version and exit")

	flags.BoolVarP(&o.all, "all", "a", false, "flash every discovered removable USB disk")
	flags.BoolVarP(&o.verify, "check", "c", false, "read every device back and compare it with the image")
	flags.BoolVarP(&o.unmount, "unmount", "u", false, "unmount mounted devices instead of refusing them")
	flags.BoolVarP(&o.yes, "yes", "y", false, "do not ask for confirmation")
	flags.BoolVar(&o.machine, "machine", false, "write machine-readable progress records to stdout")
	flags.BoolVar(&o.tui, "tui", false, "full-screen TUI (Bubble Tea)")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&o.quiet, "quiet", "q", false, "suppress all output except errors")
	flags.BoolVar(&o.noProgress, "no-progress", false, "disable the progress display")
	flags.StringVar(&o.bufferSize, "buffer-size", "4M", "chunk size read from the image per round")
	flags.StringVar(&o.bwLimit, "bwlimit", "", "cap the image read rate (e.g. 20M)")
	flags.StringVar(&o.checksum, "checksum", "", "print the image checksum before flashing ("+algoList()+")")
	flags.StringVar(&o.logFile, "log", "", "write structured JSON log to FILE")
	flags.StringVar(&o.session, "session", "", "session id used in log records")
	if err := flags.MarkHidden("session"); err != nil {
		panic(fmt.Sprintf("hide flag: %v", err))
	}

	// Filter flags only narrow --all; explicit device arguments are taken as
	// given.
	flags.Var(&filterFlag{chain: o.chain, include: false}, "exclude", "skip devices matching PATTERN with --all (repeatable)")
	flags.Var(&filterFlag{chain: o.chain, include: true}, "include", "only flash devices matching PATTERN with --all (repeatable)")
	flags.StringVar(&o.filterFile, "filter", "", "read device filter rules from FILE")
	flags.StringVar(&o.minSize, "min-size", "", "skip devices smaller than SIZE with --all (e.g. 8G)")
	flags.StringVar(&o.maxSize, "max-size", "", "skip devices larger than SIZE with --all (e.g. 256G)")

	// --verify is the long-standing spelling of --check.
	flags.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "verify" {
			name = "check"
		}
		return pflag.NormalizedName(name)
	})

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(hashCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(docsCmd)

	return rootCmd
}

//nolint:gocyclo,revive // cyclomatic,cognitive-complexity: the flash entry point wires every stage together
func flash(cmd *cobra.Command, o *options, args []string) error {
	imagePath, deviceArgs := args[0], args[1:]
	if o.all && len(deviceArgs) > 0 {
		return errors.New("--all cannot be combined with device arguments")
	}
	if !o.all && len(deviceArgs) == 0 {
		return errors.New("no devices specified (name them or use --all)")
	}

	// Load optional config file.
	cfg, cfgErr := config.Load()

	// Apply config defaults for flags not explicitly set on CLI.
	applyConfigDefaults(cmd, cfg.Defaults, o)
	if err := applyFilterConfig(cmd, cfg.Filter, o); err != nil {
		return fmt.Errorf("config filter: %w", err)
	}

	bufSize, err := filter.ParseSize(o.bufferSize)
	if err != nil {
		return fmt.Errorf("invalid --buffer-size: %w", err)
	}
	if bufSize <= 0 {
		return fmt.Errorf("invalid --buffer-size: %q must be positive", o.bufferSize)
	}
	var bwLimit int64
	if o.bwLimit != "" {
		bwLimit, err = filter.ParseSize(o.bwLimit)
		if err != nil {
			return fmt.Errorf("invalid --bwlimit: %w", err)
		}
	}
	var algo image.Algorithm
	if o.checksum != "" {
		algo, err = image.ParseAlgorithm(o.checksum)
		if err != nil {
			return fmt.Errorf("invalid --checksum: %w", err)
		}
	}
	if err := buildChain(o); err != nil {
		return err
	}

	machine := o.machine || !ui.IsTTY(os.Stdout.Fd())
	isTTY := ui.IsTTY(os.Stderr.Fd())
	useTUI := o.tui && isTTY && !machine

	logger, closeLog, err := newLogger(logOptions{
		verbose:    o.verbose,
		quiet:      o.quiet,
		fullscreen: useTUI,
		file:       o.logFile,
		session:    o.session,
	})
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	if cfgErr != nil {
		logger.Warn("failed to load config", "path", config.Path(), "error", cfgErr)
	}
	if o.tui && !useTUI {
		logger.Warn("--tui requires a terminal, falling back to inline output")
	}

	// Set up context with signal handling.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	img, err := image.Open(imagePath)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("image %s: %w", imagePath, err)}
	}
	defer img.Close()

	if algo != "" {
		sum, err := image.Hash(ctx, img, algo, nil)
		if err != nil {
			return &exitError{code: 1, err: fmt.Errorf("checksum %s: %w", imagePath, err)}
		}
		if _, err := img.Seek(0, io.SeekStart); err != nil {
			return &exitError{code: 1, err: fmt.Errorf("rewind %s: %w", imagePath, err)}
		}
		fmt.Fprintf(os.Stderr, "%s  %s  %s\n", algo, sum, imagePath)
	}

	labels := make(map[string]string)
	if o.all {
		found, err := disk.Discover(ctx, disk.DiscoverOptions{})
		if err != nil {
			return &exitError{code: 1, err: fmt.Errorf("discover disks: %w", err)}
		}
		var selected []disk.Device
		selected, deviceArgs = selectDevices(found, o.chain)
		for _, d := range selected {
			labels[d.Path] = d.Label
		}
		logger.Debug("discovered disks", "found", len(found), "selected", len(selected))
		if len(deviceArgs) == 0 {
			return &exitError{code: 1, err: errors.New("no removable disks found")}
		}
	}

	mounts, err := disk.ReadMounts()
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("read mounts: %w", err)}
	}
	resolved, err := disk.Resolve(deviceArgs, mounts, disk.ResolveOptions{
		Unmount: o.unmount,
		Logger:  logger,
	})
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	defer closeDevices(resolved, logger)

	devices := describeDevices(resolved, labels, img.Size, logger)

	if !o.yes && ui.IsTTY(os.Stdin.Fd()) && isTTY {
		ok, err := ui.Confirm(os.Stdin, os.Stderr, imagePath, devices)
		if err != nil {
			return &exitError{code: 1, err: err}
		}
		if !ok {
			return &exitError{code: 1, err: errors.New("aborted, nothing was written")}
		}
	}

	var limiter *rate.Limiter
	if bwLimit > 0 {
		limiter = engine.NewBWLimiter(bwLimit)
	}
	task := engine.New(img, img.Size, engine.Config{
		Verify:  o.verify,
		Limiter: limiter,
		Logger:  logger,
	})

	// Create events channel.
	events := make(chan event.Event, 256)
	for _, r := range resolved {
		task.Subscribe(r.File, r.Path, event.NewProgress(r.Path, events))
	}

	collector := stats.NewCollector()
	presenter := newPresenter(presentOptions{
		machine:    machine,
		fullscreen: useTUI,
		quiet:      o.quiet,
		verbose:    o.verbose,
		noProgress: o.noProgress,
		isTTY:      isTTY,
		image:      imagePath,
		theme:      cfg.Theme,
	}, collector)

	engineCtx, engineCancel := context.WithCancel(ctx)
	defer engineCancel()

	var sessionErr error
	go func() {
		defer close(events)
		event.Send(events, event.Event{Type: event.SessionStarted, Size: img.Size, Total: int64(len(devices))})
		for _, d := range devices {
			event.Send(events, event.Event{Type: event.DeviceAdded, Path: d.Path, Label: d.Label})
		}
		sessionErr = task.Process(engineCtx, make([]byte, bufSize))
		event.Send(events, event.Event{Type: event.SessionFinished, Error: sessionErr})
	}()

	var presenterEvents <-chan event.Event = events
	if o.logFile != "" {
		presenterEvents = teeEvents(events, logger)
	}

	if err := present(presenter, presenterEvents, engineCancel, collector); err != nil {
		fmt.Fprintf(os.Stderr, "presenter: %v\n", err)
	}
	stop()

	if !o.quiet {
		if summary := presenter.Summary(); summary != "" {
			fmt.Fprintln(os.Stderr, summary)
		}
	}

	snap := collector.Snapshot()
	logger.Info("session summary", "outcome", snap.String(), "elapsed", snap.Elapsed)

	if sessionErr != nil {
		return &exitError{code: 1, err: sessionErr}
	}
	return nil
}

// selectDevices keeps the discovered disks the chain accepts and returns
// them together with their paths.
func selectDevices(found []disk.Device, chain *filter.Chain) ([]disk.Device, []string) {
	var (
		selected []disk.Device
		paths    []string
	)
	for _, d := range found {
		if !chain.Match(d.Path, d.Size) {
			continue
		}
		selected = append(selected, d)
		paths = append(paths, d.Path)
	}
	return selected, paths
}

// describeDevices builds the confirmation listing for the opened devices.
// Devices smaller than the image are flagged in the log; their writes will
// fail at the end of the device.
func describeDevices(resolved []disk.Resolved, labels map[string]string, imageSize int64, logger *slog.Logger) []disk.Device {
	devices := make([]disk.Device, 0, len(resolved))
	for _, r := range resolved {
		d := disk.Device{Path: r.Path, Label: labels[r.Path]}
		if d.Label == "" {
			d.Label = disk.Label(r.Path)
		}
		if size, err := platform.DeviceSize(r.File); err == nil {
			d.Size = size
			if size < imageSize {
				logger.Warn("device is smaller than the image", "device", r.Path,
					"device_size", size, "image_size", imageSize)
			}
		}
		devices = append(devices, d)
	}
	return devices
}

func closeDevices(resolved []disk.Resolved, logger *slog.Logger) {
	for _, r := range resolved {
		if err := r.File.Close(); err != nil {
			logger.Warn("close device", "device", r.Path, "error", err)
		}
	}
}

// buildChain loads the filter file and size bounds into the chain.
func buildChain(o *options) error {
	if o.filterFile != "" {
		if err := o.chain.LoadFile(o.filterFile); err != nil {
			return fmt.Errorf("load filter file: %w", err)
		}
	}
	if o.minSize != "" {
		n, err := filter.ParseSize(o.minSize)
		if err != nil {
			return fmt.Errorf("invalid --min-size: %w", err)
		}
		o.chain.SetMinSize(n)
	}
	if o.maxSize != "" {
		n, err := filter.ParseSize(o.maxSize)
		if err != nil {
			return fmt.Errorf("invalid --max-size: %w", err)
		}
		o.chain.SetMaxSize(n)
	}
	return nil
}

// applyConfigDefaults applies config file defaults for flags not explicitly set on the CLI.
func applyConfigDefaults(cmd *cobra.Command, defaults config.DefaultsConfig, o *options) {
	flags := cmd.Flags()
	if !flags.Changed("check") && defaults.Verify != nil {
		o.verify = *defaults.Verify
	}
	if !flags.Changed("unmount") && defaults.Unmount != nil {
		o.unmount = *defaults.Unmount
	}
	if !flags.Changed("tui") && defaults.TUI != nil {
		o.tui = *defaults.TUI
	}
	if !flags.Changed("yes") && defaults.Yes != nil {
		o.yes = *defaults.Yes
	}
	if !flags.Changed("buffer-size") && defaults.BufferSize != nil {
		o.bufferSize = *defaults.BufferSize
	}
	if !flags.Changed("bwlimit") && defaults.BWLimit != nil {
		o.bwLimit = *defaults.BWLimit
	}
}

// applyFilterConfig appends the config file's rules after the CLI rules, so
// a CLI pattern matching the same device wins.
func applyFilterConfig(cmd *cobra.Command, fc config.FilterConfig, o *options) error {
	for _, p := range fc.Exclude {
		if err := o.chain.AddExclude(p); err != nil {
			return err
		}
	}
	for _, p := range fc.Include {
		if err := o.chain.AddInclude(p); err != nil {
			return err
		}
	}
	if !cmd.Flags().Changed("min-size") && fc.MinSize != nil {
		o.minSize = *fc.MinSize
	}
	if !cmd.Flags().Changed("max-size") && fc.MaxSize != nil {
		o.maxSize = *fc.MaxSize
	}
	return nil
}

type logOptions struct {
	verbose    bool
	quiet      bool
	fullscreen bool
	file       string
	session    string
}

// newLogger builds the session logger. The returned func closes the log
// file, if any.
func newLogger(lo logOptions) (*slog.Logger, func(), error) {
	logLevel := slog.LevelWarn
	if lo.verbose {
		logLevel = slog.LevelDebug
	} else if !lo.quiet {
		logLevel = slog.LevelInfo
	}
	if lo.fullscreen {
		// Anything below an error would tear the alternate screen.
		logLevel = slog.LevelError
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	var logHandler slog.Handler = textHandler
	closer := func() {}
	if lo.file != "" {
		lf, err := os.Create(lo.file)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		closer = func() { lf.Close() }
		jsonHandler := slog.NewJSONHandler(lf, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
		logHandler = ui.NewMultiHandler(textHandler, jsonHandler)
	}

	session := lo.session
	if session == "" {
		session = uuid.NewString()
	}
	return slog.New(logHandler).With("session", session), closer, nil
}

// teeEvents writes a structured record per event before forwarding it to
// the presenter.
func teeEvents(events <-chan event.Event, logger *slog.Logger) <-chan event.Event {
	teed := make(chan event.Event, 256)
	go func() {
		for ev := range events {
			attrs := []slog.Attr{
				slog.String("type", ev.Type.String()),
				slog.String("path", ev.Path),
				slog.Int64("size", ev.Size),
			}
			if ev.Kind != "" {
				attrs = append(attrs, slog.String("kind", ev.Kind), slog.String("text", ev.Text))
			}
			if ev.Error != nil {
				attrs = append(attrs, slog.String("error", ev.Error.Error()))
			}
			logger.LogAttrs(context.Background(), slog.LevelDebug, "burn.event", attrs...)
			teed <- ev
		}
		close(teed)
	}()
	return teed
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) Unwrap() error { return e.err }
