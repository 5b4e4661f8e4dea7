package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/cli"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/cue"
	"github.com/rbright/murmur/internal/daemon"
	"github.com/rbright/murmur/internal/doctor"
	"github.com/rbright/murmur/internal/fault"
	"github.com/rbright/murmur/internal/hotkey"
	"github.com/rbright/murmur/internal/logging"
	"github.com/rbright/murmur/internal/output"
	"github.com/rbright/murmur/internal/recognize"
	"github.com/rbright/murmur/internal/recording"
	"github.com/rbright/murmur/internal/session"
	"github.com/rbright/murmur/internal/transcript"
	"github.com/rbright/murmur/internal/version"
)

const (
	ExitOK                    = 0
	ExitInternal              = 1
	ExitUsage                 = 2
	ExitAlreadyRunning        = 3
	ExitCapabilityUnavailable = 4
	ExitConfigInvalid         = 5
)

const startTimeout = 5 * time.Second

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// Executable is the binary `start` re-executes. Defaults to os.Executable.
	Executable string
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("murmur"))
		return ExitUsage
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("murmur"))
		return ExitOK
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return ExitOK
	}

	// stop, status and install never read the config, so a broken file
	// cannot keep a running daemon from being stopped.
	paths := daemon.ResolvePaths()
	switch parsed.Command {
	case cli.CommandStop:
		return r.commandStop(ctx, paths)
	case cli.CommandStatus:
		return r.commandStatus(ctx, paths)
	case cli.CommandInstall:
		return r.commandInstall(parsed.ConfigPath)
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitCode(err)
	}

	var tee io.Writer
	if parsed.Command == cli.CommandRun {
		tee = r.Stderr
	}
	logRuntime, err := logging.New(cfgLoaded.Config.Log.Level, tee)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return ExitInternal
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		if tee == nil {
			fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		}
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Debug("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded, paths, logger)
	case cli.CommandStart:
		return r.commandStart(ctx, cfgLoaded, paths, logRuntime.Path)
	case cli.CommandRestart:
		if code := r.commandStop(ctx, paths); code != ExitOK {
			return code
		}
		return r.commandStart(ctx, cfgLoaded, paths, logRuntime.Path)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return ExitOK
		}
		return ExitInternal
	case cli.CommandDevices:
		return r.commandDevices(ctx, cfgLoaded.Config.Audio.Backend)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return ExitUsage
	}
}

// exitCode maps an error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var child *daemon.ChildExitError
	if errors.As(err, &child) && child.Code != ExitOK {
		return child.Code
	}
	switch fault.Kind(err) {
	case fault.ErrInstanceConflict:
		return ExitAlreadyRunning
	case fault.ErrCapabilityUnavailable:
		return ExitCapabilityUnavailable
	case fault.ErrConfigInvalid:
		return ExitConfigInvalid
	default:
		return ExitInternal
	}
}

func (r Runner) commandRun(ctx context.Context, cfg config.Loaded, paths daemon.Paths, logger *slog.Logger) int {
	logger.Info("daemon starting",
		"version", version.Version,
		"config", cfg.Path,
		"hotkey", cfg.Config.Hotkey.Modifier+"+"+cfg.Config.Hotkey.Trigger,
		"audio_backend", cfg.Config.Audio.Backend,
		"recognizer", cfg.Config.Recognizer.Backend,
		"output", cfg.Config.Output.Backend,
	)

	sup := &daemon.Supervisor{
		Paths:   paths,
		Logger:  logger,
		Acquire: capabilities(cfg.Config, logger),
	}
	if err := sup.Run(ctx); err != nil {
		logger.Error("daemon failed", "error", err.Error())
		var conflict *daemon.ConflictError
		if errors.As(err, &conflict) {
			fmt.Fprintf(r.Stderr, "error: murmur already running (pid %d)\n", conflict.PID)
		} else {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
		}
		return exitCode(err)
	}
	return ExitOK
}

// capabilities builds every daemon collaborator once the instance lock is
// held. Hotkey preflight runs before the audio server is contacted.
func capabilities(cfg config.Config, logger *slog.Logger) daemon.AcquireFunc {
	return func(ctx context.Context) (daemon.Capabilities, error) {
		if _, err := hotkey.Check(cfg.Hotkey); err != nil {
			return daemon.Capabilities{}, err
		}
		hotkeys, err := hotkey.NewSource(cfg.Hotkey, logger)
		if err != nil {
			return daemon.Capabilities{}, fmt.Errorf("%w: %w", fault.ErrCapabilityUnavailable, err)
		}

		source, err := audio.NewSource(ctx, cfg.Audio, logger)
		if err != nil {
			if fault.Kind(err) == nil {
				err = fmt.Errorf("%w: %w", fault.ErrCapabilityUnavailable, err)
			}
			return daemon.Capabilities{}, err
		}

		engine, err := recognize.New(cfg.Recognizer, logger)
		if err != nil {
			return daemon.Capabilities{}, err
		}
		if cfg.Debug.AudioDump {
			dumper, dumpErr := recognize.NewDumper(engine, logger)
			if dumpErr != nil {
				return daemon.Capabilities{}, dumpErr
			}
			engine = dumper
		}

		typist, err := output.New(cfg.Output, logger)
		if err != nil {
			return daemon.Capabilities{}, err
		}

		var cues cue.Player = cue.Nop{}
		closeCues := func() {}
		if cfg.Feedback.Enable {
			pulseCues := cue.NewPulse(cfg.Feedback, logger)
			cues = pulseCues
			closeCues = pulseCues.Wait
		}

		recordingOpts := recording.Options{
			Format:       audio.FormatFromConfig(cfg.Audio),
			MaxRecording: cfg.Audio.MaxRecording(),
		}
		controller := session.NewController(session.Options{
			MinHold:     cfg.PTT.MinHold(),
			PostRelease: cfg.PTT.PostRelease(),
			Transcript: transcript.Options{
				TrailingSpace:       cfg.Output.TrailingSpace,
				CapitalizeSentences: cfg.Output.Capitalize,
			},
		}, session.Deps{
			Open: func(ctx context.Context) (session.Capture, error) {
				coordinator, err := recording.Open(ctx, source, recordingOpts, logger)
				if err != nil {
					return nil, err
				}
				return coordinator, nil
			},
			Engine: engine,
			Typist: typist,
			Cues:   cues,
			Logger: logger,
		})

		return daemon.Capabilities{Hotkeys: hotkeys, Session: controller, Close: closeCues}, nil
	}
}

func (r Runner) commandStart(ctx context.Context, cfg config.Loaded, paths daemon.Paths, logPath string) int {
	inst, err := daemon.Inspect(ctx, paths)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ExitInternal
	}
	if inst.Running {
		fmt.Fprintf(r.Stderr, "error: murmur already running (pid %d)\n", inst.PID)
		return ExitAlreadyRunning
	}

	exe, err := r.executable()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ExitInternal
	}

	args := []string{"--config", cfg.Path, "run"}
	pid, err := daemon.Spawn(ctx, paths, exe, args, startTimeout)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v (see %s)\n", err, logPath)
		return exitCode(err)
	}
	fmt.Fprintf(r.Stdout, "started (pid %d)\n", pid)
	return ExitOK
}

func (r Runner) executable() (string, error) {
	if r.Executable != "" {
		return r.Executable, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	return exe, nil
}

// commandInstall writes the login autostart entry. The config path is made
// absolute so the entry works from any working directory.
func (r Runner) commandInstall(explicitConfig string) int {
	configPath, err := config.ResolvePath(explicitConfig)
	if err == nil {
		configPath, err = filepath.Abs(configPath)
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ExitInternal
	}
	entryPath, err := config.AutostartPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ExitInternal
	}
	exe, err := r.executable()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ExitInternal
	}

	if err := daemon.WriteAutostart(entryPath, exe, configPath); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ExitInternal
	}
	fmt.Fprintf(r.Stdout, "autostart entry written: %s\n", entryPath)
	return ExitOK
}

func (r Runner) commandStop(ctx context.Context, paths daemon.Paths) int {
	inst, err := daemon.Stop(ctx, paths, daemon.StopTimeout)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ExitInternal
	}
	switch {
	case inst.Running:
		fmt.Fprintf(r.Stdout, "stopped (pid %d)\n", inst.PID)
	case inst.Stale:
		fmt.Fprintln(r.Stdout, "not running (removed stale lock)")
	default:
		fmt.Fprintln(r.Stdout, "not running")
	}
	return ExitOK
}

func (r Runner) commandStatus(ctx context.Context, paths daemon.Paths) int {
	inst, err := daemon.Inspect(ctx, paths)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return ExitInternal
	}
	fmt.Fprintln(r.Stdout, formatStatus(inst))
	return ExitOK
}

func formatStatus(inst daemon.Instance) string {
	if !inst.Running {
		return "not running"
	}
	if inst.State == "" {
		return fmt.Sprintf("running (pid %d)", inst.PID)
	}
	return fmt.Sprintf("running (pid %d, state %s, episodes %d)", inst.PID, inst.State, inst.Episodes)
}

func (r Runner) commandDevices(ctx context.Context, backend string) int {
	devices, err := audio.ListBackendDevices(ctx, backend)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitCode(err)
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return ExitCapabilityUnavailable
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return ExitOK
}
