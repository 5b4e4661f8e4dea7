// Package doctor runs runtime readiness diagnostics for config, hotkey,
// audio, recognizer, and output.
package doctor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/rbright/murmur/internal/audio"
	"github.com/rbright/murmur/internal/config"
	"github.com/rbright/murmur/internal/hotkey"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}

	checks = append(checks, checkHotkey(cfg.Config.Hotkey))
	checks = append(checks, checkAudioSelection(ctx, cfg.Config.Audio))

	switch cfg.Config.Recognizer.Backend {
	case config.BackendWhisperServer:
		checks = append(checks, checkRecognizerServer(ctx, cfg.Config.Recognizer.URL))
	default:
		checks = append(checks, checkCommand(cfg.Config.Recognizer.Command.Argv, "recognizer.command"))
	}

	switch cfg.Config.Output.Backend {
	case config.BackendCommand:
		checks = append(checks, checkCommand(cfg.Config.Output.Command.Argv, "output.command"))
	case config.BackendClipboard:
		checks = append(checks, checkClipboard(cfg.Config.Output.PasteShortcut))
	default:
		checks = append(checks, checkEnv("DISPLAY", func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "X display available for keystroke synthesis", "robotgo output requires DISPLAY"))
	}

	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("no file at %q; using defaults", cfg.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

func checkHotkey(cfg config.HotkeyConfig) Check {
	name := "hotkey." + cfg.Backend
	message, err := hotkey.Check(cfg)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s (chord %s+%s)", message, cfg.Modifier, cfg.Trigger)}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

func checkClipboard(shortcut string) Check {
	if clipboard.Unsupported {
		return Check{Name: "output.clipboard", Pass: false, Message: "no clipboard utility found (install xclip, xsel, or wl-clipboard)"}
	}
	if strings.TrimSpace(os.Getenv("DISPLAY")) == "" {
		return Check{Name: "output.clipboard", Pass: false, Message: "clipboard paste requires DISPLAY"}
	}
	return Check{Name: "output.clipboard", Pass: true, Message: fmt.Sprintf("clipboard available; pasting with %s", shortcut)}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(config.ExpandUser(argv[0]), fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.AudioConfig) Check {
	name := "audio." + cfg.Backend
	if cfg.Backend == config.BackendMalgo {
		devices, err := audio.ListMalgoDevices()
		if err != nil {
			return Check{Name: name, Pass: false, Message: err.Error()}
		}
		if len(devices) == 0 {
			return Check{Name: name, Pass: false, Message: "no capture devices found"}
		}
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("%d capture devices; using %q", len(devices), cfg.Device)}
	}

	selection, err := audio.SelectDevice(ctx, cfg.Device, "default")
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	if selection.Device.Muted {
		return Check{Name: name, Pass: false, Message: message + " but it is muted"}
	}
	return Check{Name: name, Pass: true, Message: message}
}

// checkRecognizerServer verifies the whisper server answers HTTP at its root.
func checkRecognizerServer(ctx context.Context, endpoint string) Check {
	const name = "recognizer.url"
	parsed, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("invalid url %q", endpoint)}
	}
	root := parsed.Scheme + "://" + parsed.Host + "/"

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, root, nil)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 256))

	if resp.StatusCode >= 500 {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("HTTP %d from %s", resp.StatusCode, root)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("server reachable at %s", root)}
}
