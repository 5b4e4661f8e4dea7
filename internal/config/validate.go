package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	switch cfg.Audio.Backend {
	case BackendPulse, BackendMalgo:
	default:
		return nil, fmt.Errorf("audio.backend must be one of: %s, %s", BackendPulse, BackendMalgo)
	}
	if cfg.Audio.SampleRate <= 0 {
		return nil, fmt.Errorf("audio.sample_rate must be > 0")
	}
	if cfg.Audio.Channels <= 0 || cfg.Audio.Channels > 2 {
		return nil, fmt.Errorf("audio.channels must be 1 or 2")
	}
	if cfg.Audio.FrameMS <= 0 {
		return nil, fmt.Errorf("audio.frame_ms must be > 0")
	}
	if cfg.Audio.FrameSamples() <= 0 {
		return nil, fmt.Errorf("audio.frame_ms=%d is too short for audio.sample_rate=%d", cfg.Audio.FrameMS, cfg.Audio.SampleRate)
	}
	if cfg.Audio.MaxRecordingSeconds <= 0 {
		return nil, fmt.Errorf("audio.max_recording_seconds must be > 0")
	}
	if cfg.Audio.QueueFrames <= 0 {
		return nil, fmt.Errorf("audio.queue_frames must be > 0")
	}

	if cfg.PTT.MinHoldMS < 0 {
		return nil, fmt.Errorf("ptt.min_hold_ms must be >= 0")
	}
	if cfg.PTT.PostReleaseMS < 0 {
		return nil, fmt.Errorf("ptt.post_release_ms must be >= 0")
	}
	if cfg.PTT.MinHoldMS == 0 {
		warnings = append(warnings, Warning{Message: "ptt.min_hold_ms=0 disables accidental-tap filtering"})
	}

	switch cfg.Hotkey.Backend {
	case BackendX11, BackendEvdev:
	default:
		return nil, fmt.Errorf("hotkey.backend must be one of: %s, %s", BackendX11, BackendEvdev)
	}
	if cfg.Hotkey.Modifier == "" {
		return nil, fmt.Errorf("hotkey.modifier must not be empty")
	}
	if cfg.Hotkey.Trigger == "" {
		return nil, fmt.Errorf("hotkey.trigger must not be empty")
	}
	if strings.EqualFold(cfg.Hotkey.Modifier, cfg.Hotkey.Trigger) {
		return nil, fmt.Errorf("hotkey.modifier and hotkey.trigger must differ")
	}

	switch cfg.Recognizer.Backend {
	case BackendCommand:
		if len(cfg.Recognizer.Command.Argv) == 0 {
			return nil, fmt.Errorf("recognizer.command must not be empty when recognizer.backend=%s", BackendCommand)
		}
	case BackendWhisperServer:
		u, err := url.Parse(cfg.Recognizer.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("recognizer.url must be an absolute http(s) URL")
		}
		if host := u.Hostname(); host != "127.0.0.1" && host != "localhost" && host != "::1" {
			warnings = append(warnings, Warning{Message: fmt.Sprintf("recognizer.url host %q is not local; audio leaves this machine", host)})
		}
	default:
		return nil, fmt.Errorf("recognizer.backend must be one of: %s, %s", BackendCommand, BackendWhisperServer)
	}
	if cfg.Recognizer.TimeoutMS <= 0 {
		return nil, fmt.Errorf("recognizer.timeout_ms must be > 0")
	}

	switch cfg.Output.Backend {
	case BackendRobotgo:
	case BackendCommand:
		if len(cfg.Output.Command.Argv) == 0 {
			return nil, fmt.Errorf("output.command must not be empty when output.backend=%s", BackendCommand)
		}
	case BackendClipboard:
		if len(cfg.Output.PasteKeys()) == 0 {
			return nil, fmt.Errorf("output.paste_shortcut must not be empty when output.backend=%s", BackendClipboard)
		}
	default:
		return nil, fmt.Errorf("output.backend must be one of: %s, %s, %s", BackendRobotgo, BackendCommand, BackendClipboard)
	}
	if cfg.Output.TypingDelaySeconds < 0 {
		return nil, fmt.Errorf("output.typing_delay_seconds must be >= 0")
	}
	if cfg.Output.TypingDelaySeconds > 0.5 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("output.typing_delay_seconds=%.2f makes typing very slow", cfg.Output.TypingDelaySeconds)})
	}
	if cfg.Output.LeadInMS < 0 {
		return nil, fmt.Errorf("output.lead_in_ms must be >= 0")
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}
