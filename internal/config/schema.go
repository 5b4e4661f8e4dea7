package config

import (
	"fmt"
	"strings"
)

// fileConfig is the on-disk shape shared by the JSONC and YAML parsers.
// Pointer fields distinguish "absent" from zero values so defaults survive.
type fileConfig struct {
	Audio      *fileAudio      `json:"audio" yaml:"audio"`
	PTT        *filePTT        `json:"ptt" yaml:"ptt"`
	Hotkey     *fileHotkey     `json:"hotkey" yaml:"hotkey"`
	Recognizer *fileRecognizer `json:"recognizer" yaml:"recognizer"`
	Output     *fileOutput     `json:"output" yaml:"output"`
	Feedback   *fileFeedback   `json:"feedback" yaml:"feedback"`
	Log        *fileLog        `json:"log" yaml:"log"`
	Debug      *fileDebug      `json:"debug" yaml:"debug"`
}

type fileAudio struct {
	Backend             *string `json:"backend" yaml:"backend"`
	Device              *string `json:"device" yaml:"device"`
	SampleRate          *int    `json:"sample_rate" yaml:"sample_rate"`
	Channels            *int    `json:"channels" yaml:"channels"`
	FrameMS             *int    `json:"frame_ms" yaml:"frame_ms"`
	MaxRecordingSeconds *int    `json:"max_recording_seconds" yaml:"max_recording_seconds"`
	QueueFrames         *int    `json:"queue_frames" yaml:"queue_frames"`
}

type filePTT struct {
	MinHoldMS     *int `json:"min_hold_ms" yaml:"min_hold_ms"`
	PostReleaseMS *int `json:"post_release_ms" yaml:"post_release_ms"`
}

type fileHotkey struct {
	Backend  *string `json:"backend" yaml:"backend"`
	Modifier *string `json:"modifier" yaml:"modifier"`
	Trigger  *string `json:"trigger" yaml:"trigger"`
}

type fileRecognizer struct {
	Backend   *string `json:"backend" yaml:"backend"`
	Command   *string `json:"command" yaml:"command"`
	URL       *string `json:"url" yaml:"url"`
	Language  *string `json:"language" yaml:"language"`
	TimeoutMS *int    `json:"timeout_ms" yaml:"timeout_ms"`
}

type fileOutput struct {
	Backend            *string  `json:"backend" yaml:"backend"`
	Command            *string  `json:"command" yaml:"command"`
	TypingDelaySeconds *float64 `json:"typing_delay_seconds" yaml:"typing_delay_seconds"`
	LeadInMS           *int     `json:"lead_in_ms" yaml:"lead_in_ms"`
	PasteShortcut      *string  `json:"paste_shortcut" yaml:"paste_shortcut"`
	TrailingSpace      *bool    `json:"trailing_space" yaml:"trailing_space"`
	Capitalize         *bool    `json:"capitalize" yaml:"capitalize"`
}

type fileFeedback struct {
	Enable    *bool   `json:"enable" yaml:"enable"`
	StartFile *string `json:"start_file" yaml:"start_file"`
	StopFile  *string `json:"stop_file" yaml:"stop_file"`
	ErrorFile *string `json:"error_file" yaml:"error_file"`
}

type fileLog struct {
	Level *string `json:"level" yaml:"level"`
}

type fileDebug struct {
	AudioDump *bool `json:"audio_dump" yaml:"audio_dump"`
}

// materialize overlays the payload onto base and validates the result.
func (payload fileConfig) materialize(base Config) (Config, []Warning, error) {
	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload fileConfig) applyTo(cfg *Config) error {
	if a := payload.Audio; a != nil {
		setString(&cfg.Audio.Backend, a.Backend)
		setString(&cfg.Audio.Device, a.Device)
		setInt(&cfg.Audio.SampleRate, a.SampleRate)
		setInt(&cfg.Audio.Channels, a.Channels)
		setInt(&cfg.Audio.FrameMS, a.FrameMS)
		setInt(&cfg.Audio.MaxRecordingSeconds, a.MaxRecordingSeconds)
		setInt(&cfg.Audio.QueueFrames, a.QueueFrames)
	}

	if p := payload.PTT; p != nil {
		setInt(&cfg.PTT.MinHoldMS, p.MinHoldMS)
		setInt(&cfg.PTT.PostReleaseMS, p.PostReleaseMS)
	}

	if h := payload.Hotkey; h != nil {
		setString(&cfg.Hotkey.Backend, h.Backend)
		setString(&cfg.Hotkey.Modifier, h.Modifier)
		setString(&cfg.Hotkey.Trigger, h.Trigger)
	}

	if r := payload.Recognizer; r != nil {
		setString(&cfg.Recognizer.Backend, r.Backend)
		setString(&cfg.Recognizer.URL, r.URL)
		setString(&cfg.Recognizer.Language, r.Language)
		setInt(&cfg.Recognizer.TimeoutMS, r.TimeoutMS)
		if r.Command != nil {
			command, err := parseCommand(*r.Command)
			if err != nil {
				return fmt.Errorf("invalid recognizer.command: %w", err)
			}
			cfg.Recognizer.Command = command
		}
	}

	if o := payload.Output; o != nil {
		setString(&cfg.Output.Backend, o.Backend)
		setInt(&cfg.Output.LeadInMS, o.LeadInMS)
		setString(&cfg.Output.PasteShortcut, o.PasteShortcut)
		if o.TypingDelaySeconds != nil {
			cfg.Output.TypingDelaySeconds = *o.TypingDelaySeconds
		}
		if o.TrailingSpace != nil {
			cfg.Output.TrailingSpace = *o.TrailingSpace
		}
		if o.Capitalize != nil {
			cfg.Output.Capitalize = *o.Capitalize
		}
		if o.Command != nil {
			command, err := parseCommand(*o.Command)
			if err != nil {
				return fmt.Errorf("invalid output.command: %w", err)
			}
			cfg.Output.Command = command
		}
	}

	if f := payload.Feedback; f != nil {
		if f.Enable != nil {
			cfg.Feedback.Enable = *f.Enable
		}
		setString(&cfg.Feedback.StartFile, f.StartFile)
		setString(&cfg.Feedback.StopFile, f.StopFile)
		setString(&cfg.Feedback.ErrorFile, f.ErrorFile)
	}

	if l := payload.Log; l != nil {
		setString(&cfg.Log.Level, l.Level)
	}

	if d := payload.Debug; d != nil && d.AudioDump != nil {
		cfg.Debug.AudioDump = *d.AudioDump
	}

	return nil
}

func parseCommand(raw string) (CommandConfig, error) {
	argv, err := parseArgv(raw)
	if err != nil {
		return CommandConfig{}, err
	}
	return CommandConfig{Raw: raw, Argv: argv}, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
