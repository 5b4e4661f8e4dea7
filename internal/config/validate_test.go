package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "audio backend", mutate: func(c *Config) { c.Audio.Backend = "alsa" }, want: "audio.backend"},
		{name: "sample rate", mutate: func(c *Config) { c.Audio.SampleRate = 0 }, want: "audio.sample_rate"},
		{name: "channels", mutate: func(c *Config) { c.Audio.Channels = 3 }, want: "audio.channels"},
		{name: "frame too short", mutate: func(c *Config) { c.Audio.SampleRate = 100; c.Audio.FrameMS = 5 }, want: "too short"},
		{name: "negative hold", mutate: func(c *Config) { c.PTT.MinHoldMS = -1 }, want: "ptt.min_hold_ms"},
		{name: "negative grace", mutate: func(c *Config) { c.PTT.PostReleaseMS = -1 }, want: "ptt.post_release_ms"},
		{name: "hotkey backend", mutate: func(c *Config) { c.Hotkey.Backend = "wayland" }, want: "hotkey.backend"},
		{name: "same keys", mutate: func(c *Config) { c.Hotkey.Trigger = "CTRL" }, want: "must differ"},
		{name: "recognizer command", mutate: func(c *Config) { c.Recognizer.Command = CommandConfig{} }, want: "recognizer.command"},
		{name: "recognizer url", mutate: func(c *Config) {
			c.Recognizer.Backend = BackendWhisperServer
			c.Recognizer.URL = "inference"
		}, want: "recognizer.url"},
		{name: "output command", mutate: func(c *Config) { c.Output.Backend = BackendCommand }, want: "output.command"},
		{name: "paste shortcut", mutate: func(c *Config) {
			c.Output.Backend = BackendClipboard
			c.Output.PasteShortcut = " + "
		}, want: "output.paste_shortcut"},
		{name: "typing delay", mutate: func(c *Config) { c.Output.TypingDelaySeconds = -0.1 }, want: "output.typing_delay_seconds"},
		{name: "log level", mutate: func(c *Config) { c.Log.Level = "trace" }, want: "log.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := Default()
	cfg.PTT.MinHoldMS = 0
	cfg.Output.TypingDelaySeconds = 1
	cfg.Recognizer.Backend = BackendWhisperServer
	cfg.Recognizer.URL = "http://10.0.0.5:8080/inference"

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 3)
}
