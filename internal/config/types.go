// Package config resolves, parses, validates, and defaults murmur configuration.
package config

import (
	"strings"
	"time"
)

// Config is the fully materialized runtime configuration. It is loaded once at
// daemon start and never mutated afterwards.
type Config struct {
	Audio      AudioConfig
	PTT        PTTConfig
	Hotkey     HotkeyConfig
	Recognizer RecognizerConfig
	Output     OutputConfig
	Feedback   FeedbackConfig
	Log        LogConfig
	Debug      DebugConfig
}

// AudioConfig controls capture backend, device, and PCM format.
type AudioConfig struct {
	Backend             string
	Device              string
	SampleRate          int
	Channels            int
	FrameMS             int
	MaxRecordingSeconds int
	QueueFrames         int
}

// PTTConfig holds the push-to-talk timing policy.
type PTTConfig struct {
	MinHoldMS     int
	PostReleaseMS int
}

// HotkeyConfig selects the hotkey backend and the modifier+trigger chord.
type HotkeyConfig struct {
	Backend  string
	Modifier string
	Trigger  string
}

// RecognizerConfig selects and parameterizes the speech recognition engine.
type RecognizerConfig struct {
	Backend   string
	Command   CommandConfig
	URL       string
	Language  string
	TimeoutMS int
}

// OutputConfig controls keystroke synthesis and transcript normalization.
type OutputConfig struct {
	Backend            string
	Command            CommandConfig
	TypingDelaySeconds float64
	LeadInMS           int
	PasteShortcut      string
	TrailingSpace      bool
	Capitalize         bool
}

// FeedbackConfig controls audio cues. Empty file paths use synthesized tones.
type FeedbackConfig struct {
	Enable    bool
	StartFile string
	StopFile  string
	ErrorFile string
}

type LogConfig struct {
	Level string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	AudioDump bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

func (c PTTConfig) MinHold() time.Duration {
	return time.Duration(c.MinHoldMS) * time.Millisecond
}

func (c PTTConfig) PostRelease() time.Duration {
	return time.Duration(c.PostReleaseMS) * time.Millisecond
}

// FrameSamples is the per-channel sample count of one AudioFrame.
func (c AudioConfig) FrameSamples() int {
	return c.SampleRate * c.FrameMS / 1000
}

// MaxRecording bounds the length of one RecordingBuffer.
func (c AudioConfig) MaxRecording() time.Duration {
	return time.Duration(c.MaxRecordingSeconds) * time.Second
}

func (c RecognizerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// TypingDelay is the pause inserted after each typed character.
func (c OutputConfig) TypingDelay() time.Duration {
	return time.Duration(c.TypingDelaySeconds * float64(time.Second))
}

func (c OutputConfig) LeadIn() time.Duration {
	return time.Duration(c.LeadInMS) * time.Millisecond
}

// PasteKeys splits PasteShortcut into its key names, trigger last.
func (c OutputConfig) PasteKeys() []string {
	var keys []string
	for _, part := range strings.Split(c.PasteShortcut, "+") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			keys = append(keys, part)
		}
	}
	return keys
}
